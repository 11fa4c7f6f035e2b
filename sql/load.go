package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed memories.sql
var memoriesSQL string

//go:embed memory_links.sql
var memoryLinksSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed entity_links.sql
var entityLinksSQL string

//go:embed memory_entities.sql
var memoryEntitiesSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_documents_by_user",
	"search_documents",
	"update_document",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"select_chunk",
	"select_chunks_by_document",
	"select_chunks_by_similarity",
	"delete_chunk",
}

var MemoriesFunctions = []string{
	"init_memories",
	"insert_memory",
	"create_memory_version",
	"set_memory_forgotten",
	"set_memory_expiry",
	"set_memory_kind",
	"select_memory",
	"select_memories_by_user",
	"select_memory_history",
	"select_expired_memories",
	"select_memories_by_similarity",
	"delete_memory",
}

var MemoryLinksFunctions = []string{
	"init_memory_links",
	"upsert_memory_link",
	"select_links_from_memory",
	"select_links_to_memory",
	"select_superseding_memories",
	"select_superseded_memories",
	"delete_links_for_memory",
}

var EntitiesFunctions = []string{
	"init_entities",
	"upsert_entity",
	"select_entity",
	"select_entity_by_name",
	"search_entities",
	"select_entities_by_user",
	"select_top_entities",
	"entity_type_stats",
	"delete_entity",
}

var EntityLinksFunctions = []string{
	"init_entity_links",
	"upsert_entity_link",
	"select_entity_links_from",
	"select_entity_links_to",
	"select_entity_links_among",
	"relationship_stats",
	"delete_entity_link",
}

var MemoryEntitiesFunctions = []string{
	"init_memory_entities",
	"link_memory_entity",
	"select_entities_for_memory",
	"select_memories_for_entity",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, documentsSQL, DocumentsFunctions, "documents", force)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, chunksSQL, ChunksFunctions, "chunks", force)
}

// LoadMemoriesSql loads memory-related SQL functions
func LoadMemoriesSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, memoriesSQL, MemoriesFunctions, "memories", force)
}

// LoadMemoryLinksSql loads memory-link-related SQL functions
func LoadMemoryLinksSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, memoryLinksSQL, MemoryLinksFunctions, "memory links", force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, entitiesSQL, EntitiesFunctions, "entities", force)
}

// LoadEntityLinksSql loads entity-link-related SQL functions
func LoadEntityLinksSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, entityLinksSQL, EntityLinksFunctions, "entity links", force)
}

// LoadMemoryEntitiesSql loads memory-entity junction SQL functions
func LoadMemoryEntitiesSql(db *sql.DB, force bool) error {
	return loadSqlFunctions(db, memoryEntitiesSQL, MemoryEntitiesFunctions, "memory entities", force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadChunksSql(db, force); err != nil {
		return err
	}

	if err := LoadMemoriesSql(db, force); err != nil {
		return err
	}

	if err := LoadMemoryLinksSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadEntityLinksSql(db, force); err != nil {
		return err
	}

	if err := LoadMemoryEntitiesSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSqlFunctions executes the SQL for one table unless all its
// functions already exist and force is false, then verifies the load.
func loadSqlFunctions(db *sql.DB, sqlText string, sqlFunctions []string, name string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sqlText)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
