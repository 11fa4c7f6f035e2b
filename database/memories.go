package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// MemoriesDBHandlerFunctions defines the interface for Memories database operations.
type MemoriesDBHandlerFunctions interface {
	InsertMemory(memory *model.Memory) error
	CreateVersion(priorID uuid.UUID, content string, embedding []float32, containerTags []string) (*model.Memory, error)
	SetForgotten(id uuid.UUID, forgotten bool) (*model.Memory, error)
	SetExpiry(id uuid.UUID, expiresAt *time.Time) (*model.Memory, error)
	SetKind(id uuid.UUID, kind model.MemoryKind) (*model.Memory, error)
	SelectMemory(id uuid.UUID) (*model.Memory, error)
	SelectMemoriesByUser(userID string, kind *model.MemoryKind, limit int) ([]*model.Memory, error)
	SelectMemoryHistory(id uuid.UUID) ([]*model.Memory, error)
	SelectExpiredMemories(userID string) ([]*model.Memory, error)
	SelectMemoriesBySimilarity(embedding []float32, userID string, config *model.SearchConfig) ([]*model.Memory, error)
	DeleteMemory(id uuid.UUID) error
}

// MemoriesDBHandler handles memory-related database operations
type MemoriesDBHandler struct {
	db *helper.Database
}

// NewMemoriesDBHandler creates a new memories database handler.
// It initializes the database connection and loads memory-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMemoriesDBHandler(db *helper.Database, embeddingDim int, force bool) (*MemoriesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	memoriesDbHandler := &MemoriesDBHandler{
		db: db,
	}

	err := loadSql.LoadMemoriesSql(memoriesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load memories sql", err)
	}

	err = memoriesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MemoriesDBHandler")

	return memoriesDbHandler, nil
}

// CreateTable creates the 'memories' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *MemoriesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_memories($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing memories table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table memories")

	return nil
}

// InsertMemory inserts a new memory as version 1 of a fresh lineage
func (h *MemoriesDBHandler) InsertMemory(memory *model.Memory) error {
	if len(memory.UserID) == 0 {
		return helper.NewValidationError("user id", memory.UserID)
	}
	if len(memory.Content) == 0 {
		return helper.NewValidationError("content", memory.Content)
	}
	if memory.Kind != nil && !memory.Kind.Valid() {
		return helper.NewValidationError("kind", *memory.Kind)
	}

	var embedding interface{}
	if len(memory.Embedding) > 0 {
		embedding = pgvector.NewVector(memory.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_memory($1, $2, $3, $4, $5, $6, $7, $8)`,
		memory.UserID,
		memory.Content,
		memory.IsCore,
		pq.Array(memory.ContainerTags),
		memory.Kind,
		memory.SourceDocumentID,
		embedding,
		memory.ExpiresAt,
	)

	inserted, err := scanMemory(row)
	if err != nil {
		return helper.NewError("scan", err)
	}
	*memory = *inserted

	return nil
}

// CreateVersion creates the next version of an existing memory. The new
// version carries forward the prior version's core flag, kind and source
// document; passing nil containerTags keeps the prior tags. A prior that
// is no longer the latest in its lineage, because a concurrent call or a
// retry already versioned it, returns a ConflictError so the lineage
// keeps a single latest head.
func (h *MemoriesDBHandler) CreateVersion(priorID uuid.UUID, content string, embedding []float32, containerTags []string) (*model.Memory, error) {
	if len(content) == 0 {
		return nil, helper.NewValidationError("content", content)
	}

	var embeddingVector interface{}
	if len(embedding) > 0 {
		embeddingVector = pgvector.NewVector(embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM create_memory_version($1, $2, $3, $4)`,
		priorID,
		content,
		embeddingVector,
		pq.Array(containerTags),
	)

	memory, err := scanMemory(row)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", priorID.String())
	}

	return memory, nil
}

// SetForgotten marks a memory as forgotten or restores it. Forgetting
// never deletes the row, it only hides the memory from retrieval.
func (h *MemoriesDBHandler) SetForgotten(id uuid.UUID, forgotten bool) (*model.Memory, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM set_memory_forgotten($1, $2)`,
		id,
		forgotten,
	)

	memory, err := scanMemory(row)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", id.String())
	}

	return memory, nil
}

// SetExpiry sets or clears the decay timestamp of a memory
func (h *MemoriesDBHandler) SetExpiry(id uuid.UUID, expiresAt *time.Time) (*model.Memory, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM set_memory_expiry($1, $2)`,
		id,
		expiresAt,
	)

	memory, err := scanMemory(row)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", id.String())
	}

	return memory, nil
}

// SetKind reclassifies a memory
func (h *MemoriesDBHandler) SetKind(id uuid.UUID, kind model.MemoryKind) (*model.Memory, error) {
	if !kind.Valid() {
		return nil, helper.NewValidationError("kind", kind)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM set_memory_kind($1, $2)`,
		id,
		kind,
	)

	memory, err := scanMemory(row)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", id.String())
	}

	return memory, nil
}

// SelectMemory retrieves a memory by ID
func (h *MemoriesDBHandler) SelectMemory(id uuid.UUID) (*model.Memory, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_memory($1)`,
		id,
	)

	memory, err := scanMemory(row)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", id.String())
	}

	return memory, nil
}

// SelectMemoriesByUser retrieves the latest, not forgotten memories of a
// user, newest first, optionally filtered by kind
func (h *MemoriesDBHandler) SelectMemoriesByUser(userID string, kind *model.MemoryKind, limit int) ([]*model.Memory, error) {
	if kind != nil && !kind.Valid() {
		return nil, helper.NewValidationError("kind", *kind)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_memories_by_user($1, $2, $3)`,
		userID,
		kind,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// SelectMemoryHistory walks the version chain of a memory backwards,
// newest first. Forgotten versions are included, history is an audit view.
func (h *MemoriesDBHandler) SelectMemoryHistory(id uuid.UUID) ([]*model.Memory, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_memory_history($1)`,
		id,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return nil, helper.NewNotFoundError("memory", id.String())
	}

	return memories, nil
}

// SelectExpiredMemories retrieves memories whose decay timestamp has
// passed and that are not yet forgotten
func (h *MemoriesDBHandler) SelectExpiredMemories(userID string) ([]*model.Memory, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_expired_memories($1)`,
		userID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// SelectMemoriesBySimilarity retrieves memories by vector similarity.
// Forgotten memories are always excluded; non-latest versions only match
// when the config includes history. Candidates below the threshold are
// dropped in SQL.
func (h *MemoriesDBHandler) SelectMemoriesBySimilarity(embedding []float32, userID string, config *model.SearchConfig) ([]*model.Memory, error) {
	if len(embedding) == 0 {
		return nil, helper.NewValidationError("embedding", embedding)
	}
	if config == nil {
		config = model.DefaultSearchConfig()
	}
	for _, kind := range config.Kinds {
		if !kind.Valid() {
			return nil, helper.NewValidationError("kind", kind)
		}
	}

	var containerTag interface{}
	if len(config.ContainerTag) > 0 {
		containerTag = config.ContainerTag
	}
	var kinds interface{}
	if len(config.Kinds) > 0 {
		kinds = pq.Array(config.Kinds)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_memories_by_similarity($1, $2, $3, $4, $5, $6, $7)`,
		pgvector.NewVector(embedding),
		userID,
		config.Limit,
		config.Threshold,
		containerTag,
		config.IncludeHistory,
		kinds,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var memories []*model.Memory
	for rows.Next() {
		memory := &model.Memory{}
		var embeddingColumn nullableVector
		var similarity float64
		err := rows.Scan(
			&memory.ID,
			&memory.UserID,
			&memory.Content,
			&memory.IsCore,
			&memory.IsLatest,
			&memory.IsForgotten,
			&memory.Version,
			&memory.PreviousVersionID,
			&memory.SourceDocumentID,
			pq.Array(&memory.ContainerTags),
			&memory.Kind,
			&embeddingColumn,
			&memory.ExpiresAt,
			&memory.CreatedAt,
			&memory.UpdatedAt,
			&similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		memory.Embedding = embeddingColumn.Slice()
		memory.Similarity = &similarity

		memories = append(memories, memory)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return memories, nil
}

// DeleteMemory deletes a memory by ID. This is an administrative purge,
// normal flows forget memories instead.
func (h *MemoriesDBHandler) DeleteMemory(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_memory($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*model.Memory, error) {
	memory := &model.Memory{}
	var embedding nullableVector
	err := row.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.Content,
		&memory.IsCore,
		&memory.IsLatest,
		&memory.IsForgotten,
		&memory.Version,
		&memory.PreviousVersionID,
		&memory.SourceDocumentID,
		pq.Array(&memory.ContainerTags),
		&memory.Kind,
		&embedding,
		&memory.ExpiresAt,
		&memory.CreatedAt,
		&memory.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	memory.Embedding = embedding.Slice()

	return memory, nil
}

func scanMemories(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*model.Memory, error) {
	var memories []*model.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		memories = append(memories, memory)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return memories, nil
}
