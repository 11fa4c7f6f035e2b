package memograph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/graph"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/core/retrieval"
	"github.com/siherrmann/memograph/database"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// Memograph provides a unified interface to the memory store, the
// entity graph and the retrieval engine.
type Memograph struct {
	DB             *helper.Database
	Memories       *database.MemoriesDBHandler
	MemoryLinks    *database.MemoryLinksDBHandler
	Documents      *database.DocumentsDBHandler
	Chunks         *database.ChunksDBHandler
	Entities       *database.EntitiesDBHandler
	EntityLinks    *database.EntityLinksDBHandler
	MemoryEntities *database.MemoryEntitiesDBHandler
	Pipeline       *pipeline.Pipeline // Optional extraction pipeline
	Engine         *retrieval.Engine  // Retrieval engine for hybrid search
	Graph          *graph.Builder     // Entity graph builder
	// Logging
	log *slog.Logger
}

// IngestResult summarizes what a single memory ingestion changed.
type IngestResult struct {
	Memory   *model.Memory
	Entities []*model.FoundEntity
	Skipped  []model.SkippedItem
}

// New creates a new Memograph instance with all handlers initialized
func New(config *helper.DatabaseConfiguration, embeddingDim int) (*Memograph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("memograph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (documents before memories
	// and chunks, entities before entity links and memory entities).
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	memories, err := database.NewMemoriesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create memories handler", err)
	}

	memoryLinks, err := database.NewMemoryLinksDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create memory links handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	entityLinks, err := database.NewEntityLinksDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entity links handler", err)
	}

	memoryEntities, err := database.NewMemoryEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create memory entities handler", err)
	}

	engine := retrieval.NewEngine(memories, chunks, documents, memoryLinks, memoryEntities)
	builder := graph.NewBuilder(entities, entityLinks, memoryEntities)

	return &Memograph{
		DB:             db,
		Memories:       memories,
		MemoryLinks:    memoryLinks,
		Documents:      documents,
		Chunks:         chunks,
		Entities:       entities,
		EntityLinks:    entityLinks,
		MemoryEntities: memoryEntities,
		Engine:         engine,
		Graph:          builder,
		log:            logger,
	}, nil
}

// Close closes the database connection
func (m *Memograph) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the extraction pipeline for memory and document ingestion
func (m *Memograph) SetPipeline(pipeline *pipeline.Pipeline) {
	m.Pipeline = pipeline
}

// UseDefaultPipeline sets up the default pipeline: sentence chunking,
// all-MiniLM-L6-v2 embeddings (384 dimensions), distilbert NER entity
// extraction and pattern based relation extraction. Downloads the models
// on first use.
func (m *Memograph) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	entityExtractor, err := pipeline.DefaultEntityExtractor()
	if err != nil {
		return helper.NewError("create default entity extractor", err)
	}

	p := pipeline.NewPipeline(pipeline.DefaultChunker(), embedder)
	p.SetEntityExtractor(entityExtractor)
	p.SetRelationExtractor(pipeline.DefaultRelationExtractor())

	m.Pipeline = p
	return nil
}

// IngestMemory inserts a memory and feeds its content through the
// extraction pipeline into the entity graph. When the memory carries no
// embedding yet, one is generated from its content. Unresolvable graph
// pieces are skipped with a reason, they never fail the ingestion.
func (m *Memograph) IngestMemory(memory *model.Memory) (*IngestResult, error) {
	if m.Pipeline == nil {
		return nil, helper.NewError("ingest memory", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	if len(memory.Embedding) == 0 && m.Pipeline.Embedder != nil {
		embedding, err := m.Pipeline.Embedder(memory.Content)
		if err != nil {
			return nil, helper.NewError("generate embedding", err)
		}
		memory.Embedding = embedding
	}

	if err := m.Memories.InsertMemory(memory); err != nil {
		return nil, err
	}

	m.log.Info("Inserted memory", slog.String("memory_id", memory.ID.String()), slog.String("user_id", memory.UserID))

	entities, relations, err := m.Pipeline.ExtractGraph(memory.Content)
	if err != nil {
		return nil, helper.NewError("extract graph", err)
	}

	buildResult, err := m.Graph.ProcessMemory(memory, entities, relations)
	if err != nil {
		return nil, helper.NewError("build graph", err)
	}

	m.log.Info("Processed memory into graph",
		slog.Int("num_entities", len(buildResult.Entities)),
		slog.Int("num_relations", buildResult.RelationLinks),
		slog.String("memory_id", memory.ID.String()),
	)

	return &IngestResult{
		Memory:   memory,
		Entities: buildResult.Entities,
		Skipped:  buildResult.Skipped,
	}, nil
}

// ReviseMemory creates a new version of an existing memory and links the
// new version to the prior one with a supersedes link. The new version
// is fed through the extraction pipeline like a fresh ingestion.
func (m *Memograph) ReviseMemory(priorID uuid.UUID, content string) (*model.Memory, error) {
	if m.Pipeline == nil {
		return nil, helper.NewError("revise memory", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	var embedding []float32
	if m.Pipeline.Embedder != nil {
		var err error
		embedding, err = m.Pipeline.Embedder(content)
		if err != nil {
			return nil, helper.NewError("generate embedding", err)
		}
	}

	revised, err := m.Memories.CreateVersion(priorID, content, embedding, nil)
	if err != nil {
		return nil, err
	}

	if _, err := m.MemoryLinks.CreateLink(revised.ID, priorID, model.LinkTypeSupersedes, 1.0); err != nil {
		return nil, helper.NewError("link superseded version", err)
	}

	m.log.Info("Revised memory",
		slog.String("prior_id", priorID.String()),
		slog.String("memory_id", revised.ID.String()),
		slog.Int("version", revised.Version),
	)

	entities, relations, err := m.Pipeline.ExtractGraph(revised.Content)
	if err != nil {
		return nil, helper.NewError("extract graph", err)
	}
	if _, err := m.Graph.ProcessMemory(revised, entities, relations); err != nil {
		return nil, helper.NewError("build graph", err)
	}

	return revised, nil
}

// ProcessAndInsertDocument processes a document by:
// 1. Inserting the document metadata (without content)
// 2. Processing the content into embedded chunks using the pipeline
// 3. Inserting all chunks with the document ID
// The document's Content field is used for processing but not stored in
// the database. Returns the number of chunks inserted.
func (m *Memograph) ProcessAndInsertDocument(doc *model.Document) (int, error) {
	if m.Pipeline == nil {
		return 0, helper.NewError("process document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	if doc.Content == "" {
		return 0, helper.NewError("process document", fmt.Errorf("document content is empty"))
	}

	// Store content temporarily and clear it before DB insert
	content := doc.Content
	doc.Content = ""

	if err := m.Documents.InsertDocument(doc); err != nil {
		return 0, helper.NewError("insert document", err)
	}

	m.log.Info("Inserted document", slog.String("document_id", doc.ID.String()), slog.String("title", doc.Title))

	chunks, err := m.Pipeline.ProcessDocument(content)
	if err != nil {
		return 0, helper.NewError("process chunks", err)
	}

	m.log.Info("Processed document into chunks", slog.Int("num_chunks", len(chunks)), slog.String("document_id", doc.ID.String()))

	for i, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.UserID = doc.UserID
		chunk.ContainerTags = doc.ContainerTags
		if err := m.Chunks.InsertChunk(chunk); err != nil {
			return i, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	return len(chunks), nil
}

// Search embeds the query and performs similarity search over memories,
// documents or both, depending on the config mode
func (m *Memograph) Search(ctx context.Context, userID string, query string, config *model.SearchConfig) (*model.SearchResponse, error) {
	embedding, err := m.queryEmbedding(query)
	if err != nil {
		return nil, err
	}
	return m.Engine.Search(ctx, userID, query, embedding, config)
}

// Recall embeds the query and assembles a ready to use context string
// from the user's profile and the most relevant memories
func (m *Memograph) Recall(ctx context.Context, userID string, query string, config *model.RecallConfig) (*model.RecallResponse, error) {
	embedding, err := m.queryEmbedding(query)
	if err != nil {
		return nil, err
	}
	return m.Engine.Recall(ctx, userID, query, embedding, config)
}

// Related returns the memories linked to the given memory, optionally
// filtered by link type
func (m *Memograph) Related(ctx context.Context, memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error) {
	return m.Engine.Related(ctx, memoryID, linkType)
}

// MemoriesAbout returns the latest memories mentioning the given entity
func (m *Memograph) MemoriesAbout(ctx context.Context, entityID uuid.UUID, limit int) ([]*model.Memory, error) {
	return m.Engine.MemoriesAbout(ctx, entityID, limit)
}

// EntityGraph returns the user's most mentioned entities and the
// relationships among them
func (m *Memograph) EntityGraph(userID string, limit int) (*model.GraphResult, error) {
	return m.Graph.Graph(userID, limit)
}

// GraphStats returns entity and relationship counts for a user
func (m *Memograph) GraphStats(userID string) (*model.GraphStats, error) {
	return m.Graph.Stats(userID)
}

// BFSTraversal performs breadth-first traversal from an entity
func (m *Memograph) BFSTraversal(sourceID uuid.UUID, maxHops int, relationships []string, direction model.RelationshipDirection) ([]*graph.TraversalResult, error) {
	return graph.BFS(m.Graph, sourceID, maxHops, relationships, direction)
}

// DFSTraversal performs depth-first traversal from an entity
func (m *Memograph) DFSTraversal(sourceID uuid.UUID, maxHops int, relationships []string, direction model.RelationshipDirection) ([]*graph.TraversalResult, error) {
	return graph.DFS(m.Graph, sourceID, maxHops, relationships, direction)
}

// ForgetExpired marks all of a user's expired memories as forgotten and
// returns how many were flipped
func (m *Memograph) ForgetExpired(userID string) (int, error) {
	expired, err := m.Memories.SelectExpiredMemories(userID)
	if err != nil {
		return 0, err
	}

	forgotten := 0
	for _, memory := range expired {
		if _, err := m.Memories.SetForgotten(memory.ID, true); err != nil {
			return forgotten, helper.NewError(fmt.Sprintf("forget memory %s", memory.ID), err)
		}
		forgotten++
	}

	if forgotten > 0 {
		m.log.Info("Forgot expired memories", slog.Int("count", forgotten), slog.String("user_id", userID))
	}

	return forgotten, nil
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
// on both the memories and chunks tables
func (m *Memograph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	if err := m.Memories.ChangeIndexType(ctx, indexType, params); err != nil {
		return err
	}
	return m.Chunks.ChangeIndexType(ctx, indexType, params)
}

func (m *Memograph) queryEmbedding(query string) ([]float32, error) {
	if m.Engine == nil {
		return nil, helper.NewError("search", fmt.Errorf("retrieval engine not initialized"))
	}
	if m.Pipeline == nil || m.Pipeline.Embedder == nil {
		return nil, helper.NewError("search", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	embedding, err := m.Pipeline.Embedder(query)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}
	return embedding, nil
}
