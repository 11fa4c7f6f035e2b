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

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	SelectChunk(id uuid.UUID) (*model.Chunk, error)
	SelectChunksByDocument(documentID uuid.UUID) ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, userID string, config *model.SearchConfig) ([]*model.Chunk, error)
	DeleteChunk(id uuid.UUID) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing chunks table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	if len(chunk.UserID) == 0 {
		return helper.NewValidationError("user id", chunk.UserID)
	}
	if len(chunk.Content) == 0 {
		return helper.NewValidationError("content", chunk.Content)
	}

	var embedding interface{}
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7)`,
		chunk.DocumentID,
		chunk.UserID,
		chunk.Content,
		chunk.ChunkIndex,
		embedding,
		pq.Array(chunk.ContainerTags),
		chunk.Metadata,
	)

	inserted, err := scanChunk(row)
	if err != nil {
		return notFoundOrScan(err, "document", chunk.DocumentID.String())
	}
	*chunk = *inserted

	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id uuid.UUID) (*model.Chunk, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	chunk, err := scanChunk(row)
	if err != nil {
		return nil, notFoundOrScan(err, "chunk", id.String())
	}

	return chunk, nil
}

// SelectChunksByDocument retrieves the chunks of a document in chunk order
func (h *ChunksDBHandler) SelectChunksByDocument(documentID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_document($1)`,
		documentID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity retrieves chunks by vector similarity,
// scoped to a user and the config's container tag. Candidates below the
// threshold are dropped in SQL.
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, userID string, config *model.SearchConfig) ([]*model.Chunk, error) {
	if len(embedding) == 0 {
		return nil, helper.NewValidationError("embedding", embedding)
	}
	if config == nil {
		config = model.DefaultSearchConfig()
	}

	var containerTag interface{}
	if len(config.ContainerTag) > 0 {
		containerTag = config.ContainerTag
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4, $5)`,
		pgvector.NewVector(embedding),
		userID,
		config.Limit,
		config.Threshold,
		containerTag,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var embeddingColumn nullableVector
		var similarity float64
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.UserID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&embeddingColumn,
			pq.Array(&chunk.ContainerTags),
			&chunk.Metadata,
			&chunk.CreatedAt,
			&similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		chunk.Embedding = embeddingColumn.Slice()
		chunk.Similarity = &similarity

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// DeleteChunk deletes a chunk by ID
func (h *ChunksDBHandler) DeleteChunk(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunk($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanChunk(row rowScanner) (*model.Chunk, error) {
	chunk := &model.Chunk{}
	var embedding nullableVector
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.UserID,
		&chunk.Content,
		&chunk.ChunkIndex,
		&embedding,
		pq.Array(&chunk.ContainerTags),
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	chunk.Embedding = embedding.Slice()

	return chunk, nil
}
