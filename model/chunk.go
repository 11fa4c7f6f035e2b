package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents a slice of a document's content with its own embedding
type Chunk struct {
	ID            uuid.UUID `json:"id"`
	DocumentID    uuid.UUID `json:"document_id"`
	UserID        string    `json:"user_id"`
	Content       string    `json:"content"`
	ChunkIndex    int       `json:"chunk_index"`
	Embedding     []float32 `json:"embedding,omitempty"`
	ContainerTags []string  `json:"container_tags,omitempty"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	// Results
	Similarity *float64 `json:"similarity,omitempty"`
}
