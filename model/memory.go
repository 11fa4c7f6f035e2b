package model

import (
	"time"

	"github.com/google/uuid"
)

// MemoryKind classifies what a memory represents.
type MemoryKind string

const (
	MemoryKindFact       MemoryKind = "fact"
	MemoryKindPreference MemoryKind = "preference"
	MemoryKindEvent      MemoryKind = "event"
)

// Valid reports whether the kind is one of the known values.
func (k MemoryKind) Valid() bool {
	switch k {
	case MemoryKindFact, MemoryKindPreference, MemoryKindEvent:
		return true
	}
	return false
}

// MemoryState is the explicit enumeration of a memory's lifecycle state,
// combining the soft-delete flag with the version-chain position.
type MemoryState string

const (
	MemoryStateActiveLatest        MemoryState = "active_latest"
	MemoryStateActiveSuperseded    MemoryState = "active_superseded"
	MemoryStateForgottenLatest     MemoryState = "forgotten_latest"
	MemoryStateForgottenSuperseded MemoryState = "forgotten_superseded"
)

// Memory represents an atomic fact, preference or event derived from
// ingested content, subject to versioning via PreviousVersionID.
type Memory struct {
	ID                uuid.UUID   `json:"id"`
	UserID            string      `json:"user_id"`
	Content           string      `json:"content"`
	IsCore            bool        `json:"is_core"`
	IsLatest          bool        `json:"is_latest"`
	IsForgotten       bool        `json:"is_forgotten"`
	Version           int         `json:"version"`
	PreviousVersionID *uuid.UUID  `json:"previous_version_id,omitempty"`
	SourceDocumentID  *uuid.UUID  `json:"source_document_id,omitempty"`
	ContainerTags     []string    `json:"container_tags,omitempty"`
	Kind              *MemoryKind `json:"kind,omitempty"`
	Embedding         []float32   `json:"embedding,omitempty"`
	ExpiresAt         *time.Time  `json:"expires_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	// Results
	Similarity *float64 `json:"similarity,omitempty"`
}

// State returns the lifecycle state of the memory.
func (m *Memory) State() MemoryState {
	switch {
	case m.IsForgotten && m.IsLatest:
		return MemoryStateForgottenLatest
	case m.IsForgotten:
		return MemoryStateForgottenSuperseded
	case m.IsLatest:
		return MemoryStateActiveLatest
	default:
		return MemoryStateActiveSuperseded
	}
}

// Expired reports whether the memory has a decay timestamp in the past
// and has not yet been forgotten.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now) && !m.IsForgotten
}
