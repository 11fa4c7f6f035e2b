package model

import (
	"time"

	"github.com/google/uuid"
)

// LinkType represents the type of relationship between two memories
type LinkType string

const (
	LinkTypeSupersedes LinkType = "supersedes"
	LinkTypeEnriches   LinkType = "enriches"
	LinkTypeInferred   LinkType = "inferred"
)

// Valid reports whether the link type is one of the known values.
func (t LinkType) Valid() bool {
	switch t {
	case LinkTypeSupersedes, LinkTypeEnriches, LinkTypeInferred:
		return true
	}
	return false
}

// MemoryLink represents a directed, confidence-weighted edge between two
// memories. Links are unique per ordered (FromMemory, ToMemory) pair;
// creating a duplicate overwrites type and confidence instead of
// inserting a second row.
type MemoryLink struct {
	ID         uuid.UUID `json:"id"`
	FromMemory uuid.UUID `json:"from_memory"`
	ToMemory   uuid.UUID `json:"to_memory"`
	LinkType   LinkType  `json:"link_type"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// LinkedMemory is a memory link annotated with the opposite endpoint's
// content and forgotten status.
type LinkedMemory struct {
	Link           *MemoryLink `json:"link"`
	OtherMemory    uuid.UUID   `json:"other_memory"`
	OtherContent   string      `json:"other_content"`
	OtherForgotten bool        `json:"other_forgotten"`
}

// LinkCandidate is an unvalidated memory link used as input to batch
// link creation.
type LinkCandidate struct {
	FromMemory uuid.UUID `json:"from_memory"`
	ToMemory   uuid.UUID `json:"to_memory"`
	LinkType   LinkType  `json:"link_type"`
	Confidence float64   `json:"confidence"`
}
