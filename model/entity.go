package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType classifies a named entity.
type EntityType string

const (
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypeLocation     EntityType = "location"
	EntityTypeDate         EntityType = "date"
	EntityTypeConcept      EntityType = "concept"
	EntityTypeOther        EntityType = "other"
)

// Valid reports whether the entity type is one of the known values.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePerson, EntityTypeOrganization, EntityTypeLocation,
		EntityTypeDate, EntityTypeConcept, EntityTypeOther:
		return true
	}
	return false
}

// Entity represents a named real-world object extracted from memory
// content. Entities are unique per (UserID, NormalizedName); re-mentions
// increment MentionCount instead of creating duplicate rows.
type Entity struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name"`
	Type           EntityType `json:"entity_type"`
	Attributes     Metadata   `json:"attributes,omitempty"`
	MentionCount   int        `json:"mention_count"`
	ContainerTags  []string   `json:"container_tags,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NormalizeEntityName lowercases, trims and collapses inner whitespace so
// that case and spacing variants of a name resolve to the same entity.
func NormalizeEntityName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// EntityLink represents a directed relationship between two entities.
// Duplicate (FromEntity, ToEntity, Relationship) triples collapse to one
// edge keeping the maximum observed confidence.
type EntityLink struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"user_id"`
	FromEntity   uuid.UUID  `json:"from_entity"`
	ToEntity     uuid.UUID  `json:"to_entity"`
	Relationship string     `json:"relationship"`
	Confidence   float64    `json:"confidence"`
	SourceMemory *uuid.UUID `json:"source_memory,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MemoryEntityRole describes how an entity appears in a memory.
type MemoryEntityRole string

const (
	RoleSubject   MemoryEntityRole = "subject"
	RoleObject    MemoryEntityRole = "object"
	RoleMentioned MemoryEntityRole = "mentioned"
)

// Valid reports whether the role is one of the known values.
func (r MemoryEntityRole) Valid() bool {
	switch r {
	case RoleSubject, RoleObject, RoleMentioned:
		return true
	}
	return false
}

// MemoryEntity is the junction between a memory and an entity it
// mentions. Unique per (MemoryID, EntityID); the first recorded role wins.
type MemoryEntity struct {
	ID        uuid.UUID        `json:"id"`
	MemoryID  uuid.UUID        `json:"memory_id"`
	EntityID  uuid.UUID        `json:"entity_id"`
	Role      MemoryEntityRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// EntityCandidate is an unresolved entity mention used as input to batch
// find-or-create.
type EntityCandidate struct {
	Name string     `json:"name"`
	Type EntityType `json:"entity_type"`
}

// FoundEntity is the per-candidate result of find-or-create.
type FoundEntity struct {
	Name  string    `json:"name"`
	ID    uuid.UUID `json:"id"`
	IsNew bool      `json:"is_new"`
}

// EntityRelationship is an entity link annotated with the resolved
// neighboring entity and direction.
type EntityRelationship struct {
	Link       *EntityLink `json:"link"`
	Neighbor   *Entity     `json:"neighbor"`
	IsOutgoing bool        `json:"is_outgoing"`
}

// RelationshipDirection selects which edges of an entity to return.
type RelationshipDirection string

const (
	DirectionOutgoing RelationshipDirection = "outgoing"
	DirectionIncoming RelationshipDirection = "incoming"
	DirectionBoth     RelationshipDirection = "both"
)
