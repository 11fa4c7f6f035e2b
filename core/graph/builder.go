package graph

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/database"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// Builder persists pipeline extraction results into the entity graph:
// it find-or-creates entities, links them to the source memory and
// upserts the relationship edges between them.
type Builder struct {
	entities       database.EntitiesDBHandlerFunctions
	entityLinks    database.EntityLinksDBHandlerFunctions
	memoryEntities database.MemoryEntitiesDBHandlerFunctions
}

// NewBuilder creates a graph builder on top of the entity handlers
func NewBuilder(
	entities database.EntitiesDBHandlerFunctions,
	entityLinks database.EntityLinksDBHandlerFunctions,
	memoryEntities database.MemoryEntitiesDBHandlerFunctions,
) *Builder {
	return &Builder{
		entities:       entities,
		entityLinks:    entityLinks,
		memoryEntities: memoryEntities,
	}
}

// BuildResult summarizes what one ProcessMemory call changed in the graph
type BuildResult struct {
	Entities      []*model.FoundEntity
	MemoryLinks   int
	RelationLinks int
	Skipped       []model.SkippedItem
}

// ProcessMemory persists the extraction output of a single memory.
// Mentions are deduplicated by normalized name before find-or-create, so
// repeated mentions inside one text count as one. Relations referencing
// unresolved names are skipped with a reason, not failed.
func (b *Builder) ProcessMemory(memory *model.Memory, extracted []pipeline.ExtractedEntity, relations []pipeline.ExtractedRelation) (*BuildResult, error) {
	if memory == nil || memory.ID == uuid.Nil {
		return nil, helper.NewValidationError("memory", memory)
	}

	result := &BuildResult{}
	if len(extracted) == 0 {
		return result, nil
	}

	// Deduplicate mentions, first classification wins
	var candidates []model.EntityCandidate
	seen := make(map[string]bool)
	for _, mention := range extracted {
		normalized := model.NormalizeEntityName(mention.Name)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		candidates = append(candidates, model.EntityCandidate{
			Name: mention.Name,
			Type: mention.Type,
		})
	}

	found, skipped, err := b.entities.FindOrCreateEntityBatch(memory.UserID, candidates, memory.ContainerTags)
	if err != nil {
		return nil, err
	}
	result.Entities = found
	result.Skipped = append(result.Skipped, skipped...)

	idsByName := make(map[string]uuid.UUID, len(found))
	entityIDs := make([]uuid.UUID, 0, len(found))
	for _, entity := range found {
		idsByName[model.NormalizeEntityName(entity.Name)] = entity.ID
		entityIDs = append(entityIDs, entity.ID)
	}

	created, linkSkipped, err := b.memoryEntities.LinkMemoryToEntities(memory.ID, entityIDs, model.RoleMentioned)
	if err != nil {
		return nil, err
	}
	result.MemoryLinks = created
	result.Skipped = append(result.Skipped, linkSkipped...)

	for i, relation := range relations {
		fromID, fromOk := idsByName[model.NormalizeEntityName(relation.FromName)]
		toID, toOk := idsByName[model.NormalizeEntityName(relation.ToName)]
		if !fromOk || !toOk {
			result.Skipped = append(result.Skipped, model.SkippedItem{
				Index:  i,
				Reason: fmt.Sprintf("unresolved relation endpoint %q -> %q", relation.FromName, relation.ToName),
			})
			continue
		}
		if fromID == toID {
			result.Skipped = append(result.Skipped, model.SkippedItem{
				Index:  i,
				Reason: fmt.Sprintf("relation endpoints resolve to the same entity %q", relation.FromName),
			})
			continue
		}

		sourceMemory := memory.ID
		err := b.entityLinks.CreateEntityLink(&model.EntityLink{
			UserID:       memory.UserID,
			FromEntity:   fromID,
			ToEntity:     toID,
			Relationship: relation.Relationship,
			Confidence:   relation.Confidence,
			SourceMemory: &sourceMemory,
		})
		if err != nil {
			result.Skipped = append(result.Skipped, model.SkippedItem{
				Index:  i,
				Reason: err.Error(),
			})
			continue
		}
		result.RelationLinks++
	}

	return result, nil
}

// Graph returns a user's top entities by mention count together with the
// relationship edges whose both endpoints are in that set.
func (b *Builder) Graph(userID string, limit int) (*model.GraphResult, error) {
	entities, err := b.entities.SelectTopEntities(userID, limit)
	if err != nil {
		return nil, err
	}

	result := &model.GraphResult{Entities: entities}
	if len(entities) == 0 {
		return result, nil
	}

	entityIDs := make([]uuid.UUID, 0, len(entities))
	for _, entity := range entities {
		entityIDs = append(entityIDs, entity.ID)
	}

	links, err := b.entityLinks.SelectEntityLinksAmong(userID, entityIDs)
	if err != nil {
		return nil, err
	}
	result.Links = links

	return result, nil
}

// Stats aggregates a user's graph by entity type and relationship
func (b *Builder) Stats(userID string) (*model.GraphStats, error) {
	entityCounts, err := b.entities.EntityTypeStats(userID)
	if err != nil {
		return nil, err
	}

	relationshipCounts, err := b.entityLinks.RelationshipStats(userID)
	if err != nil {
		return nil, err
	}

	return &model.GraphStats{
		EntityCounts:       entityCounts,
		RelationshipCounts: relationshipCounts,
	}, nil
}

// SelectEntity resolves a single entity, satisfying EntityGraph
func (b *Builder) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	return b.entities.SelectEntity(id)
}

// SelectEntityRelationships resolves the edges of an entity, satisfying EntityGraph
func (b *Builder) SelectEntityRelationships(id uuid.UUID, direction model.RelationshipDirection) ([]*model.EntityRelationship, error) {
	return b.entityLinks.SelectEntityRelationships(id, direction)
}
