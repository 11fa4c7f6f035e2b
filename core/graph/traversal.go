package graph

import (
	"github.com/google/uuid"
	"github.com/siherrmann/memograph/model"
)

// EntityGraph defines the read interface traversal runs against.
// Builder satisfies it.
type EntityGraph interface {
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityRelationships(id uuid.UUID, direction model.RelationshipDirection) ([]*model.EntityRelationship, error)
}

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Path     []uuid.UUID // Path from source to this entity
}

// relationshipAllowed reports whether an edge passes the relationship filter.
// An empty filter allows everything.
func relationshipAllowed(relationship string, relationships []string) bool {
	if len(relationships) == 0 {
		return true
	}
	for _, allowed := range relationships {
		if relationship == allowed {
			return true
		}
	}
	return false
}

// BFS performs breadth-first search from a source entity, following edges
// in the given direction up to maxHops. The source itself is the first result.
func BFS(db EntityGraph, sourceID uuid.UUID, maxHops int, relationships []string, direction model.RelationshipDirection) ([]*TraversalResult, error) {
	sourceEntity, err := db.SelectEntity(sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []TraversalResult{{
		Entity:   sourceEntity,
		Distance: 0,
		Path:     []uuid.UUID{sourceID},
	}}

	var results []*TraversalResult

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		edges, err := db.SelectEntityRelationships(current.Entity.ID, direction)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			if edge.Neighbor == nil || !relationshipAllowed(edge.Link.Relationship, relationships) {
				continue
			}

			targetID := edge.Neighbor.ID
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			// Create new path
			newPath := make([]uuid.UUID, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   edge.Neighbor,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(db EntityGraph, sourceID uuid.UUID, maxHops int, relationships []string, direction model.RelationshipDirection) ([]*TraversalResult, error) {
	sourceEntity, err := db.SelectEntity(sourceID)
	if err != nil {
		return nil, err
	}

	visited := make(map[uuid.UUID]bool)
	var results []*TraversalResult

	dfsRecursive(db, sourceEntity, 0, maxHops, []uuid.UUID{sourceID}, relationships, direction, visited, &results)

	return results, nil
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	db EntityGraph,
	current *model.Entity,
	distance int,
	maxHops int,
	path []uuid.UUID,
	relationships []string,
	direction model.RelationshipDirection,
	visited map[uuid.UUID]bool,
	results *[]*TraversalResult,
) {
	visited[current.ID] = true

	pathCopy := make([]uuid.UUID, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Entity:   current,
		Distance: distance,
		Path:     pathCopy,
	})

	// Stop if we've reached max hops
	if distance >= maxHops {
		return
	}

	edges, err := db.SelectEntityRelationships(current.ID, direction)
	if err != nil {
		return
	}

	for _, edge := range edges {
		if edge.Neighbor == nil || !relationshipAllowed(edge.Link.Relationship, relationships) {
			continue
		}

		targetID := edge.Neighbor.ID
		if visited[targetID] {
			continue
		}

		newPath := make([]uuid.UUID, len(path))
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(db, edge.Neighbor, distance+1, maxHops, newPath, relationships, direction, visited, results)
	}
}

// Neighbors retrieves immediate neighbors (1-hop) of an entity
func Neighbors(db EntityGraph, entityID uuid.UUID, relationships []string, direction model.RelationshipDirection) ([]*model.Entity, error) {
	results, err := BFS(db, entityID, 1, relationships, direction)
	if err != nil {
		return nil, err
	}

	// Skip the source entity itself (first result)
	neighbors := make([]*model.Entity, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Entity)
	}

	return neighbors, nil
}
