package pipeline

import (
	"testing"

	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractedEntity(name string, entityType model.EntityType, start uint) ExtractedEntity {
	return ExtractedEntity{
		Name:       name,
		Type:       entityType,
		Confidence: 0.95,
		Start:      start,
		End:        start + uint(len(name)),
	}
}

func TestDefaultRelationExtractor(t *testing.T) {
	extractor := DefaultRelationExtractor()

	t.Run("Pattern match produces named relationship", func(t *testing.T) {
		text := "Alice works at Acme Corp."
		entities := []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
			extractedEntity("Acme Corp", model.EntityTypeOrganization, 15),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.Equal(t, "Alice", relations[0].FromName)
		assert.Equal(t, "Acme Corp", relations[0].ToName)
		assert.Equal(t, "works_at", relations[0].Relationship)
		assert.Greater(t, relations[0].Confidence, 0.5, "Expected pattern matches to outrank co-occurrence")
	})

	t.Run("Location pattern", func(t *testing.T) {
		text := "Bob lives in Berlin."
		entities := []ExtractedEntity{
			extractedEntity("Bob", model.EntityTypePerson, 0),
			extractedEntity("Berlin", model.EntityTypeLocation, 13),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.Equal(t, "located_in", relations[0].Relationship)
	})

	t.Run("Plain co-occurrence falls back to mentioned_with", func(t *testing.T) {
		text := "Alice, Acme and coffee."
		entities := []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
			extractedEntity("Acme", model.EntityTypeOrganization, 7),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.Equal(t, "mentioned_with", relations[0].Relationship)
		assert.LessOrEqual(t, relations[0].Confidence, 0.5)
		assert.Greater(t, relations[0].Confidence, 0.0)
	})

	t.Run("Distant mentions produce no relation", func(t *testing.T) {
		filler := make([]byte, 150)
		for i := range filler {
			filler[i] = 'x'
		}
		text := "Alice " + string(filler) + " Acme"
		entities := []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
			extractedEntity("Acme", model.EntityTypeOrganization, uint(len(text)-4)),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		assert.Empty(t, relations, "Expected no relation beyond the co-occurrence window")
	})

	t.Run("Mentions out of order are normalized by position", func(t *testing.T) {
		text := "Alice works at Acme Corp."
		entities := []ExtractedEntity{
			extractedEntity("Acme Corp", model.EntityTypeOrganization, 15),
			extractedEntity("Alice", model.EntityTypePerson, 0),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.Equal(t, "Alice", relations[0].FromName, "Expected the earlier mention as source")
	})

	t.Run("Duplicate mention names are skipped", func(t *testing.T) {
		text := "Alice saw alice."
		entities := []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
			extractedEntity("alice", model.EntityTypePerson, 10),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		assert.Empty(t, relations)
	})

	t.Run("Fewer than two entities", func(t *testing.T) {
		text := "Alice is here."
		relations, err := extractor(text, []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
		})

		require.NoError(t, err)
		assert.Empty(t, relations)

		relations, err = extractor(text, nil)
		require.NoError(t, err)
		assert.Empty(t, relations)
	})

	t.Run("Three entities produce pairwise relations", func(t *testing.T) {
		text := "Alice met Bob and Carol."
		entities := []ExtractedEntity{
			extractedEntity("Alice", model.EntityTypePerson, 0),
			extractedEntity("Bob", model.EntityTypePerson, 10),
			extractedEntity("Carol", model.EntityTypePerson, 18),
		}

		relations, err := extractor(text, entities)

		require.NoError(t, err)
		assert.Len(t, relations, 3, "Expected one relation per entity pair")
	})
}

func TestCoOccurrenceConfidence(t *testing.T) {
	t.Run("Adjacent mentions score highest", func(t *testing.T) {
		assert.InDelta(t, 0.5, coOccurrenceConfidence(0), 0.001)
	})

	t.Run("Confidence decreases with distance", func(t *testing.T) {
		assert.Greater(t, coOccurrenceConfidence(10), coOccurrenceConfidence(90))
	})

	t.Run("Confidence never goes negative", func(t *testing.T) {
		assert.Equal(t, 0.0, coOccurrenceConfidence(1000))
	})
}

func TestPatternConfidence(t *testing.T) {
	t.Run("Scales with mention confidence", func(t *testing.T) {
		strong := ExtractedEntity{Confidence: 1.0}
		weak := ExtractedEntity{Confidence: 0.5}

		assert.InDelta(t, 0.9, patternConfidence(strong, strong), 0.001)
		assert.Greater(t, patternConfidence(strong, strong), patternConfidence(strong, weak))
	})

	t.Run("Capped at one", func(t *testing.T) {
		overconfident := ExtractedEntity{Confidence: 1.5}
		assert.LessOrEqual(t, patternConfidence(overconfident, overconfident), 1.0)
	})
}
