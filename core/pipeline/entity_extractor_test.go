package pipeline

import (
	"testing"

	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityTypeFromLabel(t *testing.T) {
	t.Run("Known labels", func(t *testing.T) {
		assert.Equal(t, model.EntityTypePerson, entityTypeFromLabel("PER"))
		assert.Equal(t, model.EntityTypeOrganization, entityTypeFromLabel("ORG"))
		assert.Equal(t, model.EntityTypeLocation, entityTypeFromLabel("LOC"))
		assert.Equal(t, model.EntityTypeConcept, entityTypeFromLabel("MISC"))
	})

	t.Run("BIO prefixes are stripped", func(t *testing.T) {
		assert.Equal(t, model.EntityTypePerson, entityTypeFromLabel("B-PER"))
		assert.Equal(t, model.EntityTypePerson, entityTypeFromLabel("I-PER"))
		assert.Equal(t, model.EntityTypeOrganization, entityTypeFromLabel("B-ORG"))
	})

	t.Run("Unknown labels map to other", func(t *testing.T) {
		assert.Equal(t, model.EntityTypeOther, entityTypeFromLabel("UNKNOWN"))
		assert.Equal(t, model.EntityTypeOther, entityTypeFromLabel(""))
	})
}

func TestDatePattern(t *testing.T) {
	t.Run("Matches common date formats", func(t *testing.T) {
		assert.True(t, datePattern.MatchString("Meeting on 2024-03-15 at noon"))
		assert.True(t, datePattern.MatchString("Deadline is 15.03.2024"))
		assert.True(t, datePattern.MatchString("Born on January 5, 1990"))
		assert.True(t, datePattern.MatchString("See you March 12"))
	})

	t.Run("Ignores plain numbers", func(t *testing.T) {
		assert.False(t, datePattern.MatchString("There were 42 attendees"))
		assert.False(t, datePattern.MatchString("No dates here"))
	})
}

func TestDefaultEntityExtractor(t *testing.T) {
	// Note: DefaultEntityExtractor uses hugot which requires downloading models
	if testing.Short() {
		t.Skip("Skipping DefaultEntityExtractor test in short mode (requires model download)")
	}

	extractor, err := DefaultEntityExtractor()
	require.NoError(t, err, "Expected DefaultEntityExtractor to not return an error")

	t.Run("Extracts named entities with positions", func(t *testing.T) {
		entities, err := extractor("Angela Merkel visited Microsoft in Berlin.")
		require.NoError(t, err)
		require.NotEmpty(t, entities, "Expected at least one entity")

		for _, entity := range entities {
			assert.NotEmpty(t, entity.Name)
			assert.True(t, entity.Type.Valid(), "Expected a known entity type, got %v", entity.Type)
			assert.Greater(t, entity.Confidence, 0.0)
			assert.GreaterOrEqual(t, entity.End, entity.Start)
		}
	})

	t.Run("Date supplement labels dates", func(t *testing.T) {
		entities, err := extractor("The contract was signed on 2023-11-02.")
		require.NoError(t, err)

		var foundDate bool
		for _, entity := range entities {
			if entity.Type == model.EntityTypeDate {
				foundDate = true
				assert.Equal(t, "2023-11-02", entity.Name)
			}
		}
		assert.True(t, foundDate, "Expected the date mention to be extracted")
	})

	t.Run("Text without entities", func(t *testing.T) {
		entities, err := extractor("it was raining again")
		require.NoError(t, err)
		assert.Empty(t, entities)
	})
}
