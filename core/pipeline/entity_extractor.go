package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// datePattern supplements the NER model, which has no dedicated date label
var datePattern = regexp.MustCompile(`\b(?:\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:,\s*\d{4})?)\b`)

// DefaultEntityExtractor creates an entity extractor using a NER model.
// Uses distilbert-NER for named entity recognition and a date pattern
// supplement, since the model has no date label.
func DefaultEntityExtractor() (EntityExtractFunc, error) {
	// Prepare model (download if needed)
	// Using KnightsAnalytics optimized distilbert-NER model
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]ExtractedEntity, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		var entities []ExtractedEntity
		if len(result.Entities) > 0 {
			for _, entity := range result.Entities[0] {
				name := strings.TrimSpace(entity.Word)
				if name == "" {
					continue
				}

				entities = append(entities, ExtractedEntity{
					Name:       name,
					Type:       entityTypeFromLabel(entity.Entity),
					Confidence: float64(entity.Score),
					Start:      entity.Start,
					End:        entity.End,
				})
			}
		}

		// Supplement with date mentions the NER model cannot label
		for _, loc := range datePattern.FindAllStringIndex(text, -1) {
			entities = append(entities, ExtractedEntity{
				Name:       text[loc[0]:loc[1]],
				Type:       model.EntityTypeDate,
				Confidence: 0.9,
				Start:      uint(loc[0]),
				End:        uint(loc[1]),
			})
		}

		return entities, nil
	}, nil
}

// entityTypeFromLabel maps NER labels (with their B-/I- BIO prefixes)
// to the entity type enum
func entityTypeFromLabel(label string) model.EntityType {
	label = strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
	switch label {
	case "PER":
		return model.EntityTypePerson
	case "ORG":
		return model.EntityTypeOrganization
	case "LOC":
		return model.EntityTypeLocation
	case "MISC":
		return model.EntityTypeConcept
	default:
		return model.EntityTypeOther
	}
}
