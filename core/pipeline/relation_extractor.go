package pipeline

import (
	"regexp"
	"strings"
)

// relationPattern maps a surface text pattern between two entity
// mentions to a relationship name
type relationPattern struct {
	pattern      *regexp.Regexp
	relationship string
}

// relationPatterns match the connecting text between two entity
// mentions. Matched pairs get a named relationship instead of the
// generic co-occurrence edge.
var relationPatterns = []relationPattern{
	{regexp.MustCompile(`(?i)\b(?:works?|working|employed)\s+(?:at|for|with)\b`), "works_at"},
	{regexp.MustCompile(`(?i)\b(?:lives?|living|based|located)\s+(?:in|at|near)\b`), "located_in"},
	{regexp.MustCompile(`(?i)\b(?:founded|started|created|launched)\b`), "founded"},
	{regexp.MustCompile(`(?i)\b(?:married\s+to|partner\s+of|friends?\s+with|knows)\b`), "knows"},
	{regexp.MustCompile(`(?i)\b(?:part\s+of|belongs\s+to|member\s+of|joined)\b`), "member_of"},
	{regexp.MustCompile(`(?i)\b(?:manages|leads|heads|reports\s+to)\b`), "reports_to"},
}

// coOccurrenceWindow is the maximum character distance between two
// entity mentions for a generic co-occurrence relation
const coOccurrenceWindow = 100

// DefaultRelationExtractor creates a relation extractor that combines
// verb pattern matching with proximity-based co-occurrence. Mentions
// joined by a recognized pattern get a named relationship; mentions
// merely close to each other get a lower-confidence "mentioned_with".
func DefaultRelationExtractor() RelationExtractFunc {
	return func(text string, entities []ExtractedEntity) ([]ExtractedRelation, error) {
		if len(entities) < 2 {
			return nil, nil
		}

		var relations []ExtractedRelation

		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				first, second := entities[i], entities[j]
				if first.Start > second.Start {
					first, second = second, first
				}
				if strings.EqualFold(first.Name, second.Name) {
					continue
				}

				distance := int(second.Start) - int(first.End)
				if distance < 0 {
					distance = 0
				}

				// Text between the two mentions decides the relationship
				between := ""
				if int(first.End) < len(text) && int(second.Start) <= len(text) && first.End < second.Start {
					between = text[first.End:second.Start]
				}

				if relationship, ok := matchRelationPattern(between); ok {
					relations = append(relations, ExtractedRelation{
						FromName:     first.Name,
						ToName:       second.Name,
						Relationship: relationship,
						Confidence:   patternConfidence(first, second),
					})
					continue
				}

				if distance < coOccurrenceWindow {
					relations = append(relations, ExtractedRelation{
						FromName:     first.Name,
						ToName:       second.Name,
						Relationship: "mentioned_with",
						Confidence:   coOccurrenceConfidence(distance),
					})
				}
			}
		}

		return relations, nil
	}
}

// matchRelationPattern returns the first relationship whose pattern
// matches the text between two mentions
func matchRelationPattern(between string) (string, bool) {
	if strings.TrimSpace(between) == "" {
		return "", false
	}
	for _, rp := range relationPatterns {
		if rp.pattern.MatchString(between) {
			return rp.relationship, true
		}
	}
	return "", false
}

// patternConfidence scales a pattern match by the extraction confidence
// of both mentions
func patternConfidence(a, b ExtractedEntity) float64 {
	confidence := 0.9 * a.Confidence * b.Confidence
	if confidence > 1 {
		return 1
	}
	return confidence
}

// coOccurrenceConfidence calculates relation confidence based on entity proximity.
// Closer entities get higher confidence:
// at distance 0 the confidence is 0.5, falling linearly to 0 at two windows.
func coOccurrenceConfidence(distance int) float64 {
	confidence := 0.5 * (1.0 - float64(distance)/float64(2*coOccurrenceWindow))
	if confidence < 0 {
		return 0
	}
	return confidence
}
