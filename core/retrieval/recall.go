package retrieval

import (
	"context"
	"strings"

	"github.com/siherrmann/memograph/model"
)

// profileWindow is how many recent memories the profile split scans.
// Core facts beyond the window do not make it into the static section.
const profileWindow = 100

// Recall runs a search and assembles the ordered text context other
// components consume: an optional profile section (static core facts,
// then dynamic recent context) followed by the relevant memories in
// rank order. The concatenation order is a contract.
func (e *Engine) Recall(ctx context.Context, userID string, query string, embedding []float32, config *model.RecallConfig) (*model.RecallResponse, error) {
	if config == nil {
		config = model.DefaultRecallConfig()
	}

	searchResponse, err := e.Search(ctx, userID, query, embedding, &config.SearchConfig)
	if err != nil {
		return nil, err
	}

	var profile *model.Profile
	if config.IncludeProfile {
		profile, err = e.Profile(ctx, userID, config.ProfileLimit)
		if err != nil {
			return nil, err
		}
	}

	return &model.RecallResponse{
		Results: searchResponse.Results,
		Context: assembleContext(profile, searchResponse.Results),
		Profile: profile,
	}, nil
}

// Profile splits a user's recent latest memories into the static core
// facts and the dynamic non-core context, each capped at limit entries.
func (e *Engine) Profile(ctx context.Context, userID string, limit int) (*model.Profile, error) {
	if limit <= 0 {
		limit = model.DefaultRecallConfig().ProfileLimit
	}

	memories, err := e.memories.SelectMemoriesByUser(userID, nil, profileWindow)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{}
	for _, memory := range memories {
		if memory.IsCore {
			if len(profile.Static) < limit {
				profile.Static = append(profile.Static, memory.Content)
			}
		} else {
			if len(profile.Dynamic) < limit {
				profile.Dynamic = append(profile.Dynamic, memory.Content)
			}
		}
	}

	return profile, nil
}

// assembleContext builds the recall context text. Profile first (static
// facts, then dynamic recent context), relevant memories last, each hit
// as one line in rank order.
func assembleContext(profile *model.Profile, results []*model.SearchResult) string {
	var sections []string

	if profile != nil {
		if len(profile.Static) > 0 {
			sections = append(sections, "User profile:\n"+bulletList(profile.Static))
		}
		if len(profile.Dynamic) > 0 {
			sections = append(sections, "Recent context:\n"+bulletList(profile.Dynamic))
		}
	}

	if len(results) > 0 {
		var lines []string
		for _, result := range results {
			if text := resultText(result); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) > 0 {
			sections = append(sections, "Relevant memories:\n"+bulletList(lines))
		}
	}

	return strings.Join(sections, "\n\n")
}

func bulletList(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}
