package model

// SearchMode selects which candidate sources a search draws from.
type SearchMode string

const (
	SearchModeMemories  SearchMode = "memories"
	SearchModeDocuments SearchMode = "documents"
	SearchModeHybrid    SearchMode = "hybrid"
)

// Valid reports whether the search mode is one of the known values.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeMemories, SearchModeDocuments, SearchModeHybrid:
		return true
	}
	return false
}

// SearchConfig represents configuration for a retrieval query
type SearchConfig struct {
	Mode SearchMode `json:"mode,omitempty"` // defaults to hybrid

	// Ranking parameters
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold,omitempty"` // candidates below are dropped, not de-prioritized
	Rerank    bool    `json:"rerank"`

	// Visibility filtering
	ContainerTag   string       `json:"container_tag,omitempty"`
	IncludeHistory bool         `json:"include_history"` // include non-latest memory versions
	Kinds          []MemoryKind `json:"kinds,omitempty"`
}

// DefaultSearchConfig returns a sensible default configuration
func DefaultSearchConfig() *SearchConfig {
	return &SearchConfig{
		Mode:           SearchModeHybrid,
		Limit:          10,
		Threshold:      0.3,
		Rerank:         false,
		IncludeHistory: false,
	}
}

// RecallConfig represents configuration for context recall
type RecallConfig struct {
	SearchConfig

	IncludeProfile bool `json:"include_profile"`
	ProfileLimit   int  `json:"profile_limit,omitempty"` // max entries per profile section
}

// DefaultRecallConfig returns a sensible default recall configuration
func DefaultRecallConfig() *RecallConfig {
	return &RecallConfig{
		SearchConfig:   *DefaultSearchConfig(),
		IncludeProfile: true,
		ProfileLimit:   10,
	}
}
