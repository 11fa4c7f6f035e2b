package model

// ResultSource describes which candidate pool a search result came from.
type ResultSource string

const (
	ResultSourceMemory   ResultSource = "memory"
	ResultSourceDocument ResultSource = "document"
)

// SearchResult represents one ranked hit of a hybrid search. Exactly one
// of Memory or Document is set depending on Source; document hits carry
// their matched chunks re-assembled in chunk order.
type SearchResult struct {
	Source     ResultSource `json:"source"`
	Memory     *Memory      `json:"memory,omitempty"`
	Document   *Document    `json:"document,omitempty"`
	Chunks     []*Chunk     `json:"chunks,omitempty"`
	Score      float64      `json:"score"`
	Similarity float64      `json:"similarity"`
}

// SearchResponse bundles ranked results with the total hit count.
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Total   int             `json:"total"`
}

// Profile is the static/dynamic split of a user's memory profile.
// Static holds core facts, Dynamic holds recent non-core context.
type Profile struct {
	Static  []string `json:"static"`
	Dynamic []string `json:"dynamic"`
}

// RecallResponse bundles ranked results with the assembled text context
// and the optional profile split.
type RecallResponse struct {
	Results []*SearchResult `json:"results"`
	Context string          `json:"context"`
	Profile *Profile        `json:"profile,omitempty"`
}

// SkippedItem records one batch entry that failed validation and was
// skipped, for debuggability of the lenient batch contract.
type SkippedItem struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchLinkResult carries the outcome of a best-effort batch link
// creation: succeeded links plus the skipped entries.
type BatchLinkResult struct {
	Succeeded []*MemoryLink `json:"succeeded"`
	Skipped   []SkippedItem `json:"skipped"`
}

// CreatedCount returns the number of links created, the aggregate the
// bulk-inference callers rely on.
func (r *BatchLinkResult) CreatedCount() int {
	return len(r.Succeeded)
}

// GraphResult is the top-N entity subgraph of a user: the highest
// mention-count entities plus the relationship edges whose both
// endpoints are in that set.
type GraphResult struct {
	Entities []*Entity     `json:"entities"`
	Links    []*EntityLink `json:"links"`
}

// GraphStats aggregates a user's graph by entity type and relationship.
type GraphStats struct {
	EntityCounts       map[EntityType]int `json:"entity_counts"`
	RelationshipCounts map[string]int     `json:"relationship_counts"`
}
