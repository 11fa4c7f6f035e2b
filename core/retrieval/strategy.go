package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"github.com/siherrmann/memograph/model"
)

// Reranker reorders a search result window against the query text.
// It only sees the already-retrieved window, never the full corpus.
type Reranker interface {
	Rerank(query string, results []*model.SearchResult) []*model.SearchResult
}

// LexicalReranker blends vector similarity with lexical token overlap
// between the query and the result text. Cheap, no model required.
type LexicalReranker struct {
	// LexicalWeight is the share of the lexical overlap in the final
	// score, the remainder stays with the vector similarity.
	LexicalWeight float64
}

// NewLexicalReranker creates a reranker with an even similarity/overlap split
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{LexicalWeight: 0.5}
}

// Rerank reorders the results by the blended score. The input slice is
// not modified.
func (r *LexicalReranker) Rerank(query string, results []*model.SearchResult) []*model.SearchResult {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return results
	}

	reranked := make([]*model.SearchResult, len(results))
	for i, result := range results {
		overlap := lexicalOverlap(queryTokens, resultText(result))
		blended := *result
		blended.Score = (1-r.LexicalWeight)*result.Similarity + r.LexicalWeight*overlap
		reranked[i] = &blended
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return reranked
}

// resultText extracts the text a result is judged on: memory content,
// or document title plus matched chunk contents
func resultText(result *model.SearchResult) string {
	switch result.Source {
	case model.ResultSourceMemory:
		if result.Memory != nil {
			return result.Memory.Content
		}
	case model.ResultSourceDocument:
		var parts []string
		if result.Document != nil {
			parts = append(parts, result.Document.Title)
		}
		for _, chunk := range result.Chunks {
			parts = append(parts, chunk.Content)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// tokenize lowercases text and splits it on non-letter, non-digit runes
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[token] = true
	}
	return tokens
}

// lexicalOverlap is the share of query tokens found in the text
func lexicalOverlap(queryTokens map[string]bool, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	textTokens := tokenize(text)
	matched := 0
	for token := range queryTokens {
		if textTokens[token] {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}
