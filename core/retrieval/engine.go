package retrieval

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/database"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// Engine provides hybrid retrieval over memories and document chunks
type Engine struct {
	memories       database.MemoriesDBHandlerFunctions
	chunks         database.ChunksDBHandlerFunctions
	documents      database.DocumentsDBHandlerFunctions
	memoryLinks    database.MemoryLinksDBHandlerFunctions
	memoryEntities database.MemoryEntitiesDBHandlerFunctions
	reranker       Reranker
}

// NewEngine creates a new retrieval engine with the lexical reranker
func NewEngine(
	memories database.MemoriesDBHandlerFunctions,
	chunks database.ChunksDBHandlerFunctions,
	documents database.DocumentsDBHandlerFunctions,
	memoryLinks database.MemoryLinksDBHandlerFunctions,
	memoryEntities database.MemoryEntitiesDBHandlerFunctions,
) *Engine {
	return &Engine{
		memories:       memories,
		chunks:         chunks,
		documents:      documents,
		memoryLinks:    memoryLinks,
		memoryEntities: memoryEntities,
		reranker:       NewLexicalReranker(),
	}
}

// SetReranker replaces the reranker used when config.Rerank is set
func (e *Engine) SetReranker(reranker Reranker) {
	e.reranker = reranker
}

// Search runs a similarity search in the requested mode. Hybrid (the
// default) merges memory and document candidates, sorts by score and
// truncates to the limit. The reranker reorders the returned window
// only when config.Rerank is set.
func (e *Engine) Search(ctx context.Context, userID string, query string, embedding []float32, config *model.SearchConfig) (*model.SearchResponse, error) {
	if len(embedding) == 0 {
		return nil, helper.NewValidationError("embedding", embedding)
	}

	effective := model.DefaultSearchConfig()
	if config != nil {
		copied := *config
		effective = &copied
	}
	if effective.Mode == "" {
		effective.Mode = model.SearchModeHybrid
	}
	if !effective.Mode.Valid() {
		return nil, helper.NewValidationError("mode", effective.Mode)
	}
	if effective.Limit <= 0 {
		effective.Limit = model.DefaultSearchConfig().Limit
	}

	var results []*model.SearchResult
	var err error
	switch effective.Mode {
	case model.SearchModeMemories:
		results, err = e.memoryResults(userID, embedding, effective)
	case model.SearchModeDocuments:
		results, err = e.documentResults(userID, embedding, effective)
	case model.SearchModeHybrid:
		var memoryHits, documentHits []*model.SearchResult
		memoryHits, err = e.memoryResults(userID, embedding, effective)
		if err == nil {
			documentHits, err = e.documentResults(userID, embedding, effective)
			results = append(memoryHits, documentHits...)
		}
	}
	if err != nil {
		return nil, err
	}

	results = sortAndTruncate(results, effective.Limit)

	if effective.Rerank && e.reranker != nil {
		results = e.reranker.Rerank(query, results)
	}

	return &model.SearchResponse{
		Results: results,
		Total:   len(results),
	}, nil
}

// memoryResults retrieves memory hits by vector similarity
func (e *Engine) memoryResults(userID string, embedding []float32, config *model.SearchConfig) ([]*model.SearchResult, error) {
	memories, err := e.memories.SelectMemoriesBySimilarity(embedding, userID, config)
	if err != nil {
		return nil, err
	}

	results := make([]*model.SearchResult, 0, len(memories))
	for _, memory := range memories {
		similarity := 0.0
		if memory.Similarity != nil {
			similarity = *memory.Similarity
		}
		results = append(results, &model.SearchResult{
			Source:     model.ResultSourceMemory,
			Memory:     memory,
			Score:      similarity,
			Similarity: similarity,
		})
	}

	return results, nil
}

// documentResults retrieves chunk hits by vector similarity and groups
// them per parent document, re-assembled in chunk order. A document
// scores as its best matching chunk.
func (e *Engine) documentResults(userID string, embedding []float32, config *model.SearchConfig) ([]*model.SearchResult, error) {
	chunks, err := e.chunks.SelectChunksBySimilarity(embedding, userID, config)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]*model.Chunk)
	var order []uuid.UUID
	for _, chunk := range chunks {
		if _, exists := grouped[chunk.DocumentID]; !exists {
			order = append(order, chunk.DocumentID)
		}
		grouped[chunk.DocumentID] = append(grouped[chunk.DocumentID], chunk)
	}

	results := make([]*model.SearchResult, 0, len(order))
	for _, documentID := range order {
		doc, err := e.documents.SelectDocument(documentID)
		if helper.IsNotFound(err) {
			// Chunk of a concurrently deleted document, skip it
			continue
		}
		if err != nil {
			return nil, err
		}

		documentChunks := grouped[documentID]
		best := 0.0
		for _, chunk := range documentChunks {
			if chunk.Similarity != nil && *chunk.Similarity > best {
				best = *chunk.Similarity
			}
		}
		sort.SliceStable(documentChunks, func(i, j int) bool {
			return documentChunks[i].ChunkIndex < documentChunks[j].ChunkIndex
		})

		results = append(results, &model.SearchResult{
			Source:     model.ResultSourceDocument,
			Document:   doc,
			Chunks:     documentChunks,
			Score:      best,
			Similarity: best,
		})
	}

	return results, nil
}

// MemoriesAbout retrieves the memories mentioning an entity, newest
// first, forgotten excluded
func (e *Engine) MemoriesAbout(ctx context.Context, entityID uuid.UUID, limit int) ([]*model.Memory, error) {
	return e.memoryEntities.SelectMemoriesForEntity(entityID, limit)
}

// Related returns a memory's link neighborhood in both directions,
// optionally filtered by link type
func (e *Engine) Related(ctx context.Context, memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error) {
	outgoing, err := e.memoryLinks.SelectLinksFrom(memoryID, linkType)
	if err != nil {
		return nil, err
	}
	incoming, err := e.memoryLinks.SelectLinksTo(memoryID, linkType)
	if err != nil {
		return nil, err
	}
	return append(outgoing, incoming...), nil
}

// sortAndTruncate orders results by score descending and limits them
func sortAndTruncate(results []*model.SearchResult, limit int) []*model.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}
