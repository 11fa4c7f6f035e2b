package pipeline

import "github.com/siherrmann/memograph/model"

// ChunkFunc is a function that splits text into ordered chunk pieces
type ChunkFunc func(text string) ([]ChunkPiece, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// EntityExtractFunc extracts named entities from text
// Returns the mentions with their types and character positions
type EntityExtractFunc func(text string) ([]ExtractedEntity, error)

// RelationExtractFunc extracts relationships between previously extracted entities
// Returns relation candidates referencing entities by name
type RelationExtractFunc func(text string, entities []ExtractedEntity) ([]ExtractedRelation, error)

// ChunkPiece represents one chunk of a larger text with its position
type ChunkPiece struct {
	Content    string
	ChunkIndex int
	StartPos   int
	EndPos     int
	Metadata   map[string]interface{}
}

// ExtractedEntity is a raw entity mention found in text, before
// deduplication against the entity store
type ExtractedEntity struct {
	Name       string
	Type       model.EntityType
	Confidence float64
	Start      uint
	End        uint
}

// ExtractedRelation is a relationship candidate between two extracted
// entities, referenced by name
type ExtractedRelation struct {
	FromName     string
	ToName       string
	Relationship string
	Confidence   float64
}

// Pipeline combines chunking, embedding and graph extraction functions
type Pipeline struct {
	Chunker           ChunkFunc
	Embedder          EmbedFunc
	EntityExtractor   EntityExtractFunc   // Optional
	RelationExtractor RelationExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetEntityExtractor sets the entity extraction function
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// SetRelationExtractor sets the relation extraction function
func (p *Pipeline) SetRelationExtractor(extractor RelationExtractFunc) {
	p.RelationExtractor = extractor
}

// ProcessDocument splits text into chunks and generates an embedding per chunk.
// The returned chunks carry content, index and embedding; document and user
// assignment is left to the caller.
func (p *Pipeline) ProcessDocument(text string) ([]*model.Chunk, error) {
	pieces, err := p.Chunker(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		embedding, err := p.Embedder(piece.Content)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, &model.Chunk{
			Content:    piece.Content,
			ChunkIndex: piece.ChunkIndex,
			Embedding:  embedding,
			Metadata:   piece.Metadata,
		})
	}

	return chunks, nil
}

// ExtractGraph runs entity and relation extraction over a single text.
// Extractors are optional; a missing extractor yields empty results for
// its stage, and relation extraction is skipped when no entities were found.
func (p *Pipeline) ExtractGraph(text string) ([]ExtractedEntity, []ExtractedRelation, error) {
	if p.EntityExtractor == nil {
		return nil, nil, nil
	}

	entities, err := p.EntityExtractor(text)
	if err != nil {
		return nil, nil, err
	}
	if len(entities) == 0 {
		return nil, nil, nil
	}

	var relations []ExtractedRelation
	if p.RelationExtractor != nil {
		relations, err = p.RelationExtractor(text, entities)
		if err != nil {
			return entities, nil, err
		}
	}

	return entities, relations, nil
}
