package memograph

import (
	"context"
	"log"
	"strings"
	"testing"

	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

const testEmbeddingDim = 3

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

// testEmbedder maps known topics onto fixed axes so similarity
// is deterministic without a model
func testEmbedder() pipeline.EmbedFunc {
	return func(text string) ([]float32, error) {
		lowered := strings.ToLower(text)
		switch {
		case strings.Contains(lowered, "acme"):
			return []float32{1, 0, 0}, nil
		case strings.Contains(lowered, "globex"):
			return []float32{0, 1, 0}, nil
		default:
			return []float32{0, 0, 1}, nil
		}
	}
}

// testEntityExtractor finds a fixed set of names by substring match
func testEntityExtractor() pipeline.EntityExtractFunc {
	known := map[string]model.EntityType{
		"Alice":  model.EntityTypePerson,
		"Acme":   model.EntityTypeOrganization,
		"Globex": model.EntityTypeOrganization,
		"Berlin": model.EntityTypeLocation,
	}

	return func(text string) ([]pipeline.ExtractedEntity, error) {
		var entities []pipeline.ExtractedEntity
		for name, entityType := range known {
			index := strings.Index(text, name)
			if index < 0 {
				continue
			}
			entities = append(entities, pipeline.ExtractedEntity{
				Name:       name,
				Type:       entityType,
				Confidence: 0.9,
				Start:      uint(index),
				End:        uint(index + len(name)),
			})
		}
		return entities, nil
	}
}

func testPipeline() *pipeline.Pipeline {
	p := pipeline.NewPipeline(pipeline.SentenceChunker(2), testEmbedder())
	p.SetEntityExtractor(testEntityExtractor())
	p.SetRelationExtractor(pipeline.DefaultRelationExtractor())
	return p
}

func initMemograph(t *testing.T) *Memograph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	m, err := New(dbConfig, testEmbeddingDim)
	require.NoError(t, err, "failed to create memograph")
	require.NotNil(t, m, "expected memograph to be non-nil")
	m.SetPipeline(testPipeline())

	t.Cleanup(func() {
		m.Close()
	})

	return m
}
