package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndexType(t *testing.T) {
	database := initDB(t)

	memoriesDbHandler := initMemoriesHandler(t, database)
	_, chunksDbHandler := initChunksHandler(t, database)

	ctx := context.Background()

	t.Run("Change memories index to HNSW with default params", func(t *testing.T) {
		err := memoriesDbHandler.ChangeIndexType(ctx, "hnsw", map[string]interface{}{})
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw to not return an error")
	})

	t.Run("Change memories index to HNSW with custom params", func(t *testing.T) {
		params := map[string]interface{}{
			"m":               32,
			"ef_construction": 128,
		}
		err := memoriesDbHandler.ChangeIndexType(ctx, "hnsw", params)
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw with custom params to not return an error")
	})

	t.Run("Change memories index to IVFFlat", func(t *testing.T) {
		err := memoriesDbHandler.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{"lists": 200})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat to not return an error")
	})

	t.Run("Change chunks index to IVFFlat with default params", func(t *testing.T) {
		err := chunksDbHandler.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat to not return an error")
	})

	t.Run("Change index with unsupported index type", func(t *testing.T) {
		err := memoriesDbHandler.ChangeIndexType(ctx, "invalid", map[string]interface{}{})
		assert.Error(t, err, "Expected error when using unsupported index type")
		assert.Contains(t, err.Error(), "unsupported index type", "Expected error message to mention unsupported index type")
	})

	t.Run("Change indexes back to HNSW for cleanup", func(t *testing.T) {
		params := map[string]interface{}{
			"m":               16,
			"ef_construction": 64,
		}
		err := memoriesDbHandler.ChangeIndexType(ctx, "hnsw", params)
		require.NoError(t, err, "Expected ChangeIndexType to hnsw for cleanup to not return an error")
		err = chunksDbHandler.ChangeIndexType(ctx, "hnsw", params)
		require.NoError(t, err, "Expected ChangeIndexType to hnsw for cleanup to not return an error")
	})
}
