package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoriesNewMemoriesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewMemoriesDBHandler", func(t *testing.T) {
		memoriesDbHandler := initMemoriesHandler(t, database)
		require.NotNil(t, memoriesDbHandler, "Expected NewMemoriesDBHandler to return a non-nil instance")
		require.NotNil(t, memoriesDbHandler.db, "Expected NewMemoriesDBHandler to have a non-nil database instance")
		require.NotNil(t, memoriesDbHandler.db.Instance, "Expected NewMemoriesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewMemoriesDBHandler with nil database", func(t *testing.T) {
		_, err := NewMemoriesDBHandler(nil, testEmbeddingDim, false)
		assert.Error(t, err, "Expected error when creating MemoriesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestMemoriesInsert(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	t.Run("Insert memory", func(t *testing.T) {
		kind := model.MemoryKindPreference
		memory := &model.Memory{
			UserID:        "user-insert",
			Content:       "Prefers dark mode in all editors",
			Kind:          &kind,
			ContainerTags: []string{"workspace-a"},
			Embedding:     []float32{1, 0, 0},
		}

		err := memoriesDbHandler.InsertMemory(memory)
		assert.NoError(t, err, "Expected InsertMemory to not return an error")
		assert.NotEmpty(t, memory.ID, "Expected inserted memory to have an ID")
		assert.Equal(t, 1, memory.Version, "Expected a fresh memory to start at version 1")
		assert.True(t, memory.IsLatest, "Expected a fresh memory to be the latest version")
		assert.False(t, memory.IsForgotten, "Expected a fresh memory to not be forgotten")
		assert.Nil(t, memory.PreviousVersionID, "Expected a fresh memory to have no previous version")
		assert.Equal(t, model.MemoryStateActiveLatest, memory.State(), "Expected a fresh memory to be active and latest")
		require.NotNil(t, memory.Kind)
		assert.Equal(t, model.MemoryKindPreference, *memory.Kind, "Expected kind to survive the round trip")
		assert.Equal(t, []string{"workspace-a"}, memory.ContainerTags, "Expected container tags to survive the round trip")
		assert.WithinDuration(t, memory.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Insert memory without embedding", func(t *testing.T) {
		memory := &model.Memory{
			UserID:  "user-insert",
			Content: "Memory without an embedding",
		}

		err := memoriesDbHandler.InsertMemory(memory)
		assert.NoError(t, err, "Expected InsertMemory to accept a missing embedding")
		assert.Empty(t, memory.Embedding, "Expected the embedding to stay empty")
	})

	t.Run("Invalid insert with empty content", func(t *testing.T) {
		memory := &model.Memory{
			UserID: "user-insert",
		}

		err := memoriesDbHandler.InsertMemory(memory)
		assert.Error(t, err, "Expected error for empty content")
		assert.True(t, helper.IsValidation(err), "Expected a validation error for empty content")
	})

	t.Run("Invalid insert with empty user id", func(t *testing.T) {
		memory := &model.Memory{
			Content: "Some content",
		}

		err := memoriesDbHandler.InsertMemory(memory)
		assert.Error(t, err, "Expected error for empty user id")
		assert.True(t, helper.IsValidation(err), "Expected a validation error for empty user id")
	})

	t.Run("Invalid insert with unknown kind", func(t *testing.T) {
		kind := model.MemoryKind("opinion")
		memory := &model.Memory{
			UserID:  "user-insert",
			Content: "Some content",
			Kind:    &kind,
		}

		err := memoriesDbHandler.InsertMemory(memory)
		assert.Error(t, err, "Expected error for unknown kind")
		assert.True(t, helper.IsValidation(err), "Expected a validation error for unknown kind")
	})
}

func TestMemoriesCreateVersion(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	kind := model.MemoryKindFact
	prior := &model.Memory{
		UserID:        "user-version",
		Content:       "Works at Acme",
		IsCore:        true,
		Kind:          &kind,
		ContainerTags: []string{"job"},
		Embedding:     []float32{1, 0, 0},
	}
	err := memoriesDbHandler.InsertMemory(prior)
	require.NoError(t, err)

	t.Run("Create version supersedes prior", func(t *testing.T) {
		revised, err := memoriesDbHandler.CreateVersion(prior.ID, "Works at Globex", []float32{0, 1, 0}, nil)
		assert.NoError(t, err, "Expected CreateVersion to not return an error")
		require.NotNil(t, revised)
		assert.Equal(t, 2, revised.Version, "Expected the new version to increment the counter")
		assert.True(t, revised.IsLatest, "Expected the new version to be the latest")
		require.NotNil(t, revised.PreviousVersionID)
		assert.Equal(t, prior.ID, *revised.PreviousVersionID, "Expected the new version to point at the prior")
		assert.True(t, revised.IsCore, "Expected the core flag to carry forward")
		require.NotNil(t, revised.Kind)
		assert.Equal(t, model.MemoryKindFact, *revised.Kind, "Expected the kind to carry forward")
		assert.Equal(t, []string{"job"}, revised.ContainerTags, "Expected nil tags to keep the prior tags")

		// The prior version is no longer latest but still readable.
		superseded, err := memoriesDbHandler.SelectMemory(prior.ID)
		require.NoError(t, err)
		assert.False(t, superseded.IsLatest, "Expected the prior version to lose the latest flag")
		assert.Equal(t, model.MemoryStateActiveSuperseded, superseded.State(), "Expected the prior version to be active but superseded")
	})

	t.Run("Create version with new container tags", func(t *testing.T) {
		memory := &model.Memory{
			UserID:        "user-version",
			Content:       "Lives in Berlin",
			ContainerTags: []string{"home"},
			Embedding:     []float32{0, 0, 1},
		}
		require.NoError(t, memoriesDbHandler.InsertMemory(memory))

		revised, err := memoriesDbHandler.CreateVersion(memory.ID, "Lives in Hamburg", []float32{0, 1, 1}, []string{"relocation"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"relocation"}, revised.ContainerTags, "Expected explicit tags to replace the prior tags")
	})

	t.Run("Create version of superseded prior", func(t *testing.T) {
		original := &model.Memory{
			UserID:    "user-version-stale",
			Content:   "Drinks tea in the morning",
			Embedding: []float32{1, 0, 0},
		}
		require.NoError(t, memoriesDbHandler.InsertMemory(original))

		revised, err := memoriesDbHandler.CreateVersion(original.ID, "Drinks coffee in the morning", []float32{0, 1, 0}, nil)
		require.NoError(t, err)

		// A serialized concurrent call or a retry still holds the stale
		// prior id. It must be rejected instead of growing a second
		// latest head in the lineage.
		_, err = memoriesDbHandler.CreateVersion(original.ID, "Drinks mate in the morning", []float32{0, 0, 1}, nil)
		assert.Error(t, err, "Expected error for a prior that was already superseded")
		assert.True(t, helper.IsConflict(err), "Expected a conflict error for a superseded prior")

		latest, err := memoriesDbHandler.SelectMemoriesByUser("user-version-stale", nil, 10)
		require.NoError(t, err)
		require.Len(t, latest, 1, "Expected exactly one latest memory in the lineage")
		assert.Equal(t, revised.ID, latest[0].ID, "Expected the first revision to stay the latest head")

		history, err := memoriesDbHandler.SelectMemoryHistory(revised.ID)
		require.NoError(t, err)
		assert.Len(t, history, 2, "Expected the rejected call to insert no version")
	})

	t.Run("Create version of missing memory", func(t *testing.T) {
		_, err := memoriesDbHandler.CreateVersion(uuid.New(), "Does not matter", []float32{1, 0, 0}, nil)
		assert.Error(t, err, "Expected error for a missing prior memory")
		assert.True(t, helper.IsNotFound(err), "Expected a not found error for a missing prior memory")
	})

	t.Run("Invalid create version with empty content", func(t *testing.T) {
		_, err := memoriesDbHandler.CreateVersion(prior.ID, "", []float32{1, 0, 0}, nil)
		assert.Error(t, err, "Expected error for empty content")
		assert.True(t, helper.IsValidation(err), "Expected a validation error for empty content")
	})
}

func TestMemoriesSetForgotten(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	memory := &model.Memory{
		UserID:    "user-forget",
		Content:   "Old phone number",
		Embedding: []float32{1, 0, 0},
	}
	require.NoError(t, memoriesDbHandler.InsertMemory(memory))

	t.Run("Forget memory", func(t *testing.T) {
		forgotten, err := memoriesDbHandler.SetForgotten(memory.ID, true)
		assert.NoError(t, err, "Expected SetForgotten to not return an error")
		assert.True(t, forgotten.IsForgotten, "Expected the memory to be forgotten")
		assert.Equal(t, model.MemoryStateForgottenLatest, forgotten.State(), "Expected forgotten latest state")
	})

	t.Run("Restore memory", func(t *testing.T) {
		restored, err := memoriesDbHandler.SetForgotten(memory.ID, false)
		assert.NoError(t, err, "Expected SetForgotten to not return an error")
		assert.False(t, restored.IsForgotten, "Expected the memory to be restored")
	})

	t.Run("Forget missing memory", func(t *testing.T) {
		_, err := memoriesDbHandler.SetForgotten(uuid.New(), true)
		assert.Error(t, err, "Expected error for a missing memory")
		assert.True(t, helper.IsNotFound(err), "Expected a not found error for a missing memory")
	})
}

func TestMemoriesSetExpiry(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	memory := &model.Memory{
		UserID:    "user-expiry",
		Content:   "Visiting the dentist on Friday",
		Embedding: []float32{1, 0, 0},
	}
	require.NoError(t, memoriesDbHandler.InsertMemory(memory))

	t.Run("Set expiry", func(t *testing.T) {
		expiresAt := time.Now().Add(-time.Hour)
		updated, err := memoriesDbHandler.SetExpiry(memory.ID, &expiresAt)
		assert.NoError(t, err, "Expected SetExpiry to not return an error")
		require.NotNil(t, updated.ExpiresAt)
		assert.True(t, updated.Expired(time.Now()), "Expected the memory to count as expired")
	})

	t.Run("Expired memories show up in the sweep view", func(t *testing.T) {
		expired, err := memoriesDbHandler.SelectExpiredMemories("user-expiry")
		assert.NoError(t, err)
		require.Len(t, expired, 1, "Expected exactly one expired memory")
		assert.Equal(t, memory.ID, expired[0].ID)
	})

	t.Run("Clear expiry", func(t *testing.T) {
		updated, err := memoriesDbHandler.SetExpiry(memory.ID, nil)
		assert.NoError(t, err)
		assert.Nil(t, updated.ExpiresAt, "Expected the expiry to be cleared")

		expired, err := memoriesDbHandler.SelectExpiredMemories("user-expiry")
		assert.NoError(t, err)
		assert.Empty(t, expired, "Expected no expired memories after clearing")
	})

	t.Run("Set expiry on missing memory", func(t *testing.T) {
		expiresAt := time.Now()
		_, err := memoriesDbHandler.SetExpiry(uuid.New(), &expiresAt)
		assert.Error(t, err)
		assert.True(t, helper.IsNotFound(err), "Expected a not found error for a missing memory")
	})
}

func TestMemoriesSetKind(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	memory := &model.Memory{
		UserID:    "user-kind",
		Content:   "Enjoys long trail runs",
		Embedding: []float32{1, 0, 0},
	}
	require.NoError(t, memoriesDbHandler.InsertMemory(memory))

	t.Run("Set kind", func(t *testing.T) {
		updated, err := memoriesDbHandler.SetKind(memory.ID, model.MemoryKindPreference)
		assert.NoError(t, err, "Expected SetKind to not return an error")
		require.NotNil(t, updated.Kind)
		assert.Equal(t, model.MemoryKindPreference, *updated.Kind)
	})

	t.Run("Invalid kind", func(t *testing.T) {
		_, err := memoriesDbHandler.SetKind(memory.ID, model.MemoryKind("opinion"))
		assert.Error(t, err)
		assert.True(t, helper.IsValidation(err), "Expected a validation error for an unknown kind")
	})

	t.Run("Set kind on missing memory", func(t *testing.T) {
		_, err := memoriesDbHandler.SetKind(uuid.New(), model.MemoryKindFact)
		assert.Error(t, err)
		assert.True(t, helper.IsNotFound(err), "Expected a not found error for a missing memory")
	})
}

func TestMemoriesSelectByUser(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	fact := model.MemoryKindFact
	preference := model.MemoryKindPreference

	first := &model.Memory{UserID: "user-list", Content: "Works at Acme", Kind: &fact, Embedding: []float32{1, 0, 0}}
	second := &model.Memory{UserID: "user-list", Content: "Prefers tea over coffee", Kind: &preference, Embedding: []float32{0, 1, 0}}
	third := &model.Memory{UserID: "user-list", Content: "Met Alice yesterday", Embedding: []float32{0, 0, 1}}
	require.NoError(t, memoriesDbHandler.InsertMemory(first))
	require.NoError(t, memoriesDbHandler.InsertMemory(second))
	require.NoError(t, memoriesDbHandler.InsertMemory(third))

	t.Run("Select all latest memories", func(t *testing.T) {
		memories, err := memoriesDbHandler.SelectMemoriesByUser("user-list", nil, 10)
		assert.NoError(t, err)
		assert.Len(t, memories, 3, "Expected all latest memories")
	})

	t.Run("Filter by kind", func(t *testing.T) {
		memories, err := memoriesDbHandler.SelectMemoriesByUser("user-list", &preference, 10)
		assert.NoError(t, err)
		require.Len(t, memories, 1, "Expected only the preference memory")
		assert.Equal(t, second.ID, memories[0].ID)
	})

	t.Run("Forgotten memories are excluded", func(t *testing.T) {
		_, err := memoriesDbHandler.SetForgotten(third.ID, true)
		require.NoError(t, err)

		memories, err := memoriesDbHandler.SelectMemoriesByUser("user-list", nil, 10)
		assert.NoError(t, err)
		assert.Len(t, memories, 2, "Expected forgotten memories to be excluded")
	})

	t.Run("Superseded memories are excluded", func(t *testing.T) {
		_, err := memoriesDbHandler.CreateVersion(first.ID, "Works at Globex", []float32{1, 1, 0}, nil)
		require.NoError(t, err)

		memories, err := memoriesDbHandler.SelectMemoriesByUser("user-list", nil, 10)
		assert.NoError(t, err)
		assert.Len(t, memories, 2, "Expected only latest versions")
		for _, memory := range memories {
			assert.True(t, memory.IsLatest, "Expected every listed memory to be the latest version")
		}
	})

	t.Run("Unknown user yields empty list", func(t *testing.T) {
		memories, err := memoriesDbHandler.SelectMemoriesByUser("user-unknown", nil, 10)
		assert.NoError(t, err, "Expected an empty list, not an error")
		assert.Empty(t, memories)
	})
}

func TestMemoriesHistory(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	first := &model.Memory{UserID: "user-history", Content: "Works at Acme", Embedding: []float32{1, 0, 0}}
	require.NoError(t, memoriesDbHandler.InsertMemory(first))
	second, err := memoriesDbHandler.CreateVersion(first.ID, "Works at Globex", []float32{0, 1, 0}, nil)
	require.NoError(t, err)
	third, err := memoriesDbHandler.CreateVersion(second.ID, "Works at Initech", []float32{0, 0, 1}, nil)
	require.NoError(t, err)

	t.Run("History walks the full lineage newest first", func(t *testing.T) {
		history, err := memoriesDbHandler.SelectMemoryHistory(third.ID)
		assert.NoError(t, err, "Expected SelectMemoryHistory to not return an error")
		require.Len(t, history, 3, "Expected the full lineage")
		assert.Equal(t, third.ID, history[0].ID)
		assert.Equal(t, second.ID, history[1].ID)
		assert.Equal(t, first.ID, history[2].ID)
		assert.Equal(t, 3, history[0].Version)
		assert.Equal(t, 1, history[2].Version)
	})

	t.Run("History from the middle of a lineage", func(t *testing.T) {
		history, err := memoriesDbHandler.SelectMemoryHistory(second.ID)
		assert.NoError(t, err)
		require.Len(t, history, 2, "Expected the lineage up to the requested version")
		assert.Equal(t, second.ID, history[0].ID)
		assert.Equal(t, first.ID, history[1].ID)
	})

	t.Run("History includes forgotten versions", func(t *testing.T) {
		_, err := memoriesDbHandler.SetForgotten(first.ID, true)
		require.NoError(t, err)

		history, err := memoriesDbHandler.SelectMemoryHistory(third.ID)
		assert.NoError(t, err)
		assert.Len(t, history, 3, "Expected forgotten versions to stay visible in history")
	})

	t.Run("History of missing memory", func(t *testing.T) {
		_, err := memoriesDbHandler.SelectMemoryHistory(uuid.New())
		assert.Error(t, err)
		assert.True(t, helper.IsNotFound(err), "Expected a not found error for a missing memory")
	})
}

func TestMemoriesSelectBySimilarity(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	fact := model.MemoryKindFact
	event := model.MemoryKindEvent

	nearby := &model.Memory{UserID: "user-sim", Content: "Works at Acme", Kind: &fact, ContainerTags: []string{"job"}, Embedding: []float32{1, 0, 0}}
	distant := &model.Memory{UserID: "user-sim", Content: "Saw a concert", Kind: &event, Embedding: []float32{0, 1, 0}}
	require.NoError(t, memoriesDbHandler.InsertMemory(nearby))
	require.NoError(t, memoriesDbHandler.InsertMemory(distant))

	query := []float32{1, 0, 0}

	t.Run("Similarity search ranks and filters by threshold", func(t *testing.T) {
		config := model.DefaultSearchConfig()
		config.Threshold = 0.5

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err, "Expected SelectMemoriesBySimilarity to not return an error")
		require.Len(t, memories, 1, "Expected the orthogonal memory to be dropped by the threshold")
		assert.Equal(t, nearby.ID, memories[0].ID)
		require.NotNil(t, memories[0].Similarity)
		assert.InDelta(t, 1.0, *memories[0].Similarity, 0.001, "Expected an identical vector to score 1")
	})

	t.Run("Zero threshold returns both", func(t *testing.T) {
		config := model.DefaultSearchConfig()
		config.Threshold = 0

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		require.Len(t, memories, 2)
		assert.Equal(t, nearby.ID, memories[0].ID, "Expected the closest memory first")
	})

	t.Run("Container tag filter", func(t *testing.T) {
		config := model.DefaultSearchConfig()
		config.Threshold = 0
		config.ContainerTag = "job"

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		require.Len(t, memories, 1, "Expected only the tagged memory")
		assert.Equal(t, nearby.ID, memories[0].ID)
	})

	t.Run("Kind filter", func(t *testing.T) {
		config := model.DefaultSearchConfig()
		config.Threshold = 0
		config.Kinds = []model.MemoryKind{model.MemoryKindEvent}

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		require.Len(t, memories, 1, "Expected only the event memory")
		assert.Equal(t, distant.ID, memories[0].ID)
	})

	t.Run("Forgotten memories never match", func(t *testing.T) {
		_, err := memoriesDbHandler.SetForgotten(distant.ID, true)
		require.NoError(t, err)

		config := model.DefaultSearchConfig()
		config.Threshold = 0
		config.IncludeHistory = true

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		for _, memory := range memories {
			assert.False(t, memory.IsForgotten, "Expected forgotten memories to stay hidden even with history")
		}
	})

	t.Run("Superseded versions only match with history", func(t *testing.T) {
		_, err := memoriesDbHandler.CreateVersion(nearby.ID, "Works at Globex", []float32{1, 0, 0}, nil)
		require.NoError(t, err)

		config := model.DefaultSearchConfig()
		config.Threshold = 0.5

		memories, err := memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		require.Len(t, memories, 1, "Expected only the latest version without history")
		assert.True(t, memories[0].IsLatest)

		config.IncludeHistory = true
		memories, err = memoriesDbHandler.SelectMemoriesBySimilarity(query, "user-sim", config)
		assert.NoError(t, err)
		assert.Len(t, memories, 2, "Expected the superseded version with history")
	})

	t.Run("Invalid search with empty embedding", func(t *testing.T) {
		_, err := memoriesDbHandler.SelectMemoriesBySimilarity(nil, "user-sim", nil)
		assert.Error(t, err)
		assert.True(t, helper.IsValidation(err), "Expected a validation error for an empty embedding")
	})
}

func TestMemoriesDelete(t *testing.T) {
	database := initDB(t)
	memoriesDbHandler := initMemoriesHandler(t, database)

	memory := &model.Memory{
		UserID:    "user-delete",
		Content:   "To be purged",
		Embedding: []float32{1, 0, 0},
	}
	require.NoError(t, memoriesDbHandler.InsertMemory(memory))

	err := memoriesDbHandler.DeleteMemory(memory.ID)
	assert.NoError(t, err, "Expected DeleteMemory to not return an error")

	_, err = memoriesDbHandler.SelectMemory(memory.ID)
	assert.Error(t, err, "Expected the memory to be gone")
	assert.True(t, helper.IsNotFound(err), "Expected a not found error after deletion")
}
