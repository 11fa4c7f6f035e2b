package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryState(t *testing.T) {
	t.Run("Active latest memory", func(t *testing.T) {
		m := &Memory{IsLatest: true, IsForgotten: false}
		assert.Equal(t, MemoryStateActiveLatest, m.State())
	})

	t.Run("Active superseded memory", func(t *testing.T) {
		m := &Memory{IsLatest: false, IsForgotten: false}
		assert.Equal(t, MemoryStateActiveSuperseded, m.State())
	})

	t.Run("Forgotten latest memory", func(t *testing.T) {
		// A forgotten memory may still be the latest in its lineage
		m := &Memory{IsLatest: true, IsForgotten: true}
		assert.Equal(t, MemoryStateForgottenLatest, m.State())
	})

	t.Run("Forgotten superseded memory", func(t *testing.T) {
		m := &Memory{IsLatest: false, IsForgotten: true}
		assert.Equal(t, MemoryStateForgottenSuperseded, m.State())
	})
}

func TestMemoryExpired(t *testing.T) {
	now := time.Now()

	t.Run("No expiry set", func(t *testing.T) {
		m := &Memory{}
		assert.False(t, m.Expired(now), "Memory without expiry should never be expired")
	})

	t.Run("Expiry in the past", func(t *testing.T) {
		past := now.Add(-time.Hour)
		m := &Memory{ExpiresAt: &past}
		assert.True(t, m.Expired(now))
	})

	t.Run("Expiry in the future", func(t *testing.T) {
		future := now.Add(time.Hour)
		m := &Memory{ExpiresAt: &future}
		assert.False(t, m.Expired(now))
	})

	t.Run("Already forgotten memory is not expired", func(t *testing.T) {
		past := now.Add(-time.Hour)
		m := &Memory{ExpiresAt: &past, IsForgotten: true}
		assert.False(t, m.Expired(now), "Forgotten memories are excluded from the expiry sweep")
	})
}

func TestMemoryKindValid(t *testing.T) {
	assert.True(t, MemoryKindFact.Valid())
	assert.True(t, MemoryKindPreference.Valid())
	assert.True(t, MemoryKindEvent.Valid())
	assert.False(t, MemoryKind("opinion").Valid())
	assert.False(t, MemoryKind("").Valid())
}
