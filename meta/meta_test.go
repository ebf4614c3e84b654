package meta

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/formvault/codec"
	"github.com/hupe1980/formvault/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test.meta"

func TestTracker_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("FreshStore", func(t *testing.T) {
		tracker := NewTracker(kvstore.NewMemoryStore(), codec.Default, testKey)

		rec := tracker.Load(ctx)
		assert.Equal(t, CurrentVersion, rec.Version)
		assert.WithinDuration(t, time.Now(), rec.Created, time.Minute)
		assert.Zero(t, rec.SaveCount)
	})

	t.Run("CorruptSelfHeals", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		require.NoError(t, store.Set(ctx, testKey, []byte("not json")))

		tracker := NewTracker(store, codec.Default, testKey)
		rec := tracker.Load(ctx)
		assert.Equal(t, CurrentVersion, rec.Version)
		assert.Zero(t, rec.SaveCount)
	})

	t.Run("MissingVersionStamped", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		require.NoError(t, store.Set(ctx, testKey, []byte(`{"saveCount":7}`)))

		tracker := NewTracker(store, codec.Default, testKey)
		rec := tracker.Load(ctx)
		assert.Equal(t, CurrentVersion, rec.Version)
		assert.Equal(t, int64(7), rec.SaveCount)
	})
}

func TestTracker_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Persists", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		tracker := NewTracker(store, codec.Default, testKey)

		now := time.Now()
		err := tracker.Update(ctx, func(r *Record) {
			r.SaveCount++
			r.LastSave = now
		})
		require.NoError(t, err)

		rec := tracker.Load(ctx)
		assert.Equal(t, int64(1), rec.SaveCount)
		assert.WithinDuration(t, now, rec.LastSave, time.Second)
	})

	t.Run("SaveCountNeverDecreases", func(t *testing.T) {
		tracker := NewTracker(kvstore.NewMemoryStore(), codec.Default, testKey)

		for i := 0; i < 3; i++ {
			require.NoError(t, tracker.Update(ctx, func(r *Record) { r.SaveCount++ }))
		}
		require.NoError(t, tracker.Update(ctx, func(r *Record) { r.SaveCount = 0 }))

		rec := tracker.Load(ctx)
		assert.Equal(t, int64(3), rec.SaveCount)
	})
}
