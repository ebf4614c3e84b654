package backup

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/formvault/codec"
	"github.com/hupe1980/formvault/document"
	"github.com/hupe1980/formvault/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRingKey    = "test.backups"
	testPrimaryKey = "test.data"
)

func newTestRing(t *testing.T, optFns ...func(o *RingOptions)) (*Ring, *kvstore.MemoryStore) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	ring, err := NewRing(store, codec.Default, testRingKey, testPrimaryKey, optFns...)
	require.NoError(t, err)

	return ring, store
}

func putDocument(t *testing.T, store kvstore.Store, name string) document.Document {
	t.Helper()

	doc := document.Default()
	doc.Profile.FullName = name

	raw, err := codec.Default.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), testPrimaryKey, raw))

	return doc
}

func TestNewRing(t *testing.T) {
	store := kvstore.NewMemoryStore()

	t.Run("InvalidMaxBackups", func(t *testing.T) {
		_, err := NewRing(store, codec.Default, testRingKey, testPrimaryKey, WithMaxBackups(0))
		assert.Error(t, err)
	})

	t.Run("NilCodecDefaults", func(t *testing.T) {
		ring, err := NewRing(store, nil, testRingKey, testPrimaryKey)
		require.NoError(t, err)
		assert.NotNil(t, ring)
	})
}

func TestRing_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("NoPrimary", func(t *testing.T) {
		ring, _ := newTestRing(t)

		entry, err := ring.Create(ctx)
		require.NoError(t, err)
		assert.Nil(t, entry)

		list, err := ring.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("SnapshotsPrimary", func(t *testing.T) {
		ring, store := newTestRing(t)
		putDocument(t, store, "Alice")

		entry, err := ring.Create(ctx)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Positive(t, entry.Size)
		assert.WithinDuration(t, time.Now(), entry.Timestamp, time.Minute)

		list, err := ring.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, entry.ID, list[0].ID)
	})

	t.Run("BoundedNewestFirst", func(t *testing.T) {
		ring, store := newTestRing(t, WithMaxBackups(3))

		for i := 0; i < 5; i++ {
			putDocument(t, store, "rev")
			_, err := ring.Create(ctx)
			require.NoError(t, err)
		}

		list, err := ring.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Greater(t, list[0].ID, list[1].ID)
		assert.Greater(t, list[1].ID, list[2].ID)
	})

	t.Run("CorruptRingStartsFresh", func(t *testing.T) {
		ring, store := newTestRing(t)
		putDocument(t, store, "Alice")
		require.NoError(t, store.Set(ctx, testRingKey, []byte("not json")))

		entry, err := ring.Create(ctx)
		require.NoError(t, err)
		require.NotNil(t, entry)

		list, err := ring.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestRing_Restore(t *testing.T) {
	ctx := context.Background()
	ring, store := newTestRing(t)

	want := putDocument(t, store, "Alice")
	entry, err := ring.Create(ctx)
	require.NoError(t, err)

	t.Run("Found", func(t *testing.T) {
		got, err := ring.Restore(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := ring.Restore(ctx, entry.ID+42)
		assert.ErrorIs(t, err, ErrBackupNotFound)
	})
}

func TestRing_Recover(t *testing.T) {
	ctx := context.Background()

	t.Run("NewestWins", func(t *testing.T) {
		ring, store := newTestRing(t)

		putDocument(t, store, "old")
		_, err := ring.Create(ctx)
		require.NoError(t, err)

		want := putDocument(t, store, "new")
		_, err = ring.Create(ctx)
		require.NoError(t, err)

		got, entry, err := ring.Recover(ctx)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, want, got)
	})

	t.Run("SkipsCorruptEntry", func(t *testing.T) {
		ring, store := newTestRing(t)

		want := putDocument(t, store, "good")
		_, err := ring.Create(ctx)
		require.NoError(t, err)

		putDocument(t, store, "bad")
		newest, err := ring.Create(ctx)
		require.NoError(t, err)

		// Corrupt the newest snapshot in the persisted ring blob.
		list, err := ring.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, newest.ID, list[0].ID)
		list[0].Data = []byte("garbage")
		raw, err := codec.Default.Marshal(list)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, testRingKey, raw))

		got, entry, err := ring.Recover(ctx)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.NotEqual(t, newest.ID, entry.ID)
		assert.Equal(t, want, got)
	})

	t.Run("Exhausted", func(t *testing.T) {
		ring, _ := newTestRing(t)

		_, _, err := ring.Recover(ctx)
		assert.ErrorIs(t, err, ErrRingExhausted)
	})

	t.Run("CorruptRingBlob", func(t *testing.T) {
		ring, store := newTestRing(t)
		require.NoError(t, store.Set(ctx, testRingKey, []byte("not json")))

		_, _, err := ring.Recover(ctx)
		assert.ErrorIs(t, err, ErrRingExhausted)
	})
}

func TestRing_Clear(t *testing.T) {
	ctx := context.Background()
	ring, store := newTestRing(t)

	putDocument(t, store, "Alice")
	_, err := ring.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, ring.Clear(ctx))

	list, err := ring.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRing_Compression(t *testing.T) {
	ctx := context.Background()

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(string(c), func(t *testing.T) {
			ring, store := newTestRing(t, WithCompression(c))

			want := putDocument(t, store, "Alice")
			entry, err := ring.Create(ctx)
			require.NoError(t, err)
			require.NotNil(t, entry)

			got, err := ring.Restore(ctx, entry.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
