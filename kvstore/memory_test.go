package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Overwrite
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	// Delete is idempotent
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CopiesBothWays(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	in := []byte("original")
	require.NoError(t, store.Set(ctx, "k", in))
	in[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestMemoryStore_Quota(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithMaxBytes(10))

	require.NoError(t, store.Set(ctx, "a", []byte("12345")))
	require.NoError(t, store.Set(ctx, "b", []byte("12345")))

	err := store.Set(ctx, "c", []byte("x"))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// Overwriting an existing key only accounts for the size delta.
	require.NoError(t, store.Set(ctx, "a", []byte("1234X")))

	// Freed space becomes usable again.
	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Set(ctx, "c", []byte("123")))
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	require.NoError(t, Probe(ctx, store))
	assert.Equal(t, 0, store.Len())

	// A store with no room for even the probe value fails the probe.
	full := NewMemoryStore(WithMaxBytes(1))
	require.Error(t, Probe(ctx, full))
}
