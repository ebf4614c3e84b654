package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`.
var ErrNotFound = errors.New("key not found")

// ErrQuotaExceeded is returned when the underlying store rejects a write for
// capacity reasons. Implementations map backend-specific full/too-large
// conditions onto it so callers can treat quota failures uniformly.
var ErrQuotaExceeded = errors.New("store quota exceeded")

// Store is an abstraction over a durable key/value byte store.
//
// Values are opaque byte slices; keys are flat strings. Implementations must
// be safe for concurrent use, but the persistence manager serializes all
// writes to its keys itself, so implementations do not need any
// cross-operation atomicity beyond single Set/Delete calls.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Probe verifies that the store accepts writes by performing a disposable
// write/delete cycle.
//
// The manager runs this exactly once at construction and caches the outcome
// for its lifetime: underlying stores can fail unpredictably (quota,
// permissions, read-only volumes), and probing once lets every dependent
// fail fast instead of re-discovering the failure on each operation.
func Probe(ctx context.Context, s Store) error {
	key := fmt.Sprintf("formvault.probe.%d", time.Now().UnixNano())
	if err := s.Set(ctx, key, []byte("probe")); err != nil {
		return fmt.Errorf("probe write failed: %w", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		return fmt.Errorf("probe delete failed: %w", err)
	}
	return nil
}
