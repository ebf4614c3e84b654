package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
// It copies values on both write and read so callers can never mutate stored
// state through a retained slice. Thread-safe.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	maxBytes int
	used     int
}

// NewMemoryStore creates a new in-memory store.
//
// optFns can set a byte quota; a quota of 0 means unlimited. A bounded store
// models quota-constrained backends (browser local storage, small volumes)
// and lets tests exercise the ErrQuotaExceeded path deterministically.
func NewMemoryStore(optFns ...func(o *MemoryStoreOptions)) *MemoryStore {
	opts := MemoryStoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MemoryStore{
		values:   make(map[string][]byte),
		maxBytes: opts.MaxBytes,
	}
}

// MemoryStoreOptions configures a MemoryStore.
type MemoryStoreOptions struct {
	// MaxBytes caps the total stored value bytes. 0 disables the cap.
	MaxBytes int
}

// WithMaxBytes sets the byte quota.
func WithMaxBytes(n int) func(o *MemoryStoreOptions) {
	return func(o *MemoryStoreOptions) {
		o.MaxBytes = n
	}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		next := m.used - len(m.values[key]) + len(value)
		if next > m.maxBytes {
			return ErrQuotaExceeded
		}
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	m.used += len(copied) - len(m.values[key])
	m.values[key] = copied
	return nil
}

// Delete removes the key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.used -= len(m.values[key])
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
