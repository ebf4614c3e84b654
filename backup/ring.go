// Package backup maintains a bounded, newest-first ring of prior document
// snapshots and the recovery scan that walks it when the primary record is
// corrupted.
//
// The whole ring is persisted as one serialized blob under a single key.
// That keeps the footprint bounded and the eviction policy atomic: one
// write replaces the entire ring, so a crash can never leave a half-evicted
// set of backup keys behind.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/formvault/codec"
	"github.com/hupe1980/formvault/document"
	"github.com/hupe1980/formvault/kvstore"
)

// DefaultMaxBackups is the ring bound used when none is configured.
const DefaultMaxBackups = 5

var (
	// ErrBackupNotFound is returned by Restore when no entry has the
	// requested id.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrRingExhausted is returned by Recover when no structurally valid
	// snapshot exists in the ring.
	ErrRingExhausted = errors.New("no valid backup in ring")
)

// Backup is one immutable snapshot in the ring.
//
// Entries are created only as a side effect of a save that requests a
// backup, never mutated afterwards, and evicted silently once they fall off
// the tail of the ring.
type Backup struct {
	// ID is a creation-time token, monotonically increasing within the ring.
	ID int64 `json:"id"`
	// Timestamp is the creation time.
	Timestamp time.Time `json:"timestamp"`
	// Data is the (possibly compressed) serialized document snapshot.
	Data []byte `json:"data"`
	// Compression records the algorithm Data was written with.
	Compression Compression `json:"compression,omitempty"`
	// Size is the uncompressed byte length of the snapshot.
	Size int `json:"size"`
}

// RingOptions configures a Ring.
type RingOptions struct {
	// MaxBackups bounds the ring. Defaults to DefaultMaxBackups.
	MaxBackups int
	// Compression selects the snapshot compression for new entries.
	// Defaults to CompressionZstd.
	Compression Compression
}

// WithMaxBackups sets the ring bound.
func WithMaxBackups(n int) func(o *RingOptions) {
	return func(o *RingOptions) {
		o.MaxBackups = n
	}
}

// WithCompression sets the snapshot compression for new entries.
func WithCompression(c Compression) func(o *RingOptions) {
	return func(o *RingOptions) {
		o.Compression = c
	}
}

// Ring manages the persisted backup ring.
//
// Methods are safe for concurrent use, though the persistence manager
// already serializes every mutation through its save queue.
type Ring struct {
	mu          sync.Mutex
	store       kvstore.Store
	codec       codec.Codec
	ringKey     string
	primaryKey  string
	max         int
	compression Compression
	comp        *compressor
}

// NewRing creates a Ring persisted under ringKey that snapshots the value
// stored under primaryKey.
func NewRing(store kvstore.Store, c codec.Codec, ringKey, primaryKey string, optFns ...func(o *RingOptions)) (*Ring, error) {
	opts := RingOptions{
		MaxBackups:  DefaultMaxBackups,
		Compression: CompressionZstd,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxBackups <= 0 {
		return nil, fmt.Errorf("max backups must be positive, got %d", opts.MaxBackups)
	}
	if c == nil {
		c = codec.Default
	}

	comp, err := newCompressor()
	if err != nil {
		return nil, err
	}

	return &Ring{
		store:       store,
		codec:       c,
		ringKey:     ringKey,
		primaryKey:  primaryKey,
		max:         opts.MaxBackups,
		compression: opts.Compression,
		comp:        comp,
	}, nil
}

// Create snapshots the current primary value into the ring.
//
// Returns (nil, nil) when no primary value exists yet. The new entry is
// inserted at the head and the ring truncated to its bound in the same
// write, so eviction is atomic with insertion.
func (r *Ring) Create(ctx context.Context) (*Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	primary, err := r.store.Get(ctx, r.primaryKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read primary for backup: %w", err)
	}

	ring, err := r.load(ctx)
	if err != nil {
		// A corrupt ring blob must not block new backups; start fresh.
		ring = nil
	}

	compressed, alg, err := r.comp.compress(primary, r.compression)
	if err != nil {
		return nil, err
	}

	entry := Backup{
		ID:          time.Now().UnixNano(),
		Timestamp:   time.Now(),
		Data:        compressed,
		Compression: alg,
		Size:        len(primary),
	}
	// Creation time is the id; guarantee monotonicity even if the clock
	// does not advance between two backups.
	if len(ring) > 0 && entry.ID <= ring[0].ID {
		entry.ID = ring[0].ID + 1
	}

	ring = append([]Backup{entry}, ring...)
	if len(ring) > r.max {
		ring = ring[:r.max]
	}

	if err := r.save(ctx, ring); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the ring in newest-first order. A missing ring blob yields
// an empty list, not an error.
func (r *Ring) List(ctx context.Context) ([]Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ring, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return ring, nil
}

// Restore returns the decoded, sanitized document held by the backup with
// the given id. A miss yields ErrBackupNotFound; a corrupt snapshot yields
// the decode error.
func (r *Ring) Restore(ctx context.Context, id int64) (document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ring, err := r.load(ctx)
	if err != nil {
		return document.Document{}, err
	}

	for _, entry := range ring {
		if entry.ID == id {
			return r.decode(entry)
		}
	}
	return document.Document{}, ErrBackupNotFound
}

// Recover walks the ring newest-first and returns the first structurally
// valid snapshot, sanitized. Corrupt entries are skipped without aborting
// the scan; an exhausted ring yields ErrRingExhausted.
//
// Most corruption is a single bad write, so the newest entry almost always
// wins and the linear scan stays bounded by the small ring size.
func (r *Ring) Recover(ctx context.Context) (document.Document, *Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ring, err := r.load(ctx)
	if err != nil {
		return document.Document{}, nil, ErrRingExhausted
	}

	for i := range ring {
		doc, err := r.decode(ring[i])
		if err != nil {
			continue
		}
		return doc, &ring[i], nil
	}
	return document.Document{}, nil, ErrRingExhausted
}

// Clear removes the persisted ring.
func (r *Ring) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, r.ringKey)
}

func (r *Ring) decode(entry Backup) (document.Document, error) {
	raw, err := r.comp.decompress(entry.Data, entry.Compression, entry.Size)
	if err != nil {
		return document.Document{}, err
	}
	if err := document.Validate(raw); err != nil {
		return document.Document{}, err
	}
	var doc document.Document
	if err := r.codec.Unmarshal(raw, &doc); err != nil {
		return document.Document{}, fmt.Errorf("failed to decode backup %d: %w", entry.ID, err)
	}
	return document.Sanitize(doc), nil
}

func (r *Ring) load(ctx context.Context) ([]Backup, error) {
	raw, err := r.store.Get(ctx, r.ringKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup ring: %w", err)
	}

	var ring []Backup
	if err := r.codec.Unmarshal(raw, &ring); err != nil {
		return nil, fmt.Errorf("failed to decode backup ring: %w", err)
	}
	return ring, nil
}

func (r *Ring) save(ctx context.Context, ring []Backup) error {
	raw, err := r.codec.Marshal(ring)
	if err != nil {
		return fmt.Errorf("failed to encode backup ring: %w", err)
	}
	if err := r.store.Set(ctx, r.ringKey, raw); err != nil {
		return fmt.Errorf("failed to write backup ring: %w", err)
	}
	return nil
}
