// Package meta tracks diagnostic counters and timestamps for the vault:
// save counts, last save/backup times, and the schema version.
//
// Metadata loss is non-fatal by design. The record is never validated
// beyond "does it decode"; anything unparseable self-heals by
// reinitializing defaults on the next read.
package meta

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/formvault/codec"
	"github.com/hupe1980/formvault/kvstore"
)

// CurrentVersion is the schema version stamped into new records.
const CurrentVersion = 1

// Record is the persisted metadata record.
type Record struct {
	Version     int       `json:"version"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"lastAccess"`
	LastSave    time.Time `json:"lastSave"`
	LastBackup  time.Time `json:"lastBackup"`
	SaveCount   int64     `json:"saveCount"`
	BackupCount int64     `json:"backupCount"`
}

func newRecord() Record {
	now := time.Now()
	return Record{
		Version:    CurrentVersion,
		Created:    now,
		LastAccess: now,
	}
}

// Tracker reads and updates the metadata record under a single key.
type Tracker struct {
	mu    sync.Mutex
	store kvstore.Store
	codec codec.Codec
	key   string
}

// NewTracker creates a Tracker persisted under key.
func NewTracker(store kvstore.Store, c codec.Codec, key string) *Tracker {
	if c == nil {
		c = codec.Default
	}
	return &Tracker{
		store: store,
		codec: c,
		key:   key,
	}
}

// Load returns the current record, reinitializing defaults when the stored
// value is missing or unparseable.
func (t *Tracker) Load(ctx context.Context) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

// Update applies fn to the current record and writes the result back.
// SaveCount is clamped so it can never decrease across updates.
func (t *Tracker) Update(ctx context.Context, fn func(r *Record)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.load(ctx)
	before := rec.SaveCount
	fn(&rec)
	if rec.SaveCount < before {
		rec.SaveCount = before
	}

	raw, err := t.codec.Marshal(rec)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, t.key, raw)
}

func (t *Tracker) load(ctx context.Context) Record {
	raw, err := t.store.Get(ctx, t.key)
	if err != nil {
		// Missing or unreadable metadata self-heals to defaults.
		return newRecord()
	}

	var rec Record
	if err := t.codec.Unmarshal(raw, &rec); err != nil {
		return newRecord()
	}
	if rec.Version == 0 {
		rec.Version = CurrentVersion
	}
	return rec
}
