package formvault

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hupe1980/formvault/backup"
	"github.com/hupe1980/formvault/codec"
	"github.com/hupe1980/formvault/document"
	"github.com/hupe1980/formvault/eventbus"
	"github.com/hupe1980/formvault/kvstore"
	"github.com/hupe1980/formvault/meta"
)

// LoadResult is returned by Load.
type LoadResult struct {
	// Data is the loaded (or recovered, or default) document. The caller may
	// mutate it freely; it never aliases stored state.
	Data document.Document
	// Recovered reports that the primary record was unusable and Data came
	// from a backup snapshot.
	Recovered bool
}

// Stats summarizes the persisted state for diagnostics.
type Stats struct {
	IsAvailable bool
	TotalSize   int
	SaveCount   int64
	BackupCount int64
	LastSave    time.Time
	LastBackup  time.Time
	Created     time.Time
	Version     int
}

// Manager owns the primary document record, the backup ring and the
// metadata record, and serializes every write to them through its save
// queue.
//
// Construct exactly one Manager per vault at application start and pass it
// by reference to consumers; there is deliberately no package-level
// singleton.
type Manager struct {
	store   kvstore.Store
	codec   codec.Codec
	logger  *Logger
	bus     *eventbus.Bus
	ring    *backup.Ring
	tracker *meta.Tracker
	sched   *scheduler

	dataKey string
	ringKey string
	metaKey string

	available atomic.Bool
	closed    atomic.Bool

	// backupLimiter throttles ring churn; nil means unthrottled.
	backupLimiter *rate.Limiter

	// lastSaved holds the encoded form of the most recently written
	// document, used to skip no-op autosaves.
	savedMu   sync.RWMutex
	lastSaved []byte

	auto autosaver

	quietPeriod time.Duration
}

// New creates a Manager on top of the given byte store.
//
// Availability is probed once here with a disposable write/delete cycle.
// A failed probe does not fail construction: the manager comes up in the
// unavailable state, Load degrades to defaults and mutating operations
// return ErrStoreUnavailable until Reinitialize succeeds.
func New(ctx context.Context, store kvstore.Store, optFns ...Option) (*Manager, error) {
	opts := options{
		codec:       codec.Default,
		logger:      NewLogger(nil),
		keyPrefix:   DefaultKeyPrefix,
		maxBackups:  backup.DefaultMaxBackups,
		compression: backup.CompressionZstd,
		quietPeriod: DefaultQuietPeriod,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	dataKey := opts.keyPrefix + ".data"
	ringKey := opts.keyPrefix + ".backups"
	metaKey := opts.keyPrefix + ".meta"

	ring, err := backup.NewRing(store, opts.codec, ringKey, dataKey,
		backup.WithMaxBackups(opts.maxBackups),
		backup.WithCompression(opts.compression),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup ring: %w", err)
	}

	m := &Manager{
		store:       store,
		codec:       opts.codec,
		logger:      opts.logger,
		bus:         eventbus.New(opts.logger.Logger),
		ring:        ring,
		tracker:     meta.NewTracker(store, opts.codec, metaKey),
		dataKey:     dataKey,
		ringKey:     ringKey,
		metaKey:     metaKey,
		quietPeriod: opts.quietPeriod,
	}
	m.sched = newScheduler(m.processOperation, m.writeDirect)

	if opts.backupInterval > 0 {
		m.backupLimiter = rate.NewLimiter(rate.Every(opts.backupInterval), 1)
	}

	if err := kvstore.Probe(ctx, store); err != nil {
		m.logger.WarnContext(ctx, "byte store unavailable", "error", err)
	} else {
		m.available.Store(true)
		_ = m.tracker.Update(ctx, func(r *meta.Record) {
			r.LastAccess = time.Now()
		})
	}

	return m, nil
}

// Available reports whether the availability probe succeeded.
func (m *Manager) Available() bool {
	return m.available.Load()
}

// Reinitialize re-runs the availability probe. This is the only way the
// cached availability flag changes after construction; it is never silently
// re-probed mid-session.
func (m *Manager) Reinitialize(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := kvstore.Probe(ctx, m.store); err != nil {
		m.available.Store(false)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	m.available.Store(true)
	return nil
}

// Load reads the primary document.
//
// Load never fails: a missing, unparseable or structurally invalid primary
// silently enters recovery, and an exhausted backup ring degrades to the
// canonical default document with Recovered=false. Failing to load must not
// block the application from starting.
func (m *Manager) Load(ctx context.Context) LoadResult {
	res := LoadResult{Data: document.Default()}

	if m.closed.Load() {
		return res
	}
	if !m.available.Load() {
		m.bus.Publish(eventbus.TopicLoadError, LoadEvent{Err: ErrStoreUnavailable})
		m.logger.LogLoad(ctx, false, ErrStoreUnavailable)
		return res
	}

	raw, err := m.store.Get(ctx, m.dataKey)
	primaryMissing := err != nil
	if err == nil {
		if verr := document.Validate(raw); verr == nil {
			var doc document.Document
			if derr := m.codec.Unmarshal(raw, &doc); derr == nil {
				res.Data = document.Sanitize(doc)
				m.rememberSaved(raw)
				_ = m.tracker.Update(ctx, func(r *meta.Record) {
					r.LastAccess = time.Now()
				})
				m.bus.Publish(eventbus.TopicLoadSuccess, LoadEvent{})
				m.logger.LogLoad(ctx, false, nil)
				return res
			}
		}
	}

	// Primary is missing or corrupt: walk the backup ring newest-first.
	doc, entry, rerr := m.ring.Recover(ctx)
	if rerr == nil {
		res.Data = doc
		res.Recovered = true
		m.bus.Publish(eventbus.TopicRecoverySuccess, RecoveryEvent{BackupID: entry.ID})
		m.logger.LogRecovery(ctx, entry.ID, nil)
		m.logger.LogLoad(ctx, true, nil)
		return res
	}

	if primaryMissing {
		// Fresh store: nothing to recover, nothing went wrong.
		m.logger.DebugContext(ctx, "no persisted document, starting from defaults")
		return res
	}

	m.bus.Publish(eventbus.TopicRecoveryError, RecoveryEvent{Err: rerr})
	m.bus.Publish(eventbus.TopicLoadError, LoadEvent{Err: rerr})
	m.logger.LogRecovery(ctx, 0, rerr)
	return res
}

// Save queues a write of doc and blocks until that write completes,
// returning its result.
//
// The document is validated (unless skipped) and deep-copied before
// enqueueing, so the caller may keep mutating doc immediately. Operations
// drain in priority order, high before normal, FIFO within a priority.
func (m *Manager) Save(ctx context.Context, doc document.Document, optFns ...func(*SaveOptions)) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.available.Load() {
		return ErrStoreUnavailable
	}

	opts := SaveOptions{CreateBackup: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.SkipValidation {
		raw, err := m.codec.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		if verr := document.Validate(raw); verr != nil {
			m.bus.Publish(eventbus.TopicSaveError, SaveEvent{Err: verr})
			return verr
		}
	}

	op := &saveOperation{
		id:           uuid.NewString(),
		payload:      doc.Clone(),
		enqueuedAt:   time.Now(),
		createBackup: opts.CreateBackup,
		priority:     opts.Priority,
		done:         make(chan error, 1),
	}
	m.sched.enqueue(op)

	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		// The queued write still lands; only the caller stops waiting.
		return ctx.Err()
	}
}

// processOperation is the full async write pipeline: optional backup,
// encode, primary write, metadata update, event emission.
func (m *Manager) processOperation(ctx context.Context, op *saveOperation) error {
	if op.createBackup {
		m.maybeBackup(ctx)
	}

	data, err := m.codec.Marshal(op.payload)
	if err != nil {
		err = fmt.Errorf("failed to encode document: %w", err)
		m.failSave(ctx, op, err)
		return err
	}

	if err := m.store.Set(ctx, m.dataKey, data); err != nil {
		err = fmt.Errorf("failed to write document: %w", err)
		m.failSave(ctx, op, err)
		return err
	}

	m.rememberSaved(data)
	_ = m.tracker.Update(ctx, func(r *meta.Record) {
		r.LastSave = time.Now()
		r.SaveCount++
	})

	m.bus.Publish(eventbus.TopicSaveSuccess, SaveEvent{
		ID:        op.id,
		Timestamp: op.enqueuedAt,
		Size:      len(data),
	})
	m.logger.LogSave(ctx, op.id, op.priority, len(data), nil)
	return nil
}

func (m *Manager) failSave(ctx context.Context, op *saveOperation, err error) {
	m.bus.Publish(eventbus.TopicSaveError, SaveEvent{
		ID:        op.id,
		Timestamp: op.enqueuedAt,
		Err:       err,
	})
	m.logger.LogSave(ctx, op.id, op.priority, 0, err)
}

// maybeBackup snapshots the current primary before it is overwritten.
// Backup failure is non-fatal to the primary write: the backup is attempted
// first, so a failed or partial write never destroys the only recovery
// point, but a failed backup only costs a recovery point, not the save.
func (m *Manager) maybeBackup(ctx context.Context) {
	var res *rate.Reservation
	if m.backupLimiter != nil {
		res = m.backupLimiter.Reserve()
		if res.Delay() > 0 {
			res.Cancel()
			m.logger.DebugContext(ctx, "backup throttled")
			return
		}
	}

	entry, err := m.ring.Create(ctx)
	if err != nil {
		m.logger.LogBackup(ctx, 0, 0, err)
		return
	}
	if entry == nil {
		// No primary yet; refund the token so the first real backup is
		// not throttled.
		if res != nil {
			res.Cancel()
		}
		return
	}

	_ = m.tracker.Update(ctx, func(r *meta.Record) {
		r.LastBackup = time.Now()
		r.BackupCount++
	})
	m.logger.LogBackup(ctx, entry.ID, entry.Size, nil)
}

// writeDirect is the bare write used by the synchronous flush path: encode
// and store only, no backup, no metadata, no events.
func (m *Manager) writeDirect(op *saveOperation) error {
	data, err := m.codec.Marshal(op.payload)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := m.store.Set(context.Background(), m.dataKey, data); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	m.rememberSaved(data)
	return nil
}

// FlushSync synchronously drains every pending save, including a pending
// debounced autosave, writing each payload directly.
//
// Call it from shutdown/suspend/visibility hooks where the process may be
// terminated before asynchronous completion. Returns the number of
// operations written and the first error encountered.
func (m *Manager) FlushSync() (int, error) {
	var extra []*saveOperation
	if doc := m.takePendingAutosave(); doc != nil && m.available.Load() {
		extra = append(extra, &saveOperation{
			id:         uuid.NewString(),
			payload:    *doc,
			enqueuedAt: time.Now(),
			done:       make(chan error, 1),
		})
	}

	flushed, err := m.sched.flushSync(extra...)
	m.logger.LogFlush(context.Background(), flushed, err)
	return flushed, err
}

// ClearAll removes the primary, backup and metadata records. Idempotent.
func (m *Manager) ClearAll(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.available.Load() {
		return ErrStoreUnavailable
	}

	m.cancelAutosave()

	var firstErr error
	if err := m.store.Delete(ctx, m.dataKey); err != nil {
		firstErr = err
	}
	if err := m.ring.Clear(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.store.Delete(ctx, m.metaKey); err != nil && firstErr == nil {
		firstErr = err
	}

	m.rememberSaved(nil)
	return firstErr
}

// ListBackups returns the backup ring, newest first.
func (m *Manager) ListBackups(ctx context.Context) ([]backup.Backup, error) {
	if !m.available.Load() {
		return nil, ErrStoreUnavailable
	}
	return m.ring.List(ctx)
}

// Restore replaces the primary document with the snapshot identified by id.
//
// The restore is queued at high priority; the pre-restore primary is
// snapshotted into the ring first, so a restore is itself undoable.
func (m *Manager) Restore(ctx context.Context, id int64) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.available.Load() {
		return ErrStoreUnavailable
	}

	doc, err := m.ring.Restore(ctx, id)
	if err != nil {
		return err
	}
	return m.Save(ctx, doc, WithHighPriority())
}

// Stats returns diagnostic counters and the total persisted footprint.
func (m *Manager) Stats(ctx context.Context) Stats {
	stats := Stats{IsAvailable: m.available.Load()}
	if !stats.IsAvailable {
		return stats
	}

	rec := m.tracker.Load(ctx)
	stats.SaveCount = rec.SaveCount
	stats.BackupCount = rec.BackupCount
	stats.LastSave = rec.LastSave
	stats.LastBackup = rec.LastBackup
	stats.Created = rec.Created
	stats.Version = rec.Version

	for _, key := range []string{m.dataKey, m.ringKey, m.metaKey} {
		if raw, err := m.store.Get(ctx, key); err == nil {
			stats.TotalSize += len(raw)
		}
	}
	return stats
}

// Close stops the autosave timer, synchronously flushes pending saves and
// waits for the drain goroutine to exit. The manager is unusable afterwards.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	_, err := m.FlushSync()
	m.cancelAutosave()
	m.sched.wait()
	return err
}

func (m *Manager) rememberSaved(data []byte) {
	m.savedMu.Lock()
	if data == nil {
		m.lastSaved = nil
	} else {
		m.lastSaved = append([]byte(nil), data...)
	}
	m.savedMu.Unlock()
}

func (m *Manager) isUnchanged(data []byte) bool {
	m.savedMu.RLock()
	defer m.savedMu.RUnlock()
	return m.lastSaved != nil && bytes.Equal(m.lastSaved, data)
}
