package formvault

import (
	"time"

	"github.com/hupe1980/formvault/backup"
	"github.com/hupe1980/formvault/codec"
)

const (
	// DefaultKeyPrefix is prepended to the three storage keys.
	DefaultKeyPrefix = "formvault"

	// DefaultQuietPeriod is the debounce window for ScheduleAutosave.
	DefaultQuietPeriod = 2 * time.Second
)

type options struct {
	codec          codec.Codec
	logger         *Logger
	keyPrefix      string
	maxBackups     int
	compression    backup.Compression
	quietPeriod    time.Duration
	backupInterval time.Duration
}

// Option configures Manager construction.
type Option func(*options)

// WithCodec configures the codec used for all persisted records.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures the logger. Pass NoopLogger() to silence the
// manager entirely.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKeyPrefix configures the prefix of the three storage keys
// (<prefix>.data, <prefix>.backups, <prefix>.meta). Use distinct prefixes
// to host several vaults in one store.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithMaxBackups bounds the backup ring. Defaults to
// backup.DefaultMaxBackups.
func WithMaxBackups(n int) Option {
	return func(o *options) {
		o.maxBackups = n
	}
}

// WithCompression selects the backup snapshot compression.
func WithCompression(c backup.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithQuietPeriod configures the autosave debounce window: a save fires
// only after this long with no further ScheduleAutosave calls.
func WithQuietPeriod(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.quietPeriod = d
		}
	}
}

// WithBackupInterval throttles backup creation: save bursts that request
// backups produce at most one ring entry per interval. Zero (the default)
// disables throttling.
func WithBackupInterval(d time.Duration) Option {
	return func(o *options) {
		o.backupInterval = d
	}
}

// Priority orders queued save operations.
type Priority int

const (
	// PriorityNormal appends to the queue tail.
	PriorityNormal Priority = iota
	// PriorityHigh jumps ahead of all queued normal-priority operations.
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// SaveOptions configures a single Save call.
type SaveOptions struct {
	// CreateBackup snapshots the current primary into the ring before the
	// write. Defaults to true so a failed write never destroys the only
	// recovery point.
	CreateBackup bool
	// SkipValidation bypasses the structural check on the document.
	SkipValidation bool
	// Priority orders the operation within the save queue.
	Priority Priority
}

// WithoutBackup disables the pre-write backup for this save.
func WithoutBackup() func(*SaveOptions) {
	return func(o *SaveOptions) {
		o.CreateBackup = false
	}
}

// WithSkipValidation bypasses the structural check for this save.
func WithSkipValidation() func(*SaveOptions) {
	return func(o *SaveOptions) {
		o.SkipValidation = true
	}
}

// WithHighPriority queues this save ahead of pending normal-priority saves.
func WithHighPriority() func(*SaveOptions) {
	return func(o *SaveOptions) {
		o.Priority = PriorityHigh
	}
}
