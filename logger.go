package formvault

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with formvault-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogSave logs the outcome of a queued save operation.
func (l *Logger) LogSave(ctx context.Context, id string, priority Priority, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"operation", id,
			"priority", priority.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "save completed",
			"operation", id,
			"priority", priority.String(),
			"bytes", size,
		)
	}
}

// LogLoad logs the outcome of a load.
func (l *Logger) LogLoad(ctx context.Context, recovered bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"recovered", recovered,
		)
	}
}

// LogBackup logs the outcome of a backup creation.
func (l *Logger) LogBackup(ctx context.Context, id int64, size int, err error) {
	if err != nil {
		l.WarnContext(ctx, "backup failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "backup created",
			"backup", id,
			"bytes", size,
		)
	}
}

// LogRecovery logs the outcome of a recovery scan.
func (l *Logger) LogRecovery(ctx context.Context, backupID int64, err error) {
	if err != nil {
		l.WarnContext(ctx, "recovery failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "recovered from backup",
			"backup", backupID,
		)
	}
}

// LogFlush logs a synchronous emergency flush.
func (l *Logger) LogFlush(ctx context.Context, flushed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "emergency flush failed",
			"flushed", flushed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "emergency flush completed",
			"flushed", flushed,
		)
	}
}
