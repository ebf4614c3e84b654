package formvault

import (
	"errors"
)

var (
	// ErrStoreUnavailable is returned by mutating operations when the
	// availability probe failed at construction. The flag is permanent for
	// the lifetime of the manager; only Reinitialize re-probes.
	ErrStoreUnavailable = errors.New("byte store unavailable")

	// ErrClosed is returned when the manager has been closed.
	ErrClosed = errors.New("manager closed")
)
