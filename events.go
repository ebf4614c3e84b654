package formvault

import (
	"time"

	"github.com/hupe1980/formvault/eventbus"
)

// SaveEvent is the payload published on TopicSaveSuccess / TopicSaveError.
type SaveEvent struct {
	// ID is the save operation's unique token.
	ID string
	// Timestamp is when the operation was enqueued.
	Timestamp time.Time
	// Size is the encoded byte length of the written document (success only).
	Size int
	// Err carries the failure (error topics only).
	Err error
}

// LoadEvent is the payload published on TopicLoadSuccess / TopicLoadError.
type LoadEvent struct {
	Recovered bool
	Err       error
}

// RecoveryEvent is the payload published on TopicRecoverySuccess /
// TopicRecoveryError.
type RecoveryEvent struct {
	// BackupID identifies the snapshot recovery settled on (success only).
	BackupID int64
	Err      error
}

// Subscribe registers a handler for a topic and returns the subscription id.
//
// Handlers run synchronously on the goroutine that triggered the event. A
// panicking handler is recovered and logged without affecting the operation
// or the remaining handlers.
func (m *Manager) Subscribe(topic eventbus.Topic, h eventbus.Handler) string {
	return m.bus.Subscribe(topic, h)
}

// Unsubscribe removes a subscription created by Subscribe.
func (m *Manager) Unsubscribe(topic eventbus.Topic, id string) {
	m.bus.Unsubscribe(topic, id)
}
