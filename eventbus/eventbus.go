// Package eventbus implements the topic fan-out used to notify subscribers
// of save, load and recovery outcomes.
//
// Listener isolation is an explicit contract, not an incidental behavior: a
// panicking handler is recovered and logged individually, so one faulty
// subscriber can neither prevent the others from being notified nor abort
// the operation that published the event.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic names an event stream.
type Topic string

// Topics published by the persistence manager.
const (
	TopicSaveSuccess     Topic = "save-success"
	TopicSaveError       Topic = "save-error"
	TopicLoadSuccess     Topic = "load-success"
	TopicLoadError       Topic = "load-error"
	TopicRecoverySuccess Topic = "recovery-success"
	TopicRecoveryError   Topic = "recovery-error"
)

// Handler receives published payloads. Handlers run synchronously on the
// publishing goroutine, in subscription order within a topic.
type Handler func(payload any)

// Bus is a topic -> handler-list broker.
type Bus struct {
	mu     sync.RWMutex
	topics map[Topic][]subscription
	logger *slog.Logger
}

type subscription struct {
	id      string
	handler Handler
}

// New creates a Bus. logger may be nil, in which case slog.Default is used
// for handler-panic reports.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for a topic and returns the subscription id
// used to remove it.
func (b *Bus) Subscribe(topic Topic, h Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	return id
}

// Unsubscribe removes the subscription with the given id from a topic.
// Unknown ids are ignored.
func (b *Bus) Unsubscribe(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, sub := range subs {
		if sub.id == id {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Publish delivers payload to every handler subscribed to topic.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	subs := b.topics[topic]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.deliver(topic, sub, payload)
	}
}

func (b *Bus) deliver(topic Topic, sub subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"topic", string(topic),
				"subscription", sub.id,
				"panic", r,
			)
		}
	}()
	sub.handler(payload)
}
