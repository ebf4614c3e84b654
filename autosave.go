package formvault

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/formvault/document"
)

// autosaver holds the debounce state for ScheduleAutosave.
type autosaver struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending *document.Document
}

// ScheduleAutosave (re)arms the debounced auto-save with the given document.
//
// The save fires only after the configured quiet period (default 2s) passes
// with no further calls; within a burst of mutations only the last document
// survives. A pending auto-save whose document equals the last successfully
// saved snapshot is skipped entirely. Clearing the timer by scheduling again
// is the only form of cancellation; an in-flight write is never cancelled.
func (m *Manager) ScheduleAutosave(doc document.Document) {
	if m.closed.Load() || !m.available.Load() {
		return
	}

	clone := doc.Clone()

	m.auto.mu.Lock()
	defer m.auto.mu.Unlock()

	m.auto.pending = &clone
	if m.auto.timer == nil {
		m.auto.timer = time.AfterFunc(m.quietPeriod, m.fireAutosave)
	} else {
		m.auto.timer.Reset(m.quietPeriod)
	}
}

func (m *Manager) fireAutosave() {
	doc := m.takePendingAutosave()
	if doc == nil || m.closed.Load() {
		return
	}

	ctx := context.Background()

	encoded, err := m.codec.Marshal(*doc)
	if err == nil && m.isUnchanged(encoded) {
		m.logger.DebugContext(ctx, "autosave skipped, document unchanged")
		return
	}

	if err := m.Save(ctx, *doc); err != nil {
		m.logger.WarnContext(ctx, "autosave failed", "error", err)
	}
}

// takePendingAutosave stops the debounce timer and returns the pending
// document, if any.
func (m *Manager) takePendingAutosave() *document.Document {
	m.auto.mu.Lock()
	defer m.auto.mu.Unlock()

	if m.auto.timer != nil {
		m.auto.timer.Stop()
	}
	doc := m.auto.pending
	m.auto.pending = nil
	return doc
}

// cancelAutosave drops any pending auto-save without writing it.
func (m *Manager) cancelAutosave() {
	_ = m.takePendingAutosave()
}
