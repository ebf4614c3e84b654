package formvault

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/formvault/document"
)

// saveOperation is one queued write. It is owned exclusively by the
// scheduler from enqueue until its result is delivered on done.
type saveOperation struct {
	id           string
	payload      document.Document
	enqueuedAt   time.Time
	createBackup bool
	priority     Priority
	done         chan error // buffered; receives exactly one result
}

// scheduler serializes save operations.
//
// Multiple Save calls append to a single ordered queue; a lone drain
// goroutine dequeues and writes one operation at a time. This is the core
// concurrency guarantee: writes are never interleaved, so a slow caller's
// stale payload can never clobber a newer write that started later but
// finished earlier.
type scheduler struct {
	mu       sync.Mutex
	queue    []*saveOperation
	draining bool
	wg       sync.WaitGroup

	// writeMu serializes the physical write across the async drain path and
	// the synchronous emergency flush path.
	writeMu sync.Mutex

	// process runs the full async pipeline (backup, write, metadata, events).
	process func(ctx context.Context, op *saveOperation) error
	// writeDirect performs the bare encode-and-write used by flushSync.
	writeDirect func(op *saveOperation) error
}

func newScheduler(
	process func(ctx context.Context, op *saveOperation) error,
	writeDirect func(op *saveOperation) error,
) *scheduler {
	return &scheduler{
		process:     process,
		writeDirect: writeDirect,
	}
}

// enqueue inserts the operation in priority order and starts the drain
// goroutine if none is running.
func (s *scheduler) enqueue(op *saveOperation) {
	s.mu.Lock()
	if op.priority == PriorityHigh {
		// Ahead of every normal entry, behind earlier high entries.
		idx := len(s.queue)
		for i, queued := range s.queue {
			if queued.priority != PriorityHigh {
				idx = i
				break
			}
		}
		s.queue = append(s.queue, nil)
		copy(s.queue[idx+1:], s.queue[idx:])
		s.queue[idx] = op
	} else {
		s.queue = append(s.queue, op)
	}

	start := !s.draining
	if start {
		s.draining = true
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
}

// drain processes queued operations until the queue empties.
//
// Operations run under a background context: the enqueuing caller may have
// gone away, but a queued write must still land. One operation's failure is
// delivered on its own done channel and never blocks later operations.
func (s *scheduler) drain() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		op := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.writeMu.Lock()
		err := s.process(context.Background(), op)
		s.writeMu.Unlock()

		op.done <- err
	}
}

// flushSync steals every still-queued operation and writes each payload
// directly, in queue order, on the calling goroutine.
//
// This is the emergency path for contexts (shutdown, suspend) where
// asynchronous completion cannot be guaranteed: it trades completeness of
// side effects for write durability. No backups are created and no events
// are emitted; only the primary write happens. The divergence from the
// async pipeline is intentional and both paths share the same encoding.
//
// Returns the number of operations written and the first error encountered;
// a failed write does not stop the remaining operations.
func (s *scheduler) flushSync(extra ...*saveOperation) (int, error) {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	pending = append(pending, extra...)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var firstErr error
	flushed := 0
	for _, op := range pending {
		err := s.writeDirect(op)
		if err == nil {
			flushed++
		} else if firstErr == nil {
			firstErr = err
		}
		op.done <- err
	}
	return flushed, firstErr
}

// wait blocks until the drain goroutine (if any) has exited.
func (s *scheduler) wait() {
	s.wg.Wait()
}

// pendingCount reports the queue depth.
func (s *scheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
