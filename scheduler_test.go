package formvault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/formvault/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOp(id string, priority Priority) *saveOperation {
	doc := document.Default()
	doc.Profile.FullName = id

	return &saveOperation{
		id:         id,
		payload:    doc,
		enqueuedAt: time.Now(),
		priority:   priority,
		done:       make(chan error, 1),
	}
}

func TestScheduler_PriorityOrdering(t *testing.T) {
	gate := make(chan struct{})

	var mu sync.Mutex
	var order []string

	sched := newScheduler(func(_ context.Context, op *saveOperation) error {
		if op.id == "blocker" {
			<-gate
		}
		mu.Lock()
		order = append(order, op.id)
		mu.Unlock()
		return nil
	}, nil)

	// Occupy the writer so subsequent operations pile up in the queue.
	blocker := newTestOp("blocker", PriorityNormal)
	sched.enqueue(blocker)
	require.Eventually(t, func() bool {
		return sched.pendingCount() == 0
	}, time.Second, time.Millisecond)

	a := newTestOp("a", PriorityNormal)
	b := newTestOp("b", PriorityNormal)
	c := newTestOp("c", PriorityHigh)
	d := newTestOp("d", PriorityHigh)
	sched.enqueue(a)
	sched.enqueue(b)
	sched.enqueue(c)
	sched.enqueue(d)
	close(gate)

	for _, op := range []*saveOperation{blocker, a, b, c, d} {
		require.NoError(t, <-op.done)
	}
	sched.wait()

	// High priority jumps normal entries but stays FIFO among highs.
	assert.Equal(t, []string{"blocker", "c", "d", "a", "b"}, order)
}

func TestScheduler_ErrorDoesNotStopDrain(t *testing.T) {
	errBoom := errors.New("boom")

	sched := newScheduler(func(_ context.Context, op *saveOperation) error {
		if op.id == "bad" {
			return errBoom
		}
		return nil
	}, nil)

	bad := newTestOp("bad", PriorityNormal)
	good := newTestOp("good", PriorityNormal)
	sched.enqueue(bad)
	sched.enqueue(good)

	assert.ErrorIs(t, <-bad.done, errBoom)
	assert.NoError(t, <-good.done)
	sched.wait()
}

func TestScheduler_FlushSync(t *testing.T) {
	gate := make(chan struct{})

	var mu sync.Mutex
	var direct []string

	sched := newScheduler(
		func(_ context.Context, op *saveOperation) error {
			if op.id == "blocker" {
				<-gate
			}
			return nil
		},
		func(op *saveOperation) error {
			mu.Lock()
			direct = append(direct, op.id)
			mu.Unlock()
			return nil
		},
	)

	blocker := newTestOp("blocker", PriorityNormal)
	sched.enqueue(blocker)
	require.Eventually(t, func() bool {
		return sched.pendingCount() == 0
	}, time.Second, time.Millisecond)

	a := newTestOp("a", PriorityNormal)
	b := newTestOp("b", PriorityNormal)
	sched.enqueue(a)
	sched.enqueue(b)

	type result struct {
		flushed int
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		flushed, err := sched.flushSync()
		resCh <- result{flushed, err}
	}()

	// The flush steals the queue immediately, then waits for the in-flight
	// write to release the write lock.
	require.Eventually(t, func() bool {
		return sched.pendingCount() == 0
	}, time.Second, time.Millisecond)
	close(gate)

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.flushed)
	assert.Equal(t, []string{"a", "b"}, direct)

	require.NoError(t, <-blocker.done)
	assert.NoError(t, <-a.done)
	assert.NoError(t, <-b.done)
	sched.wait()
}

func TestScheduler_FlushSyncExtras(t *testing.T) {
	errWrite := errors.New("write failed")

	sched := newScheduler(nil, func(op *saveOperation) error {
		if op.id == "bad" {
			return errWrite
		}
		return nil
	})

	good := newTestOp("good", PriorityNormal)
	bad := newTestOp("bad", PriorityNormal)

	flushed, err := sched.flushSync(good, bad)
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 1, flushed)
	assert.NoError(t, <-good.done)
	assert.ErrorIs(t, <-bad.done, errWrite)
}
