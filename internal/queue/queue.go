// Package queue implements the bounded intake queue between OS window-event
// callbacks and the dispatcher tick. Push is the only operation callbacks
// may call: it never blocks and never touches dispatcher-owned state, which
// is the single most important invariant in the system (per the design
// notes: callback bodies may only enqueue, never mutate shared state).
//
// "Lock-free" here means lock-free with respect to the dispatcher: Push
// takes only a queue-private mutex, held for a few slice operations, and
// never waits on any lock the dispatcher or an OS reposition call might
// hold. A literal compare-and-swap ring buffer was not available in the
// reference corpus for this exact coalescing policy, so this is the
// documented interpretation (see DESIGN.md).
package queue

import (
	"sync"
	"time"
)

// Kind classifies a raw OS window event.
type Kind int

const (
	Create Kind = iota
	Destroy
	LocationChange
	Foreground
	MoveStart
	MoveStop
	ResizeStart
	ResizeStop
	Minimize
	Restore
)

// RawEvent is the minimal value constructed inside an OS callback.
type RawEvent struct {
	Kind      Kind
	Handle    uint64
	Timestamp time.Time
}

// Queue is a bounded, handle-aware MPSC queue with the coalescing policy
// from the event intake design: consecutive LocationChange events for a
// handle collapse into the most recent one, MoveStart/ResizeStart are
// preserved verbatim, and Destroy supersedes any other pending event for
// that handle.
type Queue struct {
	mu       sync.Mutex
	capacity int
	events   []RawEvent
	dropped  uint64
}

// New creates a Queue bounded to capacity events.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}

	return &Queue{capacity: capacity, events: make([]RawEvent, 0, capacity)}
}

// Push enqueues ev, applying the coalescing policy. It never blocks.
func (q *Queue) Push(ev RawEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ev.Kind == Destroy {
		q.dropHandleLocked(ev.Handle)
		q.appendLocked(ev)

		return
	}

	if ev.Kind == LocationChange {
		// Only the handle's latest pending event can absorb ev, so a
		// LocationChange never collapses across another kind for that handle.
		for i := len(q.events) - 1; i >= 0; i-- {
			if q.events[i].Handle != ev.Handle {
				continue
			}

			if q.events[i].Kind == LocationChange {
				q.events[i] = ev

				return
			}

			break
		}
	}

	q.appendLocked(ev)
}

// appendLocked appends ev, evicting under the full-queue policy first if
// needed. Caller holds q.mu.
func (q *Queue) appendLocked(ev RawEvent) {
	if len(q.events) >= q.capacity {
		q.evictLocked(ev)
	}

	q.events = append(q.events, ev)
}

// evictLocked makes room for one more event when the queue is full,
// preferring to drop the oldest event of the same (handle, kind) pair as
// the incoming one; failing that, it drops the oldest event of any kind.
func (q *Queue) evictLocked(incoming RawEvent) {
	for i := range q.events {
		if q.events[i].Handle == incoming.Handle && q.events[i].Kind == incoming.Kind {
			q.events = append(q.events[:i], q.events[i+1:]...)
			q.dropped++

			return
		}
	}

	if len(q.events) > 0 {
		q.events = q.events[1:]
		q.dropped++
	}
}

// dropHandleLocked removes every pending event for handle. Caller holds q.mu.
func (q *Queue) dropHandleLocked(handle uint64) {
	out := q.events[:0]

	for _, ev := range q.events {
		if ev.Handle != handle {
			out = append(out, ev)
		}
	}

	q.events = out
}

// Drain removes and returns up to max events, in FIFO order.
func (q *Queue) Drain(max int) []RawEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.events) == 0 {
		return nil
	}

	n := min(max, len(q.events))
	batch := append([]RawEvent(nil), q.events[:n]...)
	q.events = q.events[n:]

	return batch
}

// Len reports the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.events)
}

// Dropped reports the cumulative number of events evicted by the full-queue
// policy, for metrics/diagnostics.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.dropped
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}
