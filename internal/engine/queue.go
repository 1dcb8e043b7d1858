package engine

import (
	"sync"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/tx"
)

type eventType int

const (
	eventSubmit eventType = iota + 1
	eventClose
)

// event is one request for the Run loop. Exactly one of submit and close is
// set, matching typ.
type event struct {
	typ    eventType
	submit *submitRequest
	close  *closeRequest
}

type submitRequest struct {
	tx    *protocol.Tx
	flags tx.ApplyFlags
	reply chan submitReply
}

type submitReply struct {
	outcome Outcome
	err     error
}

type closeRequest struct {
	closeTime uint32
	reply     chan closeReply
}

type closeReply struct {
	result *CloseResult
	err    error
}

// eventQueue is a thread-safe, unbounded FIFO of events.
//
// Submitters enqueue from any goroutine while the Run loop dequeues. The
// signal channel lets the loop wait for work and for ctx cancellation in
// the same select.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// The size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}
	e := q.events[0]
	// Release the slot so the reply channels can be collected.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed, and so fires forever, once the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes the Run loop.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
