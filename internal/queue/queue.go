// Package queue implements the per-window message queue: an unbounded
// multi-producer FIFO of WebViewMessage, with an atomically installed
// wakeup handle that signals a waiting dispatcher.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/aurora-view/auroraview/internal/auroraerr"
)

// WakeupHandle is invoked by the queue whenever a message is pushed, or
// when the handle is freshly installed. Implementations must be safe to
// call from any goroutine and must not block.
type WakeupHandle func()

// MessageQueue is constructed once per window. The zero value is not
// usable; construct with New.
type MessageQueue struct {
	mu        sync.Mutex
	items     []*WebViewMessage
	closed    bool
	seq       atomic.Uint64
	wakeup    atomic.Pointer[WakeupHandle]
	connected atomic.Bool
}

func New() *MessageQueue {
	q := &MessageQueue{}
	q.connected.Store(true)
	return q
}

// Push enqueues a message and signals the wakeup handle if one is
// installed. It never blocks and never fails while the receiver side
// (the dispatcher) lives; after Disconnect it returns EventLoopClosed.
func (q *MessageQueue) Push(msg *WebViewMessage) error {
	if !q.connected.Load() {
		return auroraerr.EventLoopClosed()
	}
	msg.Seq = q.seq.Add(1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return auroraerr.EventLoopClosed()
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *MessageQueue) signal() {
	if h := q.wakeup.Load(); h != nil {
		(*h)()
	}
}

// InstallWakeup atomically swaps in the dispatcher's wakeup handle and
// unconditionally re-signals it, so messages enqueued before
// installation are not lost.
func (q *MessageQueue) InstallWakeup(h WakeupHandle) {
	q.wakeup.Store(&h)
	h()
}

// DrainInto pops up to budget messages in FIFO order and passes each to
// handle. It stops early if handle returns false (the dispatcher's
// handler always returns true; after a Close, Disconnect has already
// emptied the queue). DrainInto returns the number
// of messages consumed and whether the queue still has more pending.
func (q *MessageQueue) DrainInto(budget int, handle func(*WebViewMessage) bool) (consumed int, more bool) {
	for consumed < budget {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return consumed, false
		}
		msg := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		consumed++
		if !handle(msg) {
			return consumed, q.Len() > 0
		}
	}
	return consumed, q.Len() > 0
}

// Len reports the number of messages currently queued.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Disconnect marks the queue closed: subsequent Push calls observe
// EventLoopClosed, and it returns any remaining items so the caller
// can resolve their reply sinks with Cancelled.
func (q *MessageQueue) Disconnect() []*WebViewMessage {
	q.connected.Store(false)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	remaining := q.items
	q.items = nil
	return remaining
}

// Connected reports whether the queue still accepts pushes.
func (q *MessageQueue) Connected() bool { return q.connected.Load() }
