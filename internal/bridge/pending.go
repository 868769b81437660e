package bridge

import (
	"sync"
	"time"

	"github.com/aurora-view/auroraview/internal/auroraerr"
)

// pendingCall is one outstanding call(...) awaiting a call_result.
type pendingCall struct {
	reply    chan Result
	deadline time.Time
}

// Result is what a pending call resolves with: either ok+value or an
// error envelope.
type Result struct {
	OK    bool
	Value any
	Err   *ErrorPayload
}

// PendingCallTable is a keyed-by-id map of outstanding calls,
// concurrent-safe for writers on both the IPC-inbound goroutine and the
// dispatcher thread.
//
// Grounded on chromedp's Target.Execute: an atomic-ID-keyed map entry
// holding a buffered, single-reader reply channel, correlated by id on
// the inbound listener.
type PendingCallTable struct {
	mu      sync.Mutex
	entries map[string]*pendingCall
}

func NewPendingCallTable() *PendingCallTable {
	return &PendingCallTable{entries: make(map[string]*pendingCall)}
}

// Register adds a new pending entry with the given deadline and returns
// the channel the caller should wait on for its resolution.
func (t *PendingCallTable) Register(id string, deadline time.Time) <-chan Result {
	entry := &pendingCall{reply: make(chan Result, 1), deadline: deadline}
	t.mu.Lock()
	t.entries[id] = entry
	t.mu.Unlock()
	return entry.reply
}

// Resolve delivers a call_result to the pending entry keyed by id, then
// purges it. Returns false if no entry was found (late or unknown id).
func (t *PendingCallTable) Resolve(id string, res Result) bool {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	entry.reply <- res
	return true
}

// PurgeExpired rejects and removes every entry whose deadline has
// passed relative to now, returning how many were purged. Intended to
// be called from a periodic sweeper or the IPC-handler's hot path.
func (t *PendingCallTable) PurgeExpired(now time.Time) int {
	t.mu.Lock()
	var expired []*pendingCall
	for id, entry := range t.entries {
		if now.After(entry.deadline) {
			expired = append(expired, entry)
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()

	for _, entry := range expired {
		entry.reply <- Result{OK: false, Err: timeoutErrorPayload()}
	}
	return len(expired)
}

// CancelAll rejects and removes every pending entry with the given
// error, used for Close (Cancelled) and backend-unhealthy transitions
// (BackendUnavailable), per invariants 5 and 6.
func (t *PendingCallTable) CancelAll(errPayload *ErrorPayload) int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pendingCall)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.reply <- Result{OK: false, Err: errPayload}
	}
	return len(entries)
}

// Cancel removes a pending entry without resolving it, used when a
// local caller gives up waiting (its own context deadline) and a late
// resolution would otherwise be sent to nobody.
func (t *PendingCallTable) Cancel(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// Len reports the number of outstanding calls, for diagnostics.
func (t *PendingCallTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func timeoutErrorPayload() *ErrorPayload {
	return &ErrorPayload{Name: string(auroraerr.KindTimeout), Message: "call deadline exceeded"}
}

func cancelledErrorPayload() *ErrorPayload {
	return &ErrorPayload{Name: string(auroraerr.KindCancelled), Message: "cancelled"}
}

func backendUnavailableErrorPayload(reason string) *ErrorPayload {
	return &ErrorPayload{Name: string(auroraerr.KindBackendUnavailable), Message: "backend unavailable", Data: map[string]any{"reason": reason}}
}
