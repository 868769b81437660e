// Package ready implements the per-window ready-state barrier: four
// independent one-shot latches — created, shown, loaded, bridge_ready —
// each recording the instant it was set, so the orderings created<=shown
// and loaded<=bridge_ready can be checked; callers set them in that order.
package ready

import (
	"sync"
	"time"
)

// Flag identifies one of the four latches.
type Flag int

const (
	Created Flag = iota
	Shown
	Loaded
	BridgeReady

	flagCount
)

func (f Flag) String() string {
	switch f {
	case Created:
		return "created"
	case Shown:
		return "shown"
	case Loaded:
		return "loaded"
	case BridgeReady:
		return "bridge_ready"
	default:
		return "unknown"
	}
}

// latch is a manually-resettable one-shot event.
type latch struct {
	mu   sync.Mutex
	ch   chan struct{}
	isSet bool
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

func (l *latch) set() (changed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isSet {
		return false
	}
	l.isSet = true
	close(l.ch)
	return true
}

func (l *latch) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.isSet = false
	l.ch = make(chan struct{})
}

func (l *latch) snapshot() (bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isSet, l.ch
}

// Barrier holds the four flags for one window. The zero value is not
// usable; construct with New.
type Barrier struct {
	latches [flagCount]*latch

	mu          sync.Mutex
	createdAt   time.Time
	shownAt     time.Time
	loadedAt    time.Time
	bridgeReady time.Time
}

func New() *Barrier {
	b := &Barrier{}
	for i := range b.latches {
		b.latches[i] = newLatch()
	}
	return b
}

// Set marks the flag as set. It is idempotent: setting an already-set
// flag is a no-op. Callers (the dispatcher) are responsible for calling
// Set in an order that respects created≤shown and loaded≤bridge_ready;
// Set itself does not block out-of-order calls, it only records them —
// ordering is an invariant on the caller, verified by tests via the
// recorded timestamps.
func (b *Barrier) Set(f Flag) {
	if f < 0 || f >= flagCount {
		return
	}
	if !b.latches[f].set() {
		return
	}
	now := time.Now()
	b.mu.Lock()
	switch f {
	case Created:
		b.createdAt = now
	case Shown:
		b.shownAt = now
	case Loaded:
		b.loadedAt = now
	case BridgeReady:
		b.bridgeReady = now
	}
	b.mu.Unlock()
}

// IsSet reports whether the flag has been set.
func (b *Barrier) IsSet(f Flag) bool {
	if f < 0 || f >= flagCount {
		return false
	}
	isSet, _ := b.latches[f].snapshot()
	return isSet
}

// Wait blocks until the flag is set or timeout elapses, returning
// whether it was observed set.
func (b *Barrier) Wait(f Flag, timeout time.Duration) bool {
	if f < 0 || f >= flagCount {
		return false
	}
	isSet, ch := b.latches[f].snapshot()
	if isSet {
		return true
	}
	if timeout <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// WaitAll blocks until all four flags are set or one overall deadline
// elapses.
func (b *Barrier) WaitAll(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for f := Flag(0); f < flagCount; f++ {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if !b.Wait(f, remaining) {
			return false
		}
	}
	return true
}

// Snapshot returns the set/unset state of all four flags.
type Snapshot struct {
	Created     bool
	Shown       bool
	Loaded      bool
	BridgeReady bool
}

func (b *Barrier) Snapshot() Snapshot {
	return Snapshot{
		Created:     b.IsSet(Created),
		Shown:       b.IsSet(Shown),
		Loaded:      b.IsSet(Loaded),
		BridgeReady: b.IsSet(BridgeReady),
	}
}

// OrderingTimestamps exposes the recorded set() instants for the two
// ordered pairs, for test verification of created≤shown, loaded≤bridge_ready.
func (b *Barrier) OrderingTimestamps() (created, shown, loaded, bridgeReady time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createdAt, b.shownAt, b.loadedAt, b.bridgeReady
}

// Reset clears all four flags. Intended for tests only.
func (b *Barrier) Reset() {
	for _, l := range b.latches {
		l.reset()
	}
	b.mu.Lock()
	b.createdAt, b.shownAt, b.loadedAt, b.bridgeReady = time.Time{}, time.Time{}, time.Time{}, time.Time{}
	b.mu.Unlock()
}
