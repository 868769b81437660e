package bridge

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// HealthStatus is the tri-state backend health status.
type HealthStatus int

const (
	Unknown HealthStatus = iota
	Healthy
	Unhealthy
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthState tracks backend health and reports transitions to a single
// callback installed with OnTransition. A burst of
// concurrent I/O errors observed from several goroutines must produce
// one transition, not N — golang.org/x/sync/singleflight collapses
// concurrent "go unhealthy" calls into a single execution.
type HealthState struct {
	mu            sync.RWMutex
	status        HealthStatus
	reason        string
	lastHeartbeat time.Time

	group singleflight.Group

	onTransition func(HealthStatus, string)
}

func NewHealthState() *HealthState {
	return &HealthState{status: Unknown}
}

func (h *HealthState) OnTransition(fn func(HealthStatus, string)) {
	h.mu.Lock()
	h.onTransition = fn
	h.mu.Unlock()
}

func (h *HealthState) Status() (HealthStatus, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.reason
}

// MarkUnhealthy transitions to Unhealthy, collapsing concurrent callers
// reporting the same burst of failures into one transition callback.
func (h *HealthState) MarkUnhealthy(reason string) {
	h.group.Do("unhealthy:"+reason, func() (any, error) {
		h.mu.Lock()
		already := h.status == Unhealthy
		h.status = Unhealthy
		h.reason = reason
		h.mu.Unlock()
		if !already {
			h.notify(Unhealthy, reason)
		}
		return nil, nil
	})
}

// MarkHealthy transitions to Healthy and records the heartbeat instant.
func (h *HealthState) MarkHealthy(at time.Time) {
	h.mu.Lock()
	already := h.status == Healthy
	h.status = Healthy
	h.reason = ""
	h.lastHeartbeat = at
	h.mu.Unlock()
	if !already {
		h.notify(Healthy, "")
	}
}

// RecordHeartbeat updates the last-observed pong instant without
// forcing a status transition (used while already healthy).
func (h *HealthState) RecordHeartbeat(at time.Time) {
	h.mu.Lock()
	h.lastHeartbeat = at
	h.mu.Unlock()
}

func (h *HealthState) LastHeartbeat() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastHeartbeat
}

func (h *HealthState) notify(status HealthStatus, reason string) {
	h.mu.RLock()
	cb := h.onTransition
	h.mu.RUnlock()
	if cb != nil {
		cb(status, reason)
	}
}
