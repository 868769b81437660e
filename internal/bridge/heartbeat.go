package bridge

import (
	"sync"
	"time"
)

// Heartbeat drives the ping/pong cadence: send __ping__ every interval,
// and if timeout is nonzero (armed after the first observed pong) and
// no pong arrives within it, mark the backend unhealthy.
type Heartbeat struct {
	interval time.Duration
	timeout  time.Duration

	send   func()
	health *HealthState

	mu       sync.Mutex
	armed    bool
	stopCh   chan struct{}
	stopOnce sync.Once
	pongCh   chan struct{}
}

// NewHeartbeat constructs a heartbeat driver. send is invoked from the
// heartbeat goroutine to enqueue the __ping__ envelope; health is
// the state it reports into on timeout.
func NewHeartbeat(interval, timeout time.Duration, send func(), health *HealthState) *Heartbeat {
	return &Heartbeat{interval: interval, timeout: timeout, send: send, health: health, stopCh: make(chan struct{}), pongCh: make(chan struct{}, 1)}
}

// Start begins the ping cadence in a background goroutine.
func (hb *Heartbeat) Start() {
	if hb.interval <= 0 {
		return
	}
	go hb.loop()
}

func (hb *Heartbeat) loop() {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	var timeoutTimer *time.Timer
	var timeoutC <-chan time.Time

	stopTimer := func() {
		if timeoutTimer != nil {
			timeoutTimer.Stop()
			timeoutTimer = nil
			timeoutC = nil
		}
	}

	for {
		select {
		case <-hb.stopCh:
			return
		case <-ticker.C:
			hb.send()
			if hb.armedTimeout() && timeoutTimer == nil {
				timeoutTimer = time.NewTimer(hb.timeout)
				timeoutC = timeoutTimer.C
			}
		case <-hb.pongCh:
			// A pong observed within the current window resets it: the
			// backend is alive, so the timer watching for its absence
			// no longer applies.
			stopTimer()
		case <-timeoutC:
			hb.health.MarkUnhealthy("heartbeat timeout")
			timeoutTimer = nil
			timeoutC = nil
		}
	}
}

func (hb *Heartbeat) armedTimeout() bool {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return hb.armed && hb.timeout > 0
}

// OnPong resets the timeout window and arms the timeout mechanism after
// the first pong is ever observed. Callers pass the already-resolved
// timeout to NewHeartbeat; OnPong here only arms/disarms and reports
// health.
func (hb *Heartbeat) OnPong(at time.Time) {
	hb.mu.Lock()
	hb.armed = true
	hb.mu.Unlock()
	hb.health.MarkHealthy(at)
	select {
	case hb.pongCh <- struct{}{}:
	default:
	}
}

// Stop halts the ping cadence.
func (hb *Heartbeat) Stop() {
	hb.stopOnce.Do(func() { close(hb.stopCh) })
}

// DerivedTimeout computes the effective heartbeat timeout: if
// configuredTimeout is 0 (disabled), the effective timeout becomes
// interval*3 once armed; otherwise the configured value is used as-is.
func DerivedTimeout(interval, configuredTimeout time.Duration) time.Duration {
	if configuredTimeout > 0 {
		return configuredTimeout
	}
	return interval * 3
}
