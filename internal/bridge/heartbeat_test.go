package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatStaysHealthyUnderContinuousPongs(t *testing.T) {
	health := NewHealthState()
	sends := 0
	hb := NewHeartbeat(20*time.Millisecond, 60*time.Millisecond, func() { sends++ }, health)

	hb.Start()
	defer hb.Stop()

	stop := time.After(250 * time.Millisecond)
	ticker := time.NewTicker(15 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			hb.OnPong(time.Now())
		case <-stop:
			break loop
		}
	}

	status, reason := health.Status()
	require.Equal(t, Healthy, status, "reason: %s", reason)
}

func TestHeartbeatFlipsUnhealthyWhenPongsStop(t *testing.T) {
	health := NewHealthState()
	hb := NewHeartbeat(15*time.Millisecond, 40*time.Millisecond, func() {}, health)

	hb.Start()
	defer hb.Stop()

	hb.OnPong(time.Now())

	require.Eventually(t, func() bool {
		status, _ := health.Status()
		return status == Unhealthy
	}, time.Second, 10*time.Millisecond)
}
