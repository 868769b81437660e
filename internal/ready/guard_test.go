package ready

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-view/auroraview/internal/auroraerr"
)

func TestGuardCallRunsImmediatelyWhenFlagAlreadySet(t *testing.T) {
	b := New()
	b.Set(Loaded)
	g := RequireLoaded(b, time.Second)

	ran := false
	err := Call(g, func() error { ran = true; return nil })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuardCallBlocksUntilFlagSet(t *testing.T) {
	b := New()
	g := RequireLoaded(b, time.Second)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Set(Loaded)
	}()

	err := Call(g, func() error { return nil })
	require.NoError(t, err)
}

func TestGuardCallTimesOutAsAuroraerrTimeout(t *testing.T) {
	b := New()
	g := RequireBridgeReady(b, 20*time.Millisecond)

	ran := false
	err := Call(g, func() error { ran = true; return nil })
	require.Error(t, err)
	assert.False(t, ran)

	var structured *auroraerr.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, auroraerr.KindTimeout, structured.Kind)
}

func TestGuardCallValuePropagatesResult(t *testing.T) {
	b := New()
	b.Set(BridgeReady)
	g := RequireBridgeReady(b, time.Second)

	v, err := CallValue(g, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
