package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newEnabledTrace() *StartupTrace {
	return &StartupTrace{enabled: true, milestones: make([]Milestone, 0, 4)}
}

func TestStartupTraceBuffersMilestonesUntilLoggerSet(t *testing.T) {
	st := newEnabledTrace()
	st.Mark("process_start")
	st.Mark("window_created")
	require.Len(t, st.milestones, 2)
	require.Len(t, st.buffered, 2)

	logger := zerolog.Nop()
	st.SetLogger(&logger)
	require.Empty(t, st.buffered)
}

func TestStartupTraceFinishIsIdempotent(t *testing.T) {
	st := newEnabledTrace()
	logger := zerolog.Nop()
	st.SetLogger(&logger)
	st.Mark("process_start")

	st.Finish()
	require.True(t, st.finished)

	st.Mark("late_milestone")
	require.Len(t, st.milestones, 1, "Mark after Finish must be ignored")

	st.Finish()
}

func TestStartupTraceDisabledIsNoop(t *testing.T) {
	st := &StartupTrace{enabled: false}
	st.Mark("process_start")
	require.Empty(t, st.milestones)
	require.False(t, st.Enabled())
	require.Zero(t, st.TotalElapsed())
}

func TestTraceReturnsNoopWhenUninitialized(t *testing.T) {
	globalTraceMu.Lock()
	globalTrace = nil
	globalTraceMu.Unlock()

	tr := Trace()
	require.NotNil(t, tr)
	require.False(t, tr.Enabled())
}
