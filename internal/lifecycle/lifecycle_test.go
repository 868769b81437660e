package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDestroyer struct {
	called bool
	err    error
}

func (f *fakeDestroyer) DestroyWindow(uintptr) error {
	f.called = true
	return f.err
}

type fakePump struct {
	destroyAfter int
	calls        int
}

func (p *fakePump) PumpOnce(handle uintptr) (destroyObserved bool, empty bool) {
	p.calls++
	if p.calls >= p.destroyAfter {
		return true, false
	}
	return false, false
}

func TestCloseObservesDestructionBeforeIterationCap(t *testing.T) {
	d := &fakeDestroyer{}
	p := &fakePump{destroyAfter: 5}

	err := Close(context.Background(), d, p, 0x1234, 100, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, d.called)
	assert.Equal(t, 5, p.calls)
}

func TestCloseStopsAtIterationCapWhenNeverDestroyed(t *testing.T) {
	d := &fakeDestroyer{}
	p := &fakePump{destroyAfter: 1000}

	err := Close(context.Background(), d, p, 0x1234, 10, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 10, p.calls)
}

func TestCloseStopsWhenPumpReportsEmpty(t *testing.T) {
	d := &fakeDestroyer{}
	p := &emptyAfterOnePump{}

	err := Close(context.Background(), d, p, 0x1234, 100, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

type emptyAfterOnePump struct{ calls int }

func (p *emptyAfterOnePump) PumpOnce(handle uintptr) (destroyObserved bool, empty bool) {
	p.calls++
	return false, true
}

func TestCloseNoopPumpDegeneratesToSynchronousDestroy(t *testing.T) {
	d := &fakeDestroyer{}
	err := Close(context.Background(), d, NoopPump{}, 0, DefaultIterationCap, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, d.called)
}
