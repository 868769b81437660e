package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-view/auroraview/internal/auroraerr"
)

func TestQueuePushPreservesFIFOPerProducer(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(&WebViewMessage{Type: TypeEvalScript, Source: string(rune('a' + i))}))
	}

	var seen []string
	_, more := q.DrainInto(10, func(m *WebViewMessage) bool {
		seen = append(seen, m.Source)
		return true
	})

	assert.False(t, more)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestQueueInstallWakeupFlushesPendingMessages(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(&WebViewMessage{Type: TypeEvalScript}))

	var signalled int
	var mu sync.Mutex
	q.InstallWakeup(func() {
		mu.Lock()
		signalled++
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, signalled, 1, "install must re-signal unconditionally")
}

func TestQueueDrainRespectsBudget(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(&WebViewMessage{Type: TypeEvalScript}))
	}

	consumed, more := q.DrainInto(3, func(m *WebViewMessage) bool { return true })
	assert.Equal(t, 3, consumed)
	assert.True(t, more)
	assert.Equal(t, 7, q.Len())
}

func TestQueuePushAfterDisconnectReturnsEventLoopClosed(t *testing.T) {
	q := New()
	q.Disconnect()

	err := q.Push(&WebViewMessage{Type: TypeEvalScript})
	require.Error(t, err)
	assert.True(t, errorsIsEventLoopClosed(err))
}

func errorsIsEventLoopClosed(err error) bool {
	ae, ok := err.(*auroraerr.Error)
	return ok && ae.Kind == auroraerr.KindEventLoopClosed
}

func TestQueueDisconnectReturnsRemainingMessagesForCancellation(t *testing.T) {
	q := New()
	require.NoError(t, q.Push(&WebViewMessage{Type: TypeEvalScriptWithReply, ScriptReply: NewReply[string]()}))
	require.NoError(t, q.Push(&WebViewMessage{Type: TypeEvalScriptWithReply, ScriptReply: NewReply[string]()}))

	remaining := q.Disconnect()
	require.Len(t, remaining, 2)
	for _, m := range remaining {
		m.ScriptReply.Fail(auroraerr.Cancelled())
		res := <-m.ScriptReply.Recv()
		assert.Error(t, res.Err)
	}
}

func TestConcurrentProducersDoNotLoseMessages(t *testing.T) {
	q := New()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(&WebViewMessage{Type: TypeEvalScript})
			}
		}()
	}
	wg.Wait()

	total := 0
	for {
		n, more := q.DrainInto(1000, func(m *WebViewMessage) bool { return true })
		total += n
		if !more {
			break
		}
	}
	assert.Equal(t, producers*perProducer, total)
}
