package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurora-view/auroraview/internal/queue"
	"github.com/aurora-view/auroraview/internal/ready"
	"github.com/aurora-view/auroraview/pkg/engine"
	"github.com/aurora-view/auroraview/pkg/engine/headless"
)

func newTestDispatcher(t *testing.T, cb HostCallback) (*Dispatcher, *queue.MessageQueue, *headless.Engine) {
	t.Helper()
	eng, err := headless.New(engine.Config{})
	require.NoError(t, err)

	q := queue.New()
	b := ready.New()
	d := New(Embedded, q, b, eng, nil, WithHostCallback(cb))
	return d, q, eng
}

func TestEngineNativeMessagesExecuteInSubmissionOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	eng, err := headless.New(engine.Config{})
	require.NoError(t, err)

	op := func(ctx context.Context, e engine.Engine, msg *queue.WebViewMessage) error {
		mu.Lock()
		order = append(order, msg.Source)
		mu.Unlock()
		return nil
	}

	q := queue.New()
	d := New(Embedded, q, ready.New(), eng, op)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(&queue.WebViewMessage{Type: queue.TypeEvalScript, Source: s}))
	}
	d.Tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHostCallbackRunsWithEngineLockReleased(t *testing.T) {
	var acquiredDuringCallback bool
	d, q, _ := newTestDispatcher(t, nil)

	callback := func(ctx context.Context, msg *queue.WebViewMessage) (any, error) {
		locked := d.engineMu.TryLock()
		acquiredDuringCallback = locked
		if locked {
			d.engineMu.Unlock()
		}
		return nil, nil
	}
	d.hostCallback = callback

	reply := queue.NewReply[any]()
	require.NoError(t, q.Push(&queue.WebViewMessage{
		Type:      queue.TypeToolInvocation,
		Tool:      "reenter",
		ToolReply: reply,
	}))

	d.Tick(context.Background())

	assert.True(t, acquiredDuringCallback, "engine lock must be free during host callback execution")
	res := <-reply.Recv()
	assert.NoError(t, res.Err)
}

func TestCloseDrainsPendingRepliesWithCancelled(t *testing.T) {
	d, q, _ := newTestDispatcher(t, func(ctx context.Context, msg *queue.WebViewMessage) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "late", nil
	})

	// Close is drained first, so the two invocations queued behind it are
	// still pending when it runs and must be cancelled, never executed.
	reply1 := queue.NewReply[any]()
	reply2 := queue.NewReply[any]()
	require.NoError(t, q.Push(&queue.WebViewMessage{Type: queue.TypeClose}))
	require.NoError(t, q.Push(&queue.WebViewMessage{Type: queue.TypeToolInvocation, ToolReply: reply1}))
	require.NoError(t, q.Push(&queue.WebViewMessage{Type: queue.TypeToolInvocation, ToolReply: reply2}))

	d.Tick(context.Background())

	select {
	case res := <-reply1.Recv():
		assert.Error(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("reply1 never resolved")
	}
	select {
	case res := <-reply2.Recv():
		assert.Error(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("reply2 never resolved")
	}
}

func TestEvalScriptWithReplyResolvesExactlyOnce(t *testing.T) {
	eng, err := headless.New(engine.Config{})
	require.NoError(t, err)
	q := queue.New()
	d := New(Embedded, q, ready.New(), eng, nil)

	reply := queue.NewReply[string]()
	require.NoError(t, q.Push(&queue.WebViewMessage{
		Type:        queue.TypeEvalScriptWithReply,
		Source:      `"hello"`,
		ScriptReply: reply,
	}))
	d.Tick(context.Background())

	res := <-reply.Recv()
	require.NoError(t, res.Err)
	assert.Equal(t, "hello", res.Value)
}

func TestStandaloneRunDrainsOnQueueSignal(t *testing.T) {
	eng, err := headless.New(engine.Config{})
	require.NoError(t, err)
	q := queue.New()
	d := New(Standalone, q, ready.New(), eng, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx)

	reply := queue.NewReply[string]()
	require.NoError(t, q.Push(&queue.WebViewMessage{Type: queue.TypeEvalScriptWithReply, Source: "1+1", ScriptReply: reply}))

	select {
	case res := <-reply.Recv():
		require.NoError(t, res.Err)
		assert.Equal(t, "2", res.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("standalone dispatcher never drained the queued message")
	}
}
