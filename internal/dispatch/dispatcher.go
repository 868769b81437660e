// Package dispatch implements the event-loop dispatcher: the single
// main-thread serialization point that drains a window's message queue
// against its engine handle, with a lock-release rule that lets host
// callbacks re-enter the dispatcher without deadlocking.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aurora-view/auroraview/internal/auroraerr"
	"github.com/aurora-view/auroraview/internal/queue"
	"github.com/aurora-view/auroraview/internal/ready"
	"github.com/aurora-view/auroraview/pkg/engine"
)

// DefaultDrainBudget is the per-tick message cap.
const DefaultDrainBudget = 64

// Mode selects how the dispatcher integrates with an outer event loop.
type Mode int

const (
	// Standalone: the dispatcher owns the loop (ticked by its own
	// goroutine reacting to the queue's wakeup signal).
	Standalone Mode = iota
	// Embedded: a foreign host loop calls Tick from its idle hook.
	Embedded
)

// HostCallback is the opaque function the dispatcher invokes with the
// engine handle released. It must not panic across the boundary;
// Dispatcher recovers and logs instead of propagating.
type HostCallback func(ctx context.Context, msg *queue.WebViewMessage) (any, error)

// EngineOp applies one engine-native message to the engine. The
// dispatcher holds the engine lock for the duration of this call.
type EngineOp func(ctx context.Context, eng engine.Engine, msg *queue.WebViewMessage) error

// Dispatcher is constructed once per window.
type Dispatcher struct {
	mode Mode

	queue   *queue.MessageQueue
	barrier *ready.Barrier
	logger  zerolog.Logger

	engineMu sync.Mutex // held only while draining engine-native messages
	eng      engine.Engine

	budget int

	hostCallback HostCallback
	engineOp     EngineOp

	shouldExit atomic.Bool
	wake       chan struct{}
	tickDone   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// Option configures a Dispatcher at construction.
type Option func(*Dispatcher)

func WithDrainBudget(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.budget = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithHostCallback(cb HostCallback) Option {
	return func(d *Dispatcher) { d.hostCallback = cb }
}

// New constructs a dispatcher bound to q/barrier/eng in the given mode.
// engineOp supplies the concrete engine-native execution switch; the
// default, if nil, is DefaultEngineOp.
func New(mode Mode, q *queue.MessageQueue, barrier *ready.Barrier, eng engine.Engine, engineOp EngineOp, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mode:     mode,
		queue:    q,
		barrier:  barrier,
		eng:      eng,
		engineOp: engineOp,
		budget:   DefaultDrainBudget,
		logger:   zerolog.Nop(),
		wake:     make(chan struct{}, 1),
		tickDone: make(chan struct{}),
	}
	if d.engineOp == nil {
		d.engineOp = DefaultEngineOp
	}
	for _, opt := range opts {
		opt(d)
	}
	q.InstallWakeup(d.signalWake)
	return d
}

func (d *Dispatcher) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run starts the standalone-mode loop: a goroutine that blocks on the
// queue's wakeup signal and drains on each wake, until Stop is called.
// Calling Run in Embedded mode is a programming error and panics.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.mode != Standalone {
		panic("dispatch: Run called on an Embedded-mode dispatcher; use Tick instead")
	}
	d.startOnce.Do(func() {
		go d.loop(ctx)
	})
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.tickDone)
	for {
		if d.shouldExit.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}
		d.Tick(ctx)
		if d.shouldExit.Load() {
			return
		}
	}
}

// Tick runs the drain procedure once, bounded by the configured budget.
// Embedded-mode hosts call this from their idle hook; standalone mode
// calls it internally from Run's loop.
func (d *Dispatcher) Tick(ctx context.Context) {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()

	_, more := d.queue.DrainInto(d.budget, func(msg *queue.WebViewMessage) bool {
		d.execute(ctx, msg)
		return true
	})
	if more {
		d.signalWake()
	}
}

func (d *Dispatcher) execute(ctx context.Context, msg *queue.WebViewMessage) {
	if msg.IsEngineNative() {
		if msg.Type == queue.TypeClose {
			d.handleClose(ctx, msg)
			return
		}
		if err := d.engineOp(ctx, d.eng, msg); err != nil {
			d.logger.Error().Str("msg_type", string(msg.Type)).Err(err).Msg("engine op failed")
			if msg.Type == queue.TypeEvalScriptWithReply && msg.ScriptReply != nil {
				msg.ScriptReply.Fail(auroraerr.ScriptExecution(preview(msg.Source), err.Error()))
			}
			return
		}
		if msg.Type == queue.TypeSetVisible && msg.Visible {
			d.barrier.Set(ready.Shown)
		}
		return
	}
	d.executeHostInvoking(ctx, msg)
}

// executeHostInvoking releases the engine lock for the duration of the
// host callback so it can safely re-enter the dispatcher, then
// reacquires it.
func (d *Dispatcher) executeHostInvoking(ctx context.Context, msg *queue.WebViewMessage) {
	d.engineMu.Unlock()
	result, err := d.invokeHostSafely(ctx, msg)
	d.engineMu.Lock()

	switch msg.Type {
	case queue.TypeToolInvocation:
		if msg.ToolReply != nil {
			if err != nil {
				msg.ToolReply.Fail(err)
			} else {
				msg.ToolReply.Ok(result)
			}
		}
	case queue.TypeHostCallbackDeferred:
		if err != nil {
			d.logger.Error().Uint64("callback_token", msg.CallbackToken).Err(err).Msg("host callback failed")
		}
	}
}

// invokeHostSafely recovers a panicking host callback rather than
// letting it unwind into the dispatcher goroutine; a host callback
// exception must never unwind across the FFI boundary.
func (d *Dispatcher) invokeHostSafely(ctx context.Context, msg *queue.WebViewMessage) (result any, err error) {
	if d.hostCallback == nil {
		return nil, auroraerr.New(auroraerr.KindEncoding, "no host callback registered")
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("host callback panicked; recovered at FFI boundary")
			err = auroraerr.New(auroraerr.KindEncoding, "host callback panicked")
		}
	}()
	return d.hostCallback(ctx, msg)
}

// handleClose drops the engine handle and drains remaining messages
// with Cancelled.
func (d *Dispatcher) handleClose(ctx context.Context, closeMsg *queue.WebViewMessage) {
	if err := d.eng.Destroy(); err != nil {
		d.logger.Warn().Err(err).Msg("engine destroy failed")
	}
	remaining := d.queue.Disconnect()
	for _, m := range remaining {
		cancelReplySink(m)
	}
	d.shouldExit.Store(true)
}

func cancelReplySink(m *queue.WebViewMessage) {
	if m.ScriptReply != nil {
		m.ScriptReply.Fail(auroraerr.Cancelled())
	}
	if m.ToolReply != nil {
		m.ToolReply.Fail(auroraerr.Cancelled())
	}
}

// Stop requests the standalone loop to exit after the current tick and
// waits for it to actually stop.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.shouldExit.Store(true)
		d.signalWake()
	})
	if d.mode == Standalone {
		<-d.tickDone
	}
}

func preview(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// DefaultEngineOp implements the engine-native switch for every
// WebViewMessage variant except Close (handled separately by the
// dispatcher to run the destruction sequence).
func DefaultEngineOp(ctx context.Context, eng engine.Engine, msg *queue.WebViewMessage) error {
	switch msg.Type {
	case queue.TypeEvalScript:
		return eng.EvaluateScript(ctx, msg.Source)
	case queue.TypeEvalScriptWithReply:
		result, err := eng.EvaluateScriptWithResult(ctx, msg.Source)
		if msg.ScriptReply == nil {
			return err
		}
		if err != nil {
			msg.ScriptReply.Fail(auroraerr.ScriptExecution(preview(msg.Source), err.Error()))
			return nil
		}
		msg.ScriptReply.Ok(result)
		return nil
	case queue.TypeLoadURL:
		return eng.LoadURL(ctx, msg.URL)
	case queue.TypeLoadHTML:
		return eng.LoadHTML(ctx, msg.Source)
	case queue.TypeEmitEvent:
		return eng.EvaluateScript(ctx, emitEventScript(msg.EventName, msg.EventPayload))
	case queue.TypeSetVisible:
		return eng.SetVisible(msg.Visible)
	case queue.TypeReload:
		return eng.Reload(ctx)
	case queue.TypeStopLoading:
		return eng.StopLoading(ctx)
	default:
		return nil
	}
}
