// Package auroraview is the public entry point: it wires the five
// internal components (queue, dispatcher, lifecycle, ready barrier,
// bridge) around a single engine.Engine into one per-window handle that
// a host application embeds.
package auroraview

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aurora-view/auroraview/internal/auroraerr"
	"github.com/aurora-view/auroraview/internal/bridge"
	"github.com/aurora-view/auroraview/internal/config"
	"github.com/aurora-view/auroraview/internal/dispatch"
	"github.com/aurora-view/auroraview/internal/lifecycle"
	"github.com/aurora-view/auroraview/internal/logging"
	"github.com/aurora-view/auroraview/internal/queue"
	"github.com/aurora-view/auroraview/internal/ready"
	"github.com/aurora-view/auroraview/pkg/engine"
)

var windowIDSeq uint64

func nextWindowID() uint64 {
	windowIDSeq++
	return windowIDSeq
}

// EngineFactory builds the concrete engine.Engine backend for a new
// window, given the fully-resolved config (with bootstrap JS already
// injected into cfg.InjectedBootstrapJS by New).
type EngineFactory func(cfg engine.Config) (engine.Engine, error)

// Params configures one Window.
type Params struct {
	Mode          dispatch.Mode
	EngineFactory EngineFactory
	EngineConfig  engine.Config
	BridgeConfig  *config.BridgeConfig // nil uses config.Defaults()
	Logger        zerolog.Logger
	Pump          lifecycle.Pump     // Embedded mode only; nil uses platform default
	Destroyer     lifecycle.Destroyer // Embedded mode only; nil wraps the engine
}

// Window is one embedded webview instance: the public-facing bundle of
// the message queue, dispatcher, ready barrier, bridge, and engine for
// a single OS window.
type Window struct {
	id uint64

	queue      *queue.MessageQueue
	dispatcher *dispatch.Dispatcher
	barrier    *ready.Barrier
	bridge     *bridge.Bridge
	engine     engine.Engine

	mode      dispatch.Mode
	pump      lifecycle.Pump
	destroyer lifecycle.Destroyer
	bridgeCfg *config.BridgeConfig
	logger    zerolog.Logger
	evalGuard ready.Guard
}

// New constructs a Window: builds the queue, ready barrier and bridge,
// injects the bootstrap JS into the engine config, builds the engine via
// EngineFactory, and wires the dispatcher with the bridge as its
// HostCallback. The window is usable immediately; Ready().Wait(Created, ...)
// observes startup completion.
func New(p Params) (*Window, error) {
	id := nextWindowID()
	logger := p.Logger.With().Uint64("window_id", id).Logger()
	trace := logging.Trace()

	bridgeCfg := p.BridgeConfig
	if bridgeCfg == nil {
		defaults := config.Defaults()
		bridgeCfg = &defaults
	}

	q := queue.New()
	barrier := ready.New()
	br := bridge.New(q, bridge.Options{
		CallTimeout:       bridgeCfg.CallTimeout(),
		BackendFailFast:   bridgeCfg.BackendFailFast,
		HeartbeatInterval: bridgeCfg.HeartbeatInterval(),
		HeartbeatTimeout:  bridgeCfg.HeartbeatTimeout(),
		Logger:            logger,
		Barrier:           barrier,
	})

	engCfg := p.EngineConfig
	engCfg.InjectedBootstrapJS = bridge.BootstrapScript(id)

	eng, err := p.EngineFactory(engCfg)
	if err != nil {
		return nil, auroraerr.Wrap(auroraerr.KindWindowOperation, "engine construction failed", err)
	}
	trace.Mark("engine_constructed")
	barrier.Set(ready.Created)
	trace.Mark("window_created")

	eng.OnIPC(br.HandleInbound)
	eng.OnNavigationCommitted(func() {
		// Loaded must be recorded before the reinjected bootstrap script
		// runs: it posts the page's own "ready" envelope, which sets
		// BridgeReady, and that ordering (loaded ≤ bridge_ready) is an
		// invariant of the barrier.
		barrier.Set(ready.Loaded)
		if err := eng.EvaluateScript(context.Background(), bridge.BootstrapScript(id)); err != nil {
			logger.Warn().Err(err).Msg("bootstrap reinjection failed after navigation")
		}
	})

	d := dispatch.New(p.Mode, q, barrier, eng, nil,
		dispatch.WithDrainBudget(int(bridgeCfg.DrainBudgetPerTick)),
		dispatch.WithLogger(logger),
		dispatch.WithHostCallback(br.HostCallback),
	)

	w := &Window{
		id:         id,
		queue:      q,
		dispatcher: d,
		barrier:    barrier,
		bridge:     br,
		engine:     eng,
		mode:       p.Mode,
		pump:       p.Pump,
		destroyer:  p.Destroyer,
		bridgeCfg:  bridgeCfg,
		logger:     logger,
	}
	if w.destroyer == nil {
		w.destroyer = &lifecycle.EngineDestroyer{Engine: eng}
	}
	if w.pump == nil {
		w.pump = lifecycle.DefaultPump()
	}
	w.evalGuard = ready.RequireLoaded(barrier, bridgeCfg.CallTimeout())

	br.Start()
	trace.Mark("bridge_started")
	if p.Mode == dispatch.Standalone {
		d.Run(context.Background())
	}
	return w, nil
}

// ID returns the window's process-unique identifier.
func (w *Window) ID() uint64 { return w.id }

// Ready returns the ready barrier for this window.
func (w *Window) Ready() *ready.Barrier { return w.barrier }

// Bridge returns the bridge for registering host methods and
// subscribing to backend health.
func (w *Window) Bridge() *bridge.Bridge { return w.bridge }

// Tick runs one bounded drain; callers in Embedded mode invoke this from
// their host idle hook. It is a programming error to call Tick on a
// Standalone-mode window.
func (w *Window) Tick(ctx context.Context) {
	w.dispatcher.Tick(ctx)
}

// Diagnostics is a read-only snapshot of queue depth, ready-barrier
// state, pending-call count and backend health, for observational
// tooling (e.g. the monitor TUI) — never consumed by the core itself.
type Diagnostics struct {
	QueueLen     int
	Ready        ready.Snapshot
	PendingCalls int
	Health       bridge.HealthStatus
	HealthReason string
}

// Diagnostics takes a snapshot. Safe to call from any goroutine.
func (w *Window) Diagnostics() Diagnostics {
	status, reason := w.bridge.HealthState().Status()
	return Diagnostics{
		QueueLen:     w.queue.Len(),
		Ready:        w.barrier.Snapshot(),
		PendingCalls: w.bridge.PendingCount(),
		Health:       status,
		HealthReason: reason,
	}
}

// EvalScript fire-and-forgets source for execution.
func (w *Window) EvalScript(source string) error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeEvalScript, Source: source})
}

// EvalScriptWithResult evaluates source and blocks until the result (or
// an error) is delivered, or ctx is done.
func (w *Window) EvalScriptWithResult(ctx context.Context, source string) (string, error) {
	reply := queue.NewReply[string]()
	if err := w.queue.Push(&queue.WebViewMessage{Type: queue.TypeEvalScriptWithReply, Source: source, ScriptReply: reply}); err != nil {
		return "", err
	}
	select {
	case res := <-reply.Recv():
		return res.Value, res.Err
	case <-ctx.Done():
		return "", auroraerr.Cancelled()
	}
}

// InvokeToolWhenLoaded is InvokeTool gated behind the Loaded latch via a
// ready.Guard: for host tools that assume the page DOM already exists
// (as opposed to InvokeTool's tools, which may run before any page is
// loaded at all).
func (w *Window) InvokeToolWhenLoaded(ctx context.Context, tool string, args any) (any, error) {
	return ready.CallValue(w.evalGuard, func() (any, error) {
		return w.InvokeTool(ctx, tool, args)
	})
}

// LoadURL navigates the engine to uri.
func (w *Window) LoadURL(uri string) error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeLoadURL, URL: uri})
}

// LoadHTML loads body as the page content directly.
func (w *Window) LoadHTML(body string) error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeLoadHTML, Source: body})
}

// EmitEvent queues window.auroraview.trigger(name, payload) in the page.
func (w *Window) EmitEvent(name string, payload any) error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeEmitEvent, EventName: name, EventPayload: payload})
}

// SetVisible shows or hides the underlying webview.
func (w *Window) SetVisible(visible bool) error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeSetVisible, Visible: visible})
}

// Reload reloads the current page.
func (w *Window) Reload() error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeReload})
}

// StopLoading cancels an in-flight navigation.
func (w *Window) StopLoading() error {
	return w.queue.Push(&queue.WebViewMessage{Type: queue.TypeStopLoading})
}

// InvokeTool submits a ToolInvocation and blocks for its result, for
// in-process Go callers (as opposed to page-originated calls, which
// Bridge.HostCallback already answers directly).
func (w *Window) InvokeTool(ctx context.Context, tool string, args any) (any, error) {
	reply := queue.NewReply[any]()
	if err := w.queue.Push(&queue.WebViewMessage{Type: queue.TypeToolInvocation, Tool: tool, EventPayload: args, ToolReply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply.Recv():
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, auroraerr.Cancelled()
	}
}

// InvokeHostCallback submits a deferred invocation of a host function
// previously handed to page script as an opaque token via
// w.Bridge().Registry().Register. It is fire-and-forget from the
// caller's perspective: any error from the callback is logged by the
// dispatcher, not returned here.
func (w *Window) InvokeHostCallback(token uint64, event string, payload any) error {
	return w.queue.Push(&queue.WebViewMessage{
		Type:          queue.TypeHostCallbackDeferred,
		CallbackToken: token,
		EventName:     event,
		EventPayload:  payload,
	})
}

// Close submits Close, then in Embedded mode drives the OS-level window
// destruction pump before returning. Standalone mode's Close happens
// entirely on the dispatcher's own loop.
func (w *Window) Close(ctx context.Context) error {
	if err := w.queue.Push(&queue.WebViewMessage{Type: queue.TypeClose}); err != nil {
		return err
	}
	w.bridge.Stop()
	if w.mode != dispatch.Embedded {
		w.dispatcher.Stop()
		return nil
	}
	// Embedded mode: the Close message pushed above runs engine.Destroy
	// (via the dispatcher's handleClose) on the host's next Tick; here
	// lifecycle.Close runs the destroyer, pumps this window's messages
	// until WM_NCDESTROY is seen, the queue empties or the iteration cap
	// is reached, then waits the settle interval.
	handle := w.engine.WindowHandle()
	return lifecycle.Close(ctx, w.destroyer, w.pump, handle,
		int(w.bridgeCfg.EmbeddedCloseIterationCap), w.bridgeCfg.EmbeddedCloseSettle())
}
