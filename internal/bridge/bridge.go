package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aurora-view/auroraview/internal/auroraerr"
	"github.com/aurora-view/auroraview/internal/queue"
	"github.com/aurora-view/auroraview/internal/ready"
)

// submitter is the narrow slice of *queue.MessageQueue the bridge needs:
// enqueue a message for the dispatcher to drain. Kept as an interface so
// bridge_test.go can exercise the bridge without a live dispatcher.
type submitter interface {
	Push(*queue.WebViewMessage) error
}

// Bridge owns the wire-protocol envelopes, the pending-call table,
// backend health, and the heartbeat driver, and acts as the
// dispatcher's HostCallback for page-originated "call" messages.
type Bridge struct {
	mu      sync.RWMutex
	methods map[string]HostFunc

	pending   *PendingCallTable
	health    *HealthState
	heartbeat *Heartbeat
	registry  *HostCallbackRegistry

	submit      submitter
	callTimeout time.Duration
	failFast    bool
	logger      zerolog.Logger
	barrier     *ready.Barrier
}

// Options bundles the construction-time knobs that normally come from
// internal/config.BridgeConfig, kept separate so bridge_test.go can
// construct one without importing the config package.
type Options struct {
	CallTimeout       time.Duration
	BackendFailFast   bool
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	Logger            zerolog.Logger
	// Barrier, if set, receives ready.BridgeReady once the page posts its
	// "ready" envelope (window.auroraview installed and listening).
	Barrier *ready.Barrier
}

// New constructs a Bridge bound to q. The caller is responsible for
// wiring Bridge.HostCallback as the dispatcher's HostCallback and
// Bridge.HandleInbound as the engine's OnIPC handler.
func New(q submitter, opts Options) *Bridge {
	b := &Bridge{
		methods:     make(map[string]HostFunc),
		pending:     NewPendingCallTable(),
		health:      NewHealthState(),
		registry:    NewHostCallbackRegistry(),
		submit:      q,
		callTimeout: opts.CallTimeout,
		failFast:    opts.BackendFailFast,
		logger:      opts.Logger,
		barrier:     opts.Barrier,
	}
	timeout := DerivedTimeout(opts.HeartbeatInterval, opts.HeartbeatTimeout)
	b.heartbeat = NewHeartbeat(opts.HeartbeatInterval, timeout, b.sendPing, b.health)
	b.health.OnTransition(b.onHealthTransition)
	return b
}

// Start begins the heartbeat cadence, if configured.
func (b *Bridge) Start() { b.heartbeat.Start() }

// Stop halts the heartbeat and rejects every outstanding call as
// Cancelled: closing a window must never leave a caller blocked
// forever on a call that will never resolve.
func (b *Bridge) Stop() {
	b.heartbeat.Stop()
	b.pending.CancelAll(cancelledErrorPayload())
}

// RegisterMethod exposes a host function under name for page-originated
// call envelopes (window.auroraview.call(name, params) on the JS side).
func (b *Bridge) RegisterMethod(name string, fn HostFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.methods[name] = fn
}

func (b *Bridge) lookupMethod(name string) (HostFunc, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.methods[name]
	return fn, ok
}

// Registry exposes the opaque-token host callback registry for binding
// layers that hand JS a token instead of a live object reference, e.g.
// a long-lived subscription handle.
func (b *Bridge) Registry() *HostCallbackRegistry { return b.registry }

// HealthState exposes the tri-state backend health tracker for
// diagnostics and for the host to subscribe to transitions.
func (b *Bridge) HealthState() *HealthState { return b.health }

// PendingCount reports the number of outstanding host-initiated calls,
// for the monitor dashboard.
func (b *Bridge) PendingCount() int { return b.pending.Len() }

// HandleInbound decodes one page→host JSON envelope and routes it. It is
// intended as the engine's OnIPC handler and is safe to call directly
// from the engine's own callback thread: it never touches the engine,
// only the queue (submit) and in-memory bookkeeping.
func (b *Bridge) HandleInbound(raw string) {
	var in Inbound
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		b.logger.Warn().Err(err).Msg("bridge: malformed inbound envelope")
		return
	}
	switch in.Type {
	case TypePong:
		b.heartbeat.OnPong(time.Now())
	case TypeCallResult:
		b.resolveHostInitiatedCall(in, raw)
	case TypeCall:
		b.submitPageCall(in)
	case TypeEvent:
		b.dispatchPageEvent(in)
	case TypeReady:
		if b.barrier != nil {
			b.barrier.Set(ready.BridgeReady)
		}
	default:
		b.logger.Debug().Str("type", in.Type).Msg("bridge: unhandled inbound envelope type")
	}
}

func (b *Bridge) resolveHostInitiatedCall(in Inbound, raw string) {
	var body struct {
		OK     bool          `json:"ok"`
		Result any           `json:"result,omitempty"`
		Error  *ErrorPayload `json:"error,omitempty"`
	}
	// The page replies to a host-initiated call with the same
	// call_result shape it receives (ok/result/error at the top level,
	// as bootstrap.js posts it); a reply nested under detail is
	// accepted as well.
	if len(in.Detail) > 0 {
		_ = json.Unmarshal(in.Detail, &body)
	} else {
		_ = json.Unmarshal([]byte(raw), &body)
	}
	b.pending.Resolve(in.ID, Result{OK: body.OK, Value: body.Result, Err: body.Error})
}

func (b *Bridge) submitPageCall(in Inbound) {
	msg := &queue.WebViewMessage{
		Type:         queue.TypeToolInvocation,
		Tool:         in.Method,
		EventPayload: in.Params,
		CallID:       in.ID,
	}
	if err := b.submit.Push(msg); err != nil {
		b.logger.Warn().Err(err).Str("method", in.Method).Msg("bridge: dropped page call, queue closed")
	}
}

func (b *Bridge) dispatchPageEvent(in Inbound) {
	fn, ok := b.lookupMethod("on:" + in.Event)
	if !ok {
		return
	}
	var detail any
	if len(in.Detail) > 0 {
		_ = json.Unmarshal(in.Detail, &detail)
	}
	if _, err := fn(in.Event, detail); err != nil {
		b.logger.Warn().Err(err).Str("event", in.Event).Msg("bridge: page event handler failed")
	}
}

// HostCallback is installed as the dispatcher's HostCallback. It runs
// with the engine lock released and handles both page-originated tool
// calls and deferred host-callback invocations by opaque token.
func (b *Bridge) HostCallback(ctx context.Context, msg *queue.WebViewMessage) (any, error) {
	switch msg.Type {
	case queue.TypeToolInvocation:
		return b.invokeTool(msg)
	case queue.TypeHostCallbackDeferred:
		return b.invokeDeferredCallback(msg)
	default:
		return nil, nil
	}
}

func (b *Bridge) invokeTool(msg *queue.WebViewMessage) (any, error) {
	fn, ok := b.lookupMethod(msg.Tool)
	var result any
	var callErr error
	if !ok {
		callErr = auroraerr.New(auroraerr.KindEncoding, fmt.Sprintf("unknown method: %s", msg.Tool))
	} else {
		payload := msg.EventPayload
		// Page-originated calls carry their params as raw JSON; decode
		// them so host functions receive plain Go values, as page events do.
		if rawParams, isRaw := payload.(json.RawMessage); isRaw {
			var decoded any
			if len(rawParams) > 0 {
				_ = json.Unmarshal(rawParams, &decoded)
			}
			payload = decoded
		}
		result, callErr = fn(msg.Tool, payload)
	}
	// The dispatcher resolves msg.ToolReply itself from our return value
	// (see dispatch.Dispatcher.executeHostInvoking); we only need to
	// additionally deliver a call_result to the page when the call
	// actually originated from page-side script.
	if msg.CallID != "" {
		b.deliverCallResult(msg.CallID, result, callErr)
	}
	return result, callErr
}

func (b *Bridge) invokeDeferredCallback(msg *queue.WebViewMessage) (any, error) {
	fn, ok := b.registry.Lookup(msg.CallbackToken)
	if !ok {
		return nil, auroraerr.New(auroraerr.KindEncoding, fmt.Sprintf("unknown host callback token: %d", msg.CallbackToken))
	}
	return fn(msg.EventName, msg.EventPayload)
}

func (b *Bridge) deliverCallResult(id string, result any, callErr error) {
	var envelope map[string]any
	if callErr != nil {
		envelope = CallResult(id, false, nil, errorPayloadFrom(callErr))
	} else {
		envelope = CallResult(id, true, result, nil)
	}
	if err := b.deliverScript(CallResultScript, envelope); err != nil {
		b.logger.Warn().Err(err).Str("call_id", id).Msg("bridge: failed to deliver call_result")
	}
}

// CallPage issues a host-initiated call into the page (a function the
// page registered with window.auroraview.exposeHostCallable) and blocks
// until the page's call_result arrives, ctx is cancelled, or
// callTimeout elapses.
func (b *Bridge) CallPage(ctx context.Context, method string, params any) (any, error) {
	if b.failFast {
		if status, reason := b.health.Status(); status == Unhealthy {
			return nil, auroraerr.BackendUnavailable(reason)
		}
	}
	id := newCallID()
	deadline := time.Now().Add(b.callTimeout)
	ch := b.pending.Register(id, deadline)

	envelope := map[string]any{"type": TypeCall, "schema_version": schemaVersion, "id": id, "method": method, "params": params}
	if err := b.deliverScript(MessageScript, envelope); err != nil {
		b.pending.Cancel(id)
		return nil, err
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.OK {
			return res.Value, nil
		}
		return nil, errorFromPayload(res.Err)
	case <-timer.C:
		b.pending.Cancel(id)
		return nil, auroraerr.Timeout(b.callTimeout.Milliseconds())
	case <-ctx.Done():
		b.pending.Cancel(id)
		return nil, auroraerr.Cancelled()
	}
}

// EmitToPage enqueues a fire-and-forget event envelope for delivery to
// the page.
func (b *Bridge) EmitToPage(event string, detail any) error {
	return b.deliverScript(MessageScript, Event(event, detail))
}

func (b *Bridge) sendPing() {
	_ = b.deliverScript(MessageScript, Ping())
}

// onHealthTransition is invoked by HealthState whenever the backend
// flips healthy/unhealthy. An unhealthy transition rejects every
// outstanding host-initiated call with BackendUnavailable; if failFast
// is configured, future calls short-circuit immediately instead of
// waiting out their deadline (CallPage itself checks
// HealthState().Status() before registering a call).
func (b *Bridge) onHealthTransition(status HealthStatus, reason string) {
	_ = b.deliverScript(MessageScript, BackendHealthEnvelope(status == Healthy, reason))
	if status == Unhealthy {
		b.pending.CancelAll(backendUnavailableErrorPayload(reason))
	}
}

func (b *Bridge) deliverScript(build func(any) (string, error), envelope map[string]any) error {
	script, err := build(envelope)
	if err != nil {
		return err
	}
	return b.submit.Push(&queue.WebViewMessage{Type: queue.TypeEvalScript, Source: script})
}

func errorPayloadFrom(err error) *ErrorPayload {
	var ae *auroraerr.Error
	if errors.As(err, &ae) {
		return &ErrorPayload{Name: string(ae.Kind), Message: ae.Message, Code: ae.Code, Data: ae.Data}
	}
	return &ErrorPayload{Name: string(auroraerr.KindEncoding), Message: err.Error()}
}

func errorFromPayload(p *ErrorPayload) error {
	if p == nil {
		return auroraerr.New(auroraerr.KindEncoding, "call rejected with no error payload")
	}
	return auroraerr.New(auroraerr.Kind(p.Name), p.Message)
}

func newCallID() string {
	return "host:" + uuid.NewString()
}
