// Package headless implements a pure-Go Engine (pkg/engine.Engine)
// backed by an embedded ECMAScript runtime instead of a native webview.
// It exists for two reasons: it is the non-cgo build's engine when no
// platform toolkit is available, and it gives the dispatcher/bridge test
// suite a real JS evaluator instead of a string-matching stub.
package headless

import (
	"context"
	"fmt"
	"sync"

	"github.com/grafana/sobek"

	"github.com/aurora-view/auroraview/pkg/engine"
)

// Engine is a single-threaded sobek VM standing in for a native
// webview. All methods are expected to be invoked only while the
// dispatcher holds the engine handle, same contract as a real backend.
type Engine struct {
	mu sync.Mutex
	vm *sobek.Runtime

	title string

	ipcMu    sync.Mutex // guards ipc only, so page script can post while EvaluateScript holds mu
	ipc      engine.IPCHandler
	onNav    engine.NavigationHandler
	visible  bool
	destroyed bool
}

// New constructs a headless engine and runs the injected bootstrap JS
// once, synchronously, the way a real backend would on webview
// creation.
func New(cfg engine.Config) (*Engine, error) {
	e := &Engine{vm: sobek.New(), title: "about:blank"}
	e.installGlobals()

	if cfg.InjectedBootstrapJS != "" {
		if _, err := e.vm.RunString(cfg.InjectedBootstrapJS); err != nil {
			return nil, fmt.Errorf("headless engine: bootstrap injection failed: %w", err)
		}
	}
	return e, nil
}

// installGlobals wires a minimal window/document surface the bootstrap
// script and bridge tests expect: window.webkit.messageHandlers.*
// posting back into Go, and document.title as a plain string.
func (e *Engine) installGlobals() {
	vm := e.vm

	window := vm.NewObject()
	_ = vm.Set("window", window)

	document := vm.NewObject()
	_ = document.Set("title", "about:blank")
	_ = window.Set("document", document)
	_ = vm.Set("document", document)

	// window.webkit.messageHandlers.auroraview.postMessage(str) is the
	// injection point page-side script uses to reach the host IPC
	// handler, mirroring the real WebKitGTK UserContentManager handler.
	webkitObj := vm.NewObject()
	handlers := vm.NewObject()
	auroraHandler := vm.NewObject()
	_ = auroraHandler.Set("postMessage", func(call sobek.FunctionCall) sobek.Value {
		raw := call.Argument(0).String()
		e.dispatchIPC(raw)
		return sobek.Undefined()
	})
	_ = handlers.Set("auroraview", auroraHandler)
	_ = webkitObj.Set("messageHandlers", handlers)
	_ = window.Set("webkit", webkitObj)

	// window.addEventListener / window.dispatchEvent / CustomEvent: the
	// minimal DOM event surface bootstrap.js listens on and the bridge's
	// delivery scripts dispatch through.
	_, _ = vm.RunString(`var __avListeners = Object.create(null);
window.addEventListener = function (type, fn) { (__avListeners[type] = __avListeners[type] || []).push(fn); };
window.dispatchEvent = function (evt) {
  var hs = (__avListeners[evt.type] || []).slice();
  for (var i = 0; i < hs.length; i++) { hs[i](evt); }
  return true;
};
function CustomEvent(type, init) { this.type = type; this.detail = init ? init.detail : null; }`)

	_ = vm.Set("console", e.consoleObject())
}

func (e *Engine) consoleObject() *sobek.Object {
	c := e.vm.NewObject()
	logFn := func(call sobek.FunctionCall) sobek.Value { return sobek.Undefined() }
	_ = c.Set("log", logFn)
	_ = c.Set("warn", logFn)
	_ = c.Set("error", logFn)
	return c
}

func (e *Engine) dispatchIPC(raw string) {
	e.ipcMu.Lock()
	h := e.ipc
	e.ipcMu.Unlock()
	if h != nil {
		h(raw)
	}
}

func (e *Engine) EvaluateScript(_ context.Context, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	_, err := e.vm.RunString(source)
	return err
}

func (e *Engine) EvaluateScriptWithResult(_ context.Context, source string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return "", engine.ErrDestroyed
	}
	v, err := e.vm.RunString(source)
	if err != nil {
		return "", err
	}
	if v == nil || sobek.IsUndefined(v) {
		return "", nil
	}
	return v.String(), nil
}

func (e *Engine) LoadURL(_ context.Context, uri string) error {
	e.mu.Lock()
	e.title = uri
	onNav := e.onNav
	e.mu.Unlock()
	if onNav != nil {
		onNav()
	}
	return nil
}

func (e *Engine) LoadHTML(_ context.Context, body string) error {
	e.mu.Lock()
	onNav := e.onNav
	e.mu.Unlock()
	_ = body
	if onNav != nil {
		onNav()
	}
	return nil
}

func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	onNav := e.onNav
	e.mu.Unlock()
	if onNav != nil {
		onNav()
	}
	return nil
}

func (e *Engine) StopLoading(context.Context) error { return nil }

func (e *Engine) SetVisible(visible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = visible
	return nil
}

func (e *Engine) OnIPC(handler engine.IPCHandler) {
	e.ipcMu.Lock()
	defer e.ipcMu.Unlock()
	e.ipc = handler
}

func (e *Engine) OnNavigationCommitted(handler engine.NavigationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNav = handler
}

func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	return nil
}

func (e *Engine) WindowHandle() uintptr { return 0 }

// PostFromPage lets tests simulate page-side script posting an IPC
// envelope without going through EvaluateScript string-building.
func (e *Engine) PostFromPage(raw string) { e.dispatchIPC(raw) }
