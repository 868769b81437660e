//go:build auroraview_cgo

// Package webkitgtk implements pkg/engine.Engine over WebKitGTK, the
// Linux native backend: a GtkWindow hosting a WebKitWebView, with a
// UserContentManager script-message handler wired to a Go export
// callback keyed by an integer id.
package webkitgtk

/*
#cgo pkg-config: webkit2gtk-4.0 gtk+-3.0 javascriptcoregtk-4.0
#include <stdlib.h>
#include <gtk/gtk.h>
#include <webkit2/webkit2.h>
#include <glib-object.h>
#include <jsc/jsc.h>

static GtkWidget* new_window() { return gtk_window_new(GTK_WINDOW_TOPLEVEL); }
static WebKitWebView* as_webview(GtkWidget* w) { return WEBKIT_WEB_VIEW(w); }

extern void goOnUcmMessage(unsigned long id, const char* json);
extern void goOnLoadChanged(unsigned long id, int event);

static gchar* js_result_to_utf8(WebKitJavascriptResult* r) {
    JSCValue* v = webkit_javascript_result_get_js_value(r);
    return jsc_value_to_string(v);
}

void on_ucm_message(WebKitUserContentManager* m, WebKitJavascriptResult* r, gpointer user_data) {
    (void)m;
    unsigned long id = (unsigned long)user_data;
    gchar* s = js_result_to_utf8(r);
    goOnUcmMessage(id, s);
    g_free(s);
}

void on_load_changed(WebKitWebView* wv, WebKitLoadEvent event, gpointer user_data) {
    (void)wv;
    goOnLoadChanged((unsigned long)user_data, (int)event);
}
*/
import "C"

import (
	"context"
	"errors"
	"sync"
	"unsafe"

	"github.com/aurora-view/auroraview/pkg/engine"
)

const handlerName = "auroraview"

// Engine is the WebKitGTK-backed implementation of pkg/engine.Engine.
type Engine struct {
	mu sync.Mutex

	win  *C.GtkWidget
	view *C.GtkWidget
	wv   *C.WebKitWebView
	ucm  *C.WebKitUserContentManager

	id        uintptr
	destroyed bool

	ipcHandler engine.IPCHandler
	onNav      engine.NavigationHandler
}

var (
	registryMu sync.Mutex
	registry   = map[uintptr]*Engine{}
	nextID     uintptr
)

func registerEngine(e *Engine) uintptr {
	registryMu.Lock()
	defer registryMu.Unlock()
	nextID++
	registry[nextID] = e
	return nextID
}

func lookupEngine(id uintptr) *Engine {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[id]
}

func unregisterEngine(id uintptr) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, id)
}

// New constructs the GTK window + WebKitWebView pair and wires the
// "auroraview" script message handler, injecting cfg.InjectedBootstrapJS
// at document-start.
func New(cfg engine.Config) (*Engine, error) {
	if C.gtk_init_check(nil, nil) == 0 {
		return nil, errors.New("webkitgtk: failed to initialize GTK")
	}

	viewWidget := C.webkit_web_view_new()
	if viewWidget == nil {
		return nil, errors.New("webkitgtk: failed to create WebKitWebView")
	}
	win := C.new_window()
	if win == nil {
		return nil, errors.New("webkitgtk: failed to create GtkWindow")
	}
	C.gtk_container_add((*C.GtkContainer)(unsafe.Pointer(win)), viewWidget)
	C.gtk_window_set_default_size((*C.GtkWindow)(unsafe.Pointer(win)), 1024, 768)

	e := &Engine{win: win, view: viewWidget, wv: C.as_webview(viewWidget)}
	e.id = registerEngine(e)

	e.ucm = C.webkit_web_view_get_user_content_manager(e.wv)
	if e.ucm != nil {
		cname := C.CString(handlerName)
		defer C.free(unsafe.Pointer(cname))
		C.webkit_user_content_manager_register_script_message_handler(e.ucm, (*C.gchar)(cname))
		sig := C.CString("script-message-received::" + handlerName)
		defer C.free(unsafe.Pointer(sig))
		C.g_signal_connect_data(C.gpointer(unsafe.Pointer(e.ucm)), (*C.gchar)(sig),
			C.GCallback(C.on_ucm_message), C.gpointer(e.id), nil, 0)

		if cfg.InjectedBootstrapJS != "" {
			e.injectBootstrap(cfg.InjectedBootstrapJS)
		}
	}

	sig := C.CString("load-changed")
	defer C.free(unsafe.Pointer(sig))
	C.g_signal_connect_data(C.gpointer(unsafe.Pointer(e.wv)), (*C.gchar)(sig),
		C.GCallback(C.on_load_changed), C.gpointer(e.id), nil, 0)

	return e, nil
}

func (e *Engine) injectBootstrap(js string) {
	csrc := C.CString(js)
	defer C.free(unsafe.Pointer(csrc))
	script := C.webkit_user_script_new((*C.gchar)(csrc),
		C.WEBKIT_USER_CONTENT_INJECT_TOP_FRAME, C.WEBKIT_USER_SCRIPT_INJECT_AT_DOCUMENT_START, nil, nil)
	if script != nil {
		C.webkit_user_content_manager_add_script(e.ucm, script)
		C.webkit_user_script_unref(script)
	}
}

func (e *Engine) EvaluateScript(_ context.Context, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	C.webkit_web_view_run_javascript(e.wv, (*C.gchar)(csrc), nil, nil, nil)
	return nil
}

// EvaluateScriptWithResult is not wired to a synchronous native
// primitive here and always returns ErrNotSupported; the dispatcher
// fails such a request with a ScriptExecution error.
func (e *Engine) EvaluateScriptWithResult(context.Context, string) (string, error) {
	return "", engine.ErrNotSupported
}

func (e *Engine) LoadURL(_ context.Context, uri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	curl := C.CString(uri)
	defer C.free(unsafe.Pointer(curl))
	C.webkit_web_view_load_uri(e.wv, (*C.gchar)(curl))
	return nil
}

func (e *Engine) LoadHTML(_ context.Context, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	cbody := C.CString(body)
	defer C.free(unsafe.Pointer(cbody))
	C.webkit_web_view_load_html(e.wv, (*C.gchar)(cbody), nil)
	return nil
}

func (e *Engine) Reload(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	C.webkit_web_view_reload(e.wv)
	return nil
}

func (e *Engine) StopLoading(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	C.webkit_web_view_stop_loading(e.wv)
	return nil
}

func (e *Engine) SetVisible(visible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return engine.ErrDestroyed
	}
	if visible {
		C.gtk_widget_show(e.win)
		C.gtk_widget_show(e.view)
	} else {
		C.gtk_widget_hide(e.win)
	}
	return nil
}

func (e *Engine) OnIPC(handler engine.IPCHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ipcHandler = handler
}

func (e *Engine) OnNavigationCommitted(handler engine.NavigationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onNav = handler
}

func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}
	C.gtk_widget_destroy(e.win)
	e.destroyed = true
	unregisterEngine(e.id)
	return nil
}

// WindowHandle returns the GtkWidget pointer's address. WebKitGTK runs
// only on platforms where EmbeddedLifecycle's Windows pump does not
// apply, so this is informational only.
func (e *Engine) WindowHandle() uintptr {
	return uintptr(unsafe.Pointer(e.win))
}

//export goOnUcmMessage
func goOnUcmMessage(id C.ulong, cjson *C.char) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	e.mu.Lock()
	h := e.ipcHandler
	e.mu.Unlock()
	if h != nil {
		h(C.GoString(cjson))
	}
}

const loadEventCommitted = 2 // WEBKIT_LOAD_COMMITTED

//export goOnLoadChanged
func goOnLoadChanged(id C.ulong, event C.int) {
	if int(event) != loadEventCommitted {
		return
	}
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	e.mu.Lock()
	h := e.onNav
	e.mu.Unlock()
	if h != nil {
		h()
	}
}
