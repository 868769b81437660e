// Package auroraerr defines the structured error taxonomy shared by every
// dispatcher-adjacent component. Errors never unwind across the FFI
// boundary; they are always returned as values, wrapped with %w so
// errors.As can recover the structured kind at a binding layer.
package auroraerr

import "fmt"

// Kind identifies one of the error taxonomy's members.
type Kind string

const (
	KindWebViewLock       Kind = "WebViewLock"
	KindScriptExecution   Kind = "ScriptExecution"
	KindQueueFull         Kind = "QueueFull"
	KindEncoding          Kind = "Encoding"
	KindEventLoopClosed   Kind = "EventLoopClosed"
	KindWindowOperation   Kind = "WindowOperation"
	KindTimeout           Kind = "Timeout"
	KindBackendUnavailable Kind = "BackendUnavailable"
	KindCancelled         Kind = "Cancelled"
)

// Error is the structured error value returned from dispatcher ops and
// reply sinks. It carries enough context to cross the FFI boundary as
// data: Name/Message/Code/Data mirror the JS-side call_result.error shape.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Data    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &Error{Kind: KindTimeout}) style matching on
// Kind alone, ignoring Message/Data/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Timeout(ms int64) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf("deadline exceeded after %dms", ms), Data: map[string]any{"ms": ms}}
}

func BackendUnavailable(reason string) *Error {
	return &Error{Kind: KindBackendUnavailable, Message: "backend unavailable", Data: map[string]any{"reason": reason}}
}

func Cancelled() *Error {
	return &Error{Kind: KindCancelled, Message: "cancelled"}
}

func ScriptExecution(preview, message string) *Error {
	return &Error{Kind: KindScriptExecution, Message: message, Data: map[string]any{"preview": preview}}
}

func EventLoopClosed() *Error {
	return &Error{Kind: KindEventLoopClosed, Message: "event loop closed"}
}

// Envelope converts the structured error into the JS call_result.error
// shape: {"name","message","code","data"}.
func (e *Error) Envelope() map[string]any {
	env := map[string]any{
		"name":    string(e.Kind),
		"message": e.Message,
	}
	if e.Code != 0 {
		env["code"] = e.Code
	}
	if e.Data != nil {
		env["data"] = e.Data
	}
	return env
}
