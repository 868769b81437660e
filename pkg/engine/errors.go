package engine

import "errors"

// ErrNotSupported is returned by EvaluateScriptWithResult when the
// concrete backend has no native synchronous-script-with-value
// primitive. The dispatcher reports it to the caller as a
// ScriptExecution error; there is no automatic fallback.
var ErrNotSupported = errors.New("engine: operation not supported by this backend")

// ErrDestroyed is returned from any operation attempted after Destroy.
var ErrDestroyed = errors.New("engine: window already destroyed")
