// Package bridge implements the host/page messaging protocol: the JSON
// envelope schema shared between page-side JS and host code, the
// pending-call table with timeouts, backend-health heartbeat, and
// correlated cancellation.
package bridge

import "encoding/json"

const schemaVersion = 1

// Envelope type discriminators.
const (
	TypeCall         = "call"
	TypeEvent        = "event"
	TypePing         = "__ping__"
	TypePong         = "__pong__"
	TypeCallResult   = "call_result"
	TypeBackendHealth = "backend_health"
	TypeBackendError = "backend_error"
	TypeReady        = "ready"
)

// Inbound is the shape every JS→host message is decoded into before
// dispatch on Type. Fields not relevant to a given Type are left zero.
type Inbound struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Event  string          `json:"event,omitempty"`
	Detail json.RawMessage `json:"detail,omitempty"`
	SchemaVersion int       `json:"schema_version,omitempty"`
}

// ErrorPayload mirrors the call_result.error shape.
type ErrorPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// CallResult builds the host→JS call_result envelope.
func CallResult(id string, ok bool, result any, errPayload *ErrorPayload) map[string]any {
	env := map[string]any{"type": TypeCallResult, "id": id, "ok": ok}
	if ok {
		env["result"] = result
	} else {
		env["error"] = errPayload
	}
	return env
}

// Event builds the host→JS fire-and-forget event envelope.
func Event(event string, detail any) map[string]any {
	return map[string]any{"type": TypeEvent, "event": event, "detail": detail}
}

// Ping builds the host→JS health probe.
func Ping() map[string]any {
	return map[string]any{"type": TypePing, "schema_version": schemaVersion}
}

// BackendHealthEnvelope builds the host→JS backend_health notification.
func BackendHealthEnvelope(healthy bool, reason string) map[string]any {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	env := map[string]any{"type": TypeBackendHealth, "schema_version": schemaVersion, "status": status}
	if reason != "" {
		env["reason"] = reason
	}
	return env
}

// BackendError builds the host→JS backend_error notification.
func BackendError(detail string) map[string]any {
	return map[string]any{"type": TypeBackendError, "schema_version": schemaVersion, "detail": detail}
}

// CallResultScript wraps a call_result envelope as the synthetic
// __auroraview_call_result DOM event dispatch: JSON-encode the envelope
// (never string-concatenate it) so the resolved/rejected value
// round-trips byte-exact.
func CallResultScript(envelope any) (string, error) {
	return deliveryScript("__auroraview_call_result", envelope)
}

// MessageScript wraps any other host→JS envelope (event, ping,
// backend_health, backend_error) as a generic synthetic DOM event; the
// bootstrap JS listens for it and routes by the envelope's "type" field.
func MessageScript(envelope any) (string, error) {
	return deliveryScript("__auroraview_message", envelope)
}

func deliveryScript(domEvent string, envelope any) (string, error) {
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	encodedName, err := json.Marshal(domEvent)
	if err != nil {
		return "", err
	}
	return "window.dispatchEvent(new CustomEvent(" + string(encodedName) + ", {detail: " + string(encoded) + "}));", nil
}
