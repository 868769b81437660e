package dispatch

import "encoding/json"

// emitEventScript builds the window.auroraview.trigger(name, payload)
// call for an EmitEvent message, JSON-encoding both name and payload so
// the call is safe against injection regardless of payload content,
// never via string concatenation.
func emitEventScript(name string, payload any) string {
	encodedName, err := json.Marshal(name)
	if err != nil {
		encodedName = []byte(`""`)
	}
	encodedPayload, err := json.Marshal(payload)
	if err != nil {
		encodedPayload = []byte("null")
	}
	return "window.auroraview && window.auroraview.trigger(" + string(encodedName) + "," + string(encodedPayload) + ");"
}
