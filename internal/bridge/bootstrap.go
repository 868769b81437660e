package bridge

import (
	_ "embed"
	"strconv"
)

// bootstrapJS is injected into the page before any page script runs
// (engine.Config.InjectedBootstrapJS), installing window.auroraview
// ahead of navigation so it is present before any page script runs.
//
//go:embed bootstrap.js
var bootstrapJS string

// BootstrapScript returns the JS source to inject, parameterized by the
// page's own correlation-id prefix so concurrently-opened windows never
// collide on call ids even before any host round trip has happened.
func BootstrapScript(windowID uint64) string {
	return "window.__auroraview_window_id = " + strconv.FormatUint(windowID, 10) + ";\n" + bootstrapJS
}
