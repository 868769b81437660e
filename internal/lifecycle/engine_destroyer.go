package lifecycle

import "github.com/aurora-view/auroraview/pkg/engine"

// EngineDestroyer adapts any pkg/engine.Engine to the Destroyer
// interface, for platforms/backends where the engine's own Destroy is
// the only destruction primitive (no separate OS window handle to
// target with DestroyWindow).
type EngineDestroyer struct {
	Engine engine.Engine
}

func (d EngineDestroyer) DestroyWindow(uintptr) error {
	return d.Engine.Destroy()
}
