//go:build auroraview_cgo

package auroraview

import (
	"github.com/aurora-view/auroraview/pkg/engine"
	"github.com/aurora-view/auroraview/pkg/engine/webkitgtk"
)

// DefaultEngineFactory builds the cgo WebKitGTK engine backend.
func DefaultEngineFactory(cfg engine.Config) (engine.Engine, error) {
	return webkitgtk.New(cfg)
}
