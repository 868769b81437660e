//go:build !auroraview_cgo

package auroraview

import (
	"github.com/aurora-view/auroraview/pkg/engine"
	"github.com/aurora-view/auroraview/pkg/engine/headless"
)

// DefaultEngineFactory builds the pure-Go headless engine backend, used
// when the cgo WebKitGTK backend was not requested at build time via
// the auroraview_cgo build tag.
func DefaultEngineFactory(cfg engine.Config) (engine.Engine, error) {
	return headless.New(cfg)
}
