// Package lifecycle implements the destroy-and-drain protocol required
// when a window is destroyed while embedded in a foreign host event
// loop that does not pump messages for windows it does not own.
package lifecycle

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultIterationCap and DefaultSettle are the default values for
// embeddedCloseIterationCap / embeddedCloseSettleMs.
const (
	DefaultIterationCap = 100
	DefaultSettle        = 50 * time.Millisecond
)

// Pump abstracts the platform-specific window-scoped message pump. On
// Windows this wraps PeekMessageW/TranslateMessage/DispatchMessageW
// scoped to one HWND; elsewhere it is the no-op implementation in
// pump_other.go.
type Pump interface {
	// PumpOnce processes one batch of messages addressed to handle and
	// reports whether WM_NCDESTROY was observed and whether the queue
	// was empty (no more messages pending for this window right now).
	PumpOnce(handle uintptr) (destroyObserved bool, empty bool)
}

// Destroyer issues the OS-level destroy primitive (DestroyWindow or
// platform equivalent) for a window handle.
type Destroyer interface {
	DestroyWindow(handle uintptr) error
}

// Close drives the destroy-and-drain protocol: issue the OS destroy
// primitive, then pump the window's own message queue until
// WM_NCDESTROY is observed, the iteration cap is reached, or the pump
// reports empty — then wait Settle for the compositor to catch up.
//
// On platforms where Pump is a no-op (non-Windows), this degenerates to
// a synchronous DestroyWindow call; destruction there is synchronous.
func Close(ctx context.Context, destroyer Destroyer, pump Pump, handle uintptr, iterationCap int, settle time.Duration) error {
	if iterationCap <= 0 {
		iterationCap = DefaultIterationCap
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	if err := destroyer.DestroyWindow(handle); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pumpUntilDestroyed(gctx, pump, handle, iterationCap)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
		return nil
	}
}

func pumpUntilDestroyed(ctx context.Context, pump Pump, handle uintptr, iterationCap int) error {
	for i := 0; i < iterationCap; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		destroyed, empty := pump.PumpOnce(handle)
		if destroyed || empty {
			return nil
		}
	}
	return nil // iteration cap reached; treated as closed regardless
}
