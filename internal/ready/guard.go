package ready

import (
	"time"

	"github.com/aurora-view/auroraview/internal/auroraerr"
)

// Guard binds a flag and a timeout to a barrier so call sites can wrap a
// method instead of repeating the wait-then-error boilerplate inline:
// "block until flag X is set, else error out" as a binding-layer
// wrapper around a callable, rather than dynamic dispatch inside the
// core.
type Guard struct {
	barrier *Barrier
	flag    Flag
	timeout time.Duration
}

// NewGuard builds a Guard for flag on barrier, waiting up to timeout
// before failing calls with auroraerr.Timeout. A zero timeout means wait
// indefinitely.
func NewGuard(barrier *Barrier, flag Flag, timeout time.Duration) Guard {
	return Guard{barrier: barrier, flag: flag, timeout: timeout}
}

func (g Guard) wait() error {
	if g.barrier.IsSet(g.flag) {
		return nil
	}
	if g.timeout <= 0 && g.flag >= 0 && g.flag < flagCount {
		_, ch := g.barrier.latches[g.flag].snapshot()
		<-ch
		return nil
	}
	start := time.Now()
	if g.barrier.Wait(g.flag, g.timeout) {
		return nil
	}
	return auroraerr.Timeout(time.Since(start).Milliseconds())
}

// Call blocks until the guard's flag is set (or the timeout elapses),
// then runs fn. The wrapped call never executes early.
func Call(g Guard, fn func() error) error {
	if err := g.wait(); err != nil {
		return err
	}
	return fn()
}

// CallValue is Call for a fn that also produces a value, for call sites
// that wrap a method returning (T, error) rather than just error.
func CallValue[T any](g Guard, fn func() (T, error)) (T, error) {
	var zero T
	if err := g.wait(); err != nil {
		return zero, err
	}
	return fn()
}

// RequireLoaded returns a Guard waiting on the Loaded flag, the most
// common binding-layer precondition (script evaluation, tool
// invocation): calls made before the page finishes loading should block
// rather than race the navigation.
func RequireLoaded(barrier *Barrier, timeout time.Duration) Guard {
	return NewGuard(barrier, Loaded, timeout)
}

// RequireBridgeReady returns a Guard waiting on the BridgeReady flag, for
// binding-layer calls into page-exposed host methods.
func RequireBridgeReady(barrier *Barrier, timeout time.Duration) Guard {
	return NewGuard(barrier, BridgeReady, timeout)
}
