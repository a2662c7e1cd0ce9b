package asl

import (
	"context"
	"sync/atomic"
	"time"
)

// withRelativeTimeout bounds ctx by seconds from now, the enforcement
// mechanism behind a Task's TimeoutSeconds (§5.5): expiry surfaces as
// States.Timeout once the agent invocation returns (or is abandoned).
func withRelativeTimeout(ctx context.Context, seconds float64) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
}

// heartbeatMonitor cancels its derived context when no pulse is observed
// within interval, the enforcement mechanism behind a Task's
// HeartbeatSeconds (§5.5 watchdog): a long-running agent that stops calling
// CallInfo.Heartbeat is treated as hung and its invocation is abandoned with
// States.Timeout, distinct from a sibling-triggered context.Canceled.
type heartbeatMonitor struct {
	cancel  context.CancelFunc
	pulse   chan struct{}
	expired int32
}

// startHeartbeatMonitor derives a child of ctx that is cancelled if pulse()
// goes unused for longer than interval. Callers must call stop() once the
// guarded work finishes to release the background goroutine.
func startHeartbeatMonitor(ctx context.Context, interval time.Duration) (monitorCtx context.Context, pulse func(), expired func() bool, stop func()) {
	monitorCtx, cancel := context.WithCancel(ctx)
	m := &heartbeatMonitor{cancel: cancel, pulse: make(chan struct{}, 1)}

	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-done:
				return
			case <-monitorCtx.Done():
				return
			case <-m.pulse:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(interval)
			case <-timer.C:
				atomic.StoreInt32(&m.expired, 1)
				cancel()
				return
			}
		}
	}()

	pulse = func() {
		select {
		case m.pulse <- struct{}{}:
		default:
		}
	}
	expired = func() bool { return atomic.LoadInt32(&m.expired) == 1 }
	stop = func() {
		close(done)
		cancel()
	}
	return monitorCtx, pulse, expired, stop
}
