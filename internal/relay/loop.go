package relay

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

const initialBackoff = 30 * time.Second

// Serve runs the relay every interval until ctx is cancelled. After a failed
// run the next attempt is retried with exponential backoff, starting at 30s
// and capped at interval.
func (r *Relay) Serve(ctx context.Context, interval time.Duration) error {
	r.logger.Info("relay loop started", "interval", interval)
	r.metrics.LoopRunning.Set(1)
	defer r.metrics.LoopRunning.Set(0)

	start := min(initialBackoff, interval)
	backoff := start

	for {
		if ctx.Err() != nil {
			r.logger.Info("relay loop stopping", "reason", ctx.Err())
			return nil
		}

		wait := interval
		if _, err := r.Run(ctx); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("relay loop stopping", "reason", ctx.Err())
				return nil
			}
			wait = backoff
			backoff = nextBackoff(backoff, interval)
			r.logger.Warn("retrying after failed run", "wait", wait)
		} else {
			backoff = start
		}

		if !sleepWithContext(ctx, r.clock, wait) {
			r.logger.Info("relay loop stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
