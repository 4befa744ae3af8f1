package health

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/stagehand/internal/detector"
	"github.com/loykin/stagehand/internal/errdefs"
)

// Gate polls a readiness check at a fixed interval until it reports ready or
// the timeout elapses. Polling blocks the caller: nothing useful can proceed
// until the dependency is observably up, and the daemons offer no
// notification channel to subscribe to instead.
type Gate struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Await blocks until check is ready (nil), the deadline passes
// (ErrStartupTimeout), or ctx is cancelled (ErrCancelled). Probe errors are
// tolerated while the deadline allows; the last one is attached to the
// timeout error.
func (g Gate) Await(ctx context.Context, check detector.Detector) error {
	interval := g.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.Now().Add(g.Timeout)

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: awaiting %s", errdefs.ErrCancelled, check.Describe())
		}
		ok, err := check.Ready()
		if ok {
			return nil
		}
		lastErr = err

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if remaining < interval {
			interval = remaining
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: awaiting %s", errdefs.ErrCancelled, check.Describe())
		case <-time.After(interval):
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s after %v (last probe error: %v)", errdefs.ErrStartupTimeout, check.Describe(), g.Timeout, lastErr)
	}
	return fmt.Errorf("%w: %s after %v", errdefs.ErrStartupTimeout, check.Describe(), g.Timeout)
}
