// internal/browser/poll.go
package browser

import (
	"context"
	"fmt"
	"time"
)

// ErrPollTimeout is returned by Poll when the predicate never succeeded.
var ErrPollTimeout = fmt.Errorf("condition not met before deadline")

// Predicate reports whether the awaited condition holds. A non-nil error
// aborts the poll immediately.
type Predicate func(ctx context.Context) (bool, error)

// Poll evaluates the predicate every interval until it returns true, errors,
// or maxWait elapses. It replaces the scattered fixed sleeps the portal flows
// would otherwise need.
func Poll(ctx context.Context, maxWait, interval time.Duration, predicate Predicate) error {
	deadline := time.Now().Add(maxWait)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := predicate(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (waited %s)", ErrPollTimeout, maxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
