package tradezero

import (
	"context"
	"time"
)

type waitFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// poll calls check up to attempts times with interval between calls (not
// after the last one). It stops at the first done or error and reports
// whether check finished before the budget ran out.
func poll(ctx context.Context, wait waitFunc, attempts int, interval time.Duration, check func(attempt int) (bool, error)) (bool, error) {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := wait(ctx, interval); err != nil {
				return false, err
			}
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := check(i)
		if err != nil || done {
			return done, err
		}
	}
	return false, nil
}
