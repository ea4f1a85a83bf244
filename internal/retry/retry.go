package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// Fixed calls fn once and then up to retries more times, sleeping delay
// between attempts. It returns the last error, or ctx.Err() if the context
// ends while waiting.
func Fixed(ctx context.Context, retries int, delay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if retries < 0 {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt >= retries {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Backoff is like Fixed but doubles the delay after each failure, starting at
// min and capped at max.
func Backoff(ctx context.Context, retries int, min, max time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if retries < 0 {
		retries = 0
	}
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}

	b := &backoff.Backoff{Min: min, Max: max, Factor: 2}
	for attempt := 0; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt >= retries {
			return err
		}
		if err := sleep(ctx, b.Duration()); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
