package swrcache

import (
	"context"
	"math/rand"
	"time"
)

// retryConfig controls the backoff schedule for a single fetch.
type retryConfig struct {
	attempts   int
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

// runRetry executes fn until it succeeds, attempts are exhausted or ctx is
// cancelled. Backoff grows exponentially and carries ±20% jitter.
func runRetry[T any](ctx context.Context, rc retryConfig, log Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	backoff := rc.initial
	for attempt := 1; attempt <= rc.attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= rc.attempts {
			break
		}

		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		log.Debug("fetch failed; retrying after backoff", Fields{
			"attempt": attempt,
			"backoff": wait.String(),
			"error":   err.Error(),
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * rc.multiplier)
		if backoff > rc.max {
			backoff = rc.max
		}
	}
	return zero, lastErr
}
