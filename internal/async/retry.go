package async

import (
	"context"
	"time"
)

// RetryConfig controls Retry behavior.
type RetryConfig struct {
	MaxAttempts int                          // total attempts including the first; min 1
	BaseDelay   time.Duration                // delay before the second attempt
	MaxDelay    time.Duration                // backoff ceiling
	Factor      float64                      // backoff multiplier per attempt
	Retryable   func(error) bool             // nil = every error is retryable
	OnRetry     func(attempt int, err error) // optional hook, called before each wait
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Factor:      2.0,
	}
}

// Retry runs op until it succeeds, the attempt budget is exhausted, or the
// Retryable predicate rejects the error. The last error is returned
// unmodified. No delay is applied after the final attempt. Waits respect
// context cancellation.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 1
	}

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if delay > 0 {
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}
		delay = time.Duration(float64(delay) * cfg.Factor)
	}

	return zero, lastErr
}
