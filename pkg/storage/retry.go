package storage

import (
	"context"
	"time"
)

// RetryConfig controls how idempotent driver calls are retried
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// OnRetry, when set, is called before each wait with the attempt that failed
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the policy used when config sets nothing
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NoRetry runs the operation exactly once
func NoRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// backoff returns the wait that follows delay
func (c RetryConfig) backoff(delay time.Duration) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(delay) * factor)
	if c.MaxDelay > 0 && next > c.MaxDelay {
		next = c.MaxDelay
	}
	return next
}

// WithRetry runs op until it succeeds, fails with a non-transport error, or runs
// out of attempts. Only ErrConnFailed and ErrTimeout are retried.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	attempts := max(cfg.MaxAttempts, 1)
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if IsCritical(err) || !IsRetryable(err) || attempt == attempts {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			delay = cfg.backoff(delay)
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
