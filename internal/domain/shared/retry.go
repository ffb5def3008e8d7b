package shared

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the shared retry helper
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int
	// InitialInterval is the delay before the first retry
	InitialInterval time.Duration
	// Multiplier is applied to the interval after each attempt
	Multiplier float64
	// Retryable decides whether an error is worth retrying.
	// A nil predicate retries every error.
	Retryable func(error) bool
	// OnRetry is invoked before each retry with the attempt number and error
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig matches the sync engines' policy: 3 attempts with
// 500ms/1s/2s delays.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
	}
}

// Retry runs op until it succeeds, a non-retryable error occurs, the attempt
// cap is reached, or the context is cancelled. The last error is returned on
// exhaustion.
func Retry(ctx context.Context, cfg RetryConfig, op func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.Multiplier = cfg.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return backoff.Permanent(err)
		}
		if attempt >= cfg.MaxAttempts {
			return backoff.Permanent(err)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		return err
	}

	// backoff unwraps Permanent errors before returning them
	return backoff.Retry(wrapped, backoff.WithContext(bo, ctx))
}
