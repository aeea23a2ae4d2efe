package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
	Multiplier      float64 // Zero uses the backoff default
}

// GetReconnectRetryOptions returns retry options for re-establishing a server connection.
// A zero MaxElapsedTime keeps retrying until the context is cancelled.
func GetReconnectRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  0,
		InitialInterval: 2 * time.Second,
		MaxInterval:     2 * time.Minute,
		MaxRetries:      0,
	}
}

// WithRetry executes the given operation with exponential backoff using provided options.
// A MaxRetries of zero means no retry cap.
func WithRetry[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	backoffOpts := []backoff.ExponentialBackOffOpts{
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	}
	if opts.Multiplier > 0 {
		backoffOpts = append(backoffOpts, backoff.WithMultiplier(opts.Multiplier))
	}

	var b backoff.BackOff = backoff.NewExponentialBackOff(backoffOpts...)
	if opts.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, opts.MaxRetries)
	}

	err := backoff.Retry(func() error {
		var err error
		result, err = operation()
		return err
	}, backoff.WithContext(b, ctx))

	return result, err
}
