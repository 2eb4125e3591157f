// Package retrier provides bounded retries with a fixed delay between
// attempts.
package retrier

import (
	"context"
	"time"
)

const (
	defaultDelay       = 2 * time.Second
	defaultMaxAttempts = 3
)

// Retrier runs an operation up to a bounded number of attempts, sleeping a
// fixed delay between them.
type Retrier struct {
	delay       time.Duration
	maxAttempts int
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithDelay sets the delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(r *Retrier) {
		r.delay = d
	}
}

// WithMaxAttempts sets the total number of attempts (not retries).
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// New creates a new Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		delay:       defaultDelay,
		maxAttempts: defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn until it succeeds or attempts are exhausted, returning the
// last error. The context cancels the wait between attempts, not a running
// attempt.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
	}

	return err
}

// DoWithData executes the given function with retries and returns a value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
