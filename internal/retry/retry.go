// Package retry re-invokes fallible operations with exponential backoff.
//
// The loop itself is avast/retry-go; this package fixes the policy used
// across digest: a bounded number of attempts, delays of d, 2d, 4d, ...
// between them, no retry for cancellation, and the last error returned
// unchanged once attempts run out.
package retry

import (
	"context"
	"errors"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/jackzampolin/digest/internal/cancel"
)

const (
	DefaultAttempts     = 3
	DefaultInitialDelay = time.Second
)

// Option configures Do.
type Option func(*config)

type config struct {
	attempts     int
	initialDelay time.Duration
	maxDelay     time.Duration
	retryIf      func(error) bool
	onRetry      func(attempt int, delay time.Duration, err error)
}

// Attempts sets the total number of invocations, including the first.
// Values below 1 are treated as 1.
func Attempts(n int) Option {
	return func(c *config) { c.attempts = n }
}

// InitialDelay sets the wait before the second attempt. Each following wait
// doubles.
func InitialDelay(d time.Duration) Option {
	return func(c *config) { c.initialDelay = d }
}

// MaxDelay caps a single wait. Zero means no cap.
func MaxDelay(d time.Duration) Option {
	return func(c *config) { c.maxDelay = d }
}

// If restricts retries to errors for which pred returns true. Cancellation
// is never retried regardless of pred.
func If(pred func(error) bool) Option {
	return func(c *config) { c.retryIf = pred }
}

// OnRetry registers fn to run before each backoff wait. attempt is the
// 1-based number of the invocation that just failed.
func OnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(c *config) { c.onRetry = fn }
}

// IsCancellation reports whether err stems from a cancelled or expired
// context or a cancelled token.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, cancel.ErrCancelled)
}

// Backoff returns the wait after the given 1-based failed attempt:
// initial * 2^(attempt-1).
func Backoff(initial time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	return initial << shift
}

// Do invokes op until it succeeds, returns a non-retryable error, attempts
// run out, or ctx is done. The backoff wait observes ctx, so cancelling ctx
// while waiting prevents the next attempt and returns ctx's error.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	cfg := config{
		attempts:     DefaultAttempts,
		initialDelay: DefaultInitialDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	var invocations int
	return retrygo.DoWithData(
		func() (T, error) {
			invocations++
			return op(ctx)
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(cfg.attempts)),
		retrygo.LastErrorOnly(true),
		retrygo.RetryIf(func(err error) bool {
			if IsCancellation(err) || ctx.Err() != nil {
				return false
			}
			return cfg.retryIf == nil || cfg.retryIf(err)
		}),
		// The delay hook only runs when another attempt follows, which makes
		// it the right place for the retry callback.
		retrygo.DelayType(func(_ uint, err error, _ *retrygo.Config) time.Duration {
			d := Backoff(cfg.initialDelay, invocations)
			if cfg.maxDelay > 0 && d > cfg.maxDelay {
				d = cfg.maxDelay
			}
			if cfg.onRetry != nil {
				cfg.onRetry(invocations, d, err)
			}
			return d
		}),
	)
}
