// Package retry runs an operation again with exponential backoff and jitter.
// The remote syncer uses it around batch pushes.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// permanentError stops Do from retrying.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type config struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64
	retryIf      func(error) bool
	onRetry      func(attempt int, err error, delay time.Duration)
}

// Option configures a Retrier.
type Option func(*config)

// WithMaxAttempts sets the attempt limit, first attempt included.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay caps the delay between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor; values below 1 are ignored.
func WithMultiplier(m float64) Option {
	return func(c *config) {
		if m >= 1 {
			c.multiplier = m
		}
	}
}

// WithJitter spreads each delay by up to ±j of itself, j in [0, 1].
func WithJitter(j float64) Option {
	return func(c *config) {
		if j >= 0 && j <= 1 {
			c.jitter = j
		}
	}
}

// WithRetryIf decides which errors are retried. Permanent errors never are.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) { c.retryIf = fn }
}

// WithOnRetry is called before each wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *config) { c.onRetry = fn }
}

// Retrier runs operations with retries.
type Retrier struct {
	cfg config
}

// New creates a Retrier. Defaults: 3 attempts, 100ms doubling up to 30s,
// 10% jitter, every non-permanent error retried.
func New(opts ...Option) *Retrier {
	cfg := config{
		maxAttempts:  3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{cfg: cfg}
}

// MaxAttempts returns the attempt limit.
func (r *Retrier) MaxAttempts() int {
	return r.cfg.maxAttempts
}

// Do calls op until it succeeds, returns an error that is not retried, or
// runs out of attempts. The last error is returned. A cancelled context ends
// the wait early.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		last = err

		if attempt >= r.cfg.maxAttempts || (r.cfg.retryIf != nil && !r.cfg.retryIf(err)) {
			return err
		}

		delay := r.Backoff(attempt)
		if r.cfg.onRetry != nil {
			r.cfg.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
	}
}

// Backoff returns the wait after the given failed attempt.
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := float64(r.cfg.initialDelay) * math.Pow(r.cfg.multiplier, float64(attempt-1))
	d = math.Min(d, float64(r.cfg.maxDelay))
	if r.cfg.jitter > 0 {
		d += d * r.cfg.jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// Do runs op with a Retrier built from opts.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}
