package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/logging"
)

// Policy bounds how often and how slowly an upstream call is retried.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	// InitialDelay is the pause after the first failure.
	InitialDelay time.Duration
	// Multiplier scales the delay after each further failure.
	Multiplier float64
	// MaxDelay caps a single pause. Zero means no cap beyond backoff defaults.
	MaxDelay time.Duration
}

// DefaultPolicy is three attempts with 1s then 2s pauses.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	// Exact delays keep the attempt schedule predictable.
	b.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Reset()
	return b
}

func (p Policy) attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// NotifyFunc is called after a failed attempt that will be retried.
// attempt is 1-based and refers to the attempt that just failed.
type NotifyFunc func(attempt int, err error, delay time.Duration)

type options struct {
	limiter *Limiter
	notify  NotifyFunc
	logger  *slog.Logger
}

// Option tunes a single Do call.
type Option func(*options)

// WithLimiter waits on l before every attempt.
func WithLimiter(l *Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithNotify registers a hook for retried failures.
func WithNotify(fn NotifyFunc) Option {
	return func(o *options) { o.notify = fn }
}

// WithLogger logs each retried failure at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Do runs op until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. The last error is returned unwrapped.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	operation := func() (T, error) {
		var zero T
		attempt++
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return zero, backoff.Permanent(fmt.Errorf("upstream rate limiter: %w", err))
			}
		}
		v, err := op(ctx)
		if err != nil && !Retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, delay time.Duration) {
		if o.logger != nil {
			o.logger.Debug("upstream call failed, retrying",
				logging.Attempt(attempt), logging.Err(err), slog.Duration("delay", delay))
		}
		if o.notify != nil {
			o.notify(attempt, err, delay)
		}
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(policy.attempts()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var zero T
		// A permanent error on the final attempt comes back still wrapped.
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return zero, err
	}
	return v, nil
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// A malformed free/busy answer parses the same way every time.
	if errors.Is(err, calendar.ErrInvalidInterval) {
		return false
	}
	switch Classify(err) {
	case CategoryAuth:
		return false
	case CategoryRateLimit, CategoryNetwork, CategoryTimeout:
		return true
	}
	return !isClientError(err)
}
