package retry

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Limiter.Wait when no token is available
// and the limiter does not wait.
var ErrRateLimited = errors.New("upstream request rate exceeded")

// Limiter throttles calls to the Google APIs.
type Limiter struct {
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

// NewLimiter returns nil when rps is not positive, which disables limiting.
// A zero waitTimeout fails fast instead of queueing.
func NewLimiter(rps float64, burst int, waitTimeout time.Duration) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		waitTimeout: waitTimeout,
	}
}

// Wait blocks until a request may proceed. A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if l.waitTimeout <= 0 {
		if !l.limiter.Allow() {
			return ErrRateLimited
		}
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()
	if err := l.limiter.Wait(waitCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return ErrRateLimited
	}
	return nil
}
