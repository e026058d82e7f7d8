package common

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/retry"
	"github.com/teemow/inboxassist/internal/server"
)

// StaleNotice prefixes answers served from an expired cache entry.
const StaleNotice = "Note: I couldn't reach the service just now, so this may be outdated (cached data from before %s).\n\n"

// Call describes one upstream call made on behalf of a tool.
type Call struct {
	Service   string
	Operation string

	// Key and TTL enable caching. An empty Key skips the cache entirely.
	Key string
	TTL time.Duration

	// Activity completes "while ..." in user-facing error messages,
	// e.g. "fetching your emails".
	Activity string
}

// Result is a fetched value and where it came from.
type Result[T any] struct {
	Value  T
	Source string

	// ExpiredAt is set for stale answers.
	ExpiredAt time.Time
}

// Stale reports whether the value came from an expired cache entry.
func (r Result[T]) Stale() bool {
	return r.Source == instrumentation.SourceStale
}

// Annotate prefixes text with StaleNotice when the result is stale.
func (r Result[T]) Annotate(text string) string {
	if !r.Stale() {
		return text
	}
	return fmt.Sprintf(StaleNotice, r.ExpiredAt.UTC().Format(time.RFC1123)) + text
}

// Fetch serves call from the cache when fresh. On a miss it runs fetch with
// retries, collapsing concurrent misses for the same key, and caches the
// result. When the upstream still fails, any expired entry for the key is
// returned instead, unless the failure is an authentication error.
func Fetch[T any](ctx context.Context, sc *server.ServerContext, call Call, fetch func(context.Context) (T, error)) (Result[T], error) {
	c := sc.Cache()
	metrics := sc.Metrics()
	domain := cache.Domain(call.Key)

	if call.Key != "" {
		if v, ok := cache.Lookup[T](c, call.Key); ok {
			metrics.RecordCacheLookup(ctx, domain, instrumentation.CacheHit)
			setSource(ctx, instrumentation.SourceCache)
			return Result[T]{Value: v, Source: instrumentation.SourceCache}, nil
		}
		metrics.RecordCacheLookup(ctx, domain, instrumentation.CacheMiss)
	}

	v, err := fetchUpstream(ctx, sc, call, fetch)
	if err == nil {
		if call.Key != "" {
			c.Set(call.Key, v, call.TTL)
		}
		setSource(ctx, instrumentation.SourceUpstream)
		return Result[T]{Value: v, Source: instrumentation.SourceUpstream}, nil
	}

	if retry.IsAuth(err) || call.Key == "" || ctx.Err() != nil {
		return Result[T]{}, err
	}

	stale, expiredAt, ok := cache.LookupStale[T](c, call.Key)
	if !ok {
		return Result[T]{}, err
	}
	metrics.RecordCacheLookup(ctx, domain, instrumentation.CacheStale)
	metrics.RecordFallback(ctx, call.Service, call.Operation)
	sc.Logger().Warn("serving stale cache entry after upstream failure",
		logging.Service(call.Service),
		logging.Operation(call.Operation),
		logging.CacheKey(call.Key),
		logging.Err(err))
	setSource(ctx, instrumentation.SourceStale)
	return Result[T]{Value: stale, Source: instrumentation.SourceStale, ExpiredAt: expiredAt}, nil
}

// fetchUpstream runs fetch with retries. Keyed calls are coalesced into one
// flight that runs detached from any single caller's cancellation, bounded
// only by server shutdown; each caller still stops waiting when its own ctx
// is done.
func fetchUpstream[T any](ctx context.Context, sc *server.ServerContext, call Call, fetch func(context.Context) (T, error)) (T, error) {
	run := func(ctx context.Context) (T, error) {
		return retry.Do(ctx, sc.RetryPolicy(), traced(sc, call, fetch),
			retry.WithLimiter(sc.Limiter()),
			retry.WithLogger(sc.Logger()),
			retry.WithNotify(func(int, error, time.Duration) {
				sc.Metrics().RecordRetryAttempt(ctx, call.Service, call.Operation)
			}),
		)
	}
	if call.Key == "" {
		return run(ctx)
	}

	flight := sc.Flights().DoChan(call.Key, func() (any, error) {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(sc.Context(), cancel)
		defer stop()
		return run(flightCtx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Mutate runs a write once, without caching or retries, and then removes
// every cached entry whose key contains one of invalidate.
func Mutate[T any](ctx context.Context, sc *server.ServerContext, call Call, write func(context.Context) (T, error), invalidate ...string) (T, error) {
	if err := sc.Limiter().Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	v, err := traced(sc, call, write)(ctx)
	if err != nil {
		return v, err
	}
	setSource(ctx, instrumentation.SourceUpstream)
	Invalidate(ctx, sc, invalidate...)
	return v, nil
}

// Invalidate removes every cached entry whose key contains one of patterns
// and returns how many were removed.
func Invalidate(ctx context.Context, sc *server.ServerContext, patterns ...string) int {
	total := 0
	for _, pattern := range patterns {
		n := sc.Cache().InvalidatePattern(pattern)
		sc.Metrics().RecordCacheInvalidation(ctx, cache.Domain(pattern), n)
		total += n
	}
	return total
}

// InvalidateAccount removes every cached entry scoped to account and returns
// how many were removed.
func InvalidateAccount(ctx context.Context, sc *server.ServerContext, account string) int {
	n := sc.Cache().InvalidateScope(account)
	sc.Metrics().RecordCacheInvalidation(ctx, "all", n)
	return n
}

// traced wraps one upstream attempt in a span and records its outcome.
func traced[T any](sc *server.ServerContext, call Call, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		ctx, span := instrumentation.StartGoogleAPISpan(ctx, call.Service, call.Operation)
		defer span.End()

		start := time.Now()
		v, err := fn(ctx)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		sc.Metrics().RecordGoogleAPIOperation(ctx, call.Service, call.Operation, status, time.Since(start))
		return v, err
	}
}

// ErrorResult renders err as a categorized, user-facing tool error.
func ErrorResult(err error, activity string) *mcp.CallToolResult {
	return mcp.NewToolResultError(retry.UserMessage(err, activity))
}
