package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
	attrDomain    = "domain"
	attrState     = "state"
)

// CacheStatsFunc reports the current number of active and expired entries.
type CacheStatsFunc func() (active, expired int64)

// Metrics records counters and histograms for tools, upstream calls and the
// response cache. The zero value is a no-op recorder.
type Metrics struct {
	meter metric.Meter

	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	upstreamOperationsTotal   metric.Int64Counter
	upstreamOperationDuration metric.Float64Histogram
	retryAttemptsTotal        metric.Int64Counter
	upstreamFallbacksTotal    metric.Int64Counter

	cacheLookupsTotal       metric.Int64Counter
	cacheInvalidationsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{meter: meter, detailedLabels: detailedLabels}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.upstreamOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}"},
		{&m.retryAttemptsTotal, "retry_attempts_total", "Upstream calls retried after a transient failure", "{attempt}"},
		{&m.upstreamFallbacksTotal, "upstream_fallbacks_total", "Responses served from expired cache entries", "{response}"},
		{&m.cacheLookupsTotal, "cache_lookups_total", "Cache lookups by result", "{lookup}"},
		{&m.cacheInvalidationsTotal, "cache_invalidations_total", "Cache entries removed by invalidation", "{entry}"},
		{&m.toolInvocationsTotal, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds",
			[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}},
		{&m.upstreamOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds",
			[]float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	return m, nil
}

// ObserveCache registers the cache_entries gauge, reporting stats on every
// collection.
func (m *Metrics) ObserveCache(stats CacheStatsFunc) error {
	if m.meter == nil || stats == nil {
		return nil
	}
	gauge, err := m.meter.Int64ObservableGauge("cache_entries",
		metric.WithDescription("Cached entries by freshness"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache_entries gauge: %w", err)
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		active, expired := stats()
		o.ObserveInt64(gauge, active, metric.WithAttributes(attribute.String(attrState, "active")))
		o.ObserveInt64(gauge, expired, metric.WithAttributes(attribute.String(attrState, "expired")))
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register cache_entries callback: %w", err)
	}
	return nil
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records one upstream attempt.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.upstreamOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.upstreamOperationsTotal.Add(ctx, 1, attrs)
	m.upstreamOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetryAttempt counts a retry scheduled after a transient failure.
func (m *Metrics) RecordRetryAttempt(ctx context.Context, service, operation string) {
	if m == nil || m.retryAttemptsTotal == nil {
		return
	}
	m.retryAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
	))
}

// RecordFallback counts a response served from an expired cache entry.
func (m *Metrics) RecordFallback(ctx context.Context, service, operation string) {
	if m == nil || m.upstreamFallbacksTotal == nil {
		return
	}
	m.upstreamFallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
	))
}

// RecordCacheLookup records a hit, miss or stale read for a key domain.
func (m *Metrics) RecordCacheLookup(ctx context.Context, domain, result string) {
	if m == nil || m.cacheLookupsTotal == nil {
		return
	}
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrDomain, domain),
		attribute.String(attrResult, result),
	))
}

// RecordCacheInvalidation adds count removed entries for a key domain.
func (m *Metrics) RecordCacheInvalidation(ctx context.Context, domain string, count int) {
	if m == nil || m.cacheInvalidationsTotal == nil || count <= 0 {
		return
	}
	m.cacheInvalidationsTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String(attrDomain, domain),
	))
}

// RecordToolInvocation records one tool call. The raw account name is only
// used as a label when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	label := AccountLabel(account)
	if m.detailedLabels && account != "" {
		label = account
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
		attribute.String(attrAccount, label),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
