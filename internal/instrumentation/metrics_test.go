package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// sumFor returns the counter value for the data point carrying attr.
func sumFor(t *testing.T, data metricdata.Aggregation, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_CacheLookups(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "emails", CacheHit)
	m.RecordCacheLookup(ctx, "emails", CacheHit)
	m.RecordCacheLookup(ctx, "emails", CacheMiss)
	m.RecordCacheLookup(ctx, "calendar", CacheStale)

	data := collect(t, reader)["cache_lookups_total"]
	if got := sumFor(t, data, attribute.String(attrResult, CacheHit)); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
	if got := sumFor(t, data, attribute.String(attrResult, CacheStale)); got != 1 {
		t.Errorf("stale = %d, want 1", got)
	}
}

func TestMetrics_CacheInvalidationIgnoresZero(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordCacheInvalidation(ctx, "emails", 0)
	m.RecordCacheInvalidation(ctx, "emails", 3)

	data := collect(t, reader)["cache_invalidations_total"]
	if got := sumFor(t, data, attribute.String(attrDomain, "emails")); got != 3 {
		t.Errorf("invalidations = %d, want 3", got)
	}
}

func TestMetrics_RetryAndFallback(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordRetryAttempt(ctx, ServiceGmail, OperationList)
	m.RecordRetryAttempt(ctx, ServiceGmail, OperationList)
	m.RecordFallback(ctx, ServiceCalendar, OperationFreeBusy)

	data := collect(t, reader)
	if got := sumFor(t, data["retry_attempts_total"], attribute.String(attrService, ServiceGmail)); got != 2 {
		t.Errorf("retries = %d, want 2", got)
	}
	if got := sumFor(t, data["upstream_fallbacks_total"], attribute.String(attrOperation, OperationFreeBusy)); got != 1 {
		t.Errorf("fallbacks = %d, want 1", got)
	}
}

func TestMetrics_ToolInvocationAccountLabel(t *testing.T) {
	tests := []struct {
		name     string
		detailed bool
		account  string
		want     string
	}{
		{"default account", false, "default", "default"},
		{"named account hidden", false, "work", "named"},
		{"named account detailed", true, "work", "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordToolInvocation(context.Background(), "gmail_list_emails", StatusSuccess, tt.account, 10*time.Millisecond)

			data := collect(t, reader)["mcp_tool_invocations_total"]
			if got := sumFor(t, data, attribute.String(attrAccount, tt.want)); got != 1 {
				t.Errorf("count for account=%q is %d, want 1", tt.want, got)
			}
		})
	}
}

func TestMetrics_ObserveCache(t *testing.T) {
	m, reader := newTestMetrics(t, false)

	if err := m.ObserveCache(func() (int64, int64) { return 7, 2 }); err != nil {
		t.Fatalf("ObserveCache: %v", err)
	}

	gauge, ok := collect(t, reader)["cache_entries"].(metricdata.Gauge[int64])
	if !ok {
		t.Fatal("cache_entries gauge missing")
	}
	got := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		state, _ := dp.Attributes.Value(attrState)
		got[state.AsString()] = dp.Value
	}
	if got["active"] != 7 || got["expired"] != 2 {
		t.Errorf("cache_entries = %v, want active=7 expired=2", got)
	}
}

func TestMetrics_ZeroValueIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "emails", CacheHit)
	m.RecordToolInvocation(ctx, "t", StatusSuccess, "default", time.Second)

	empty := &Metrics{}
	empty.RecordRetryAttempt(ctx, ServiceGmail, OperationList)
	empty.RecordHTTPRequest(ctx, "GET", "/mcp", 200, time.Second)
	if err := empty.ObserveCache(func() (int64, int64) { return 0, 0 }); err != nil {
		t.Errorf("ObserveCache on zero value: %v", err)
	}
}

func TestAccountLabel(t *testing.T) {
	for in, want := range map[string]string{"": "default", "default": "default", "work": "named"} {
		if got := AccountLabel(in); got != want {
			t.Errorf("AccountLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
