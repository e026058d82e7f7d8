// Package instrumentation wires OpenTelemetry metrics and tracing for the
// inboxassist MCP server.
//
// Metrics:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//   - google_api_operations_total, google_api_operation_duration_seconds
//   - retry_attempts_total{service,operation}
//   - upstream_fallbacks_total{service,operation}: stale cache answers
//   - cache_lookups_total{domain,result}: result is hit, miss or stale
//   - cache_invalidations_total{domain}
//   - cache_entries{state}: observable gauge of active and expired entries
//   - http_requests_total, http_request_duration_seconds
//
// Exporters are chosen through Config (prometheus, otlp or stdout for
// metrics; otlp, stdout or none for traces). The Prometheus exporter uses a
// private registry exposed through Provider.PrometheusHandler.
//
// Tool calls are audited through AuditLogger. Account names are hashed
// unless AuditConfig.IncludePII is set.
package instrumentation
