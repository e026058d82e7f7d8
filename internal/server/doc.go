// Package server holds the shared state behind the MCP tools and the HTTP
// surfaces around them.
//
// ServerContext owns the response cache, the retry policy, the upstream rate
// limiter and lazily created Gmail and Calendar clients per account. Tests
// replace the clients through SetMailbox and SetScheduler.
//
// HTTPServer exposes the streamable-http transport on /mcp next to the
// /healthz, /readyz and /healthz/detailed probes. The X-Account request
// header selects the Google account. MetricsServer serves Prometheus
// metrics on a separate port.
package server
