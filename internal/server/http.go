package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MCPEndpoint is the streamable-http endpoint path.
const MCPEndpoint = "/mcp"

// HTTPServer serves the MCP streamable-http transport and the health probes.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	sc         *ServerContext
	health     *HealthChecker
	httpServer *http.Server
}

// NewHTTPServer builds the HTTP transport for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, health *HealthChecker) *HTTPServer {
	if health == nil {
		health = NewHealthChecker(sc)
	}
	return &HTTPServer{mcpServer: mcpServer, sc: sc, health: health}
}

// Handler returns the full handler tree: MCP, health endpoints, request
// metrics and tracing.
func (s *HTTPServer) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
		mcpserver.WithHTTPContextFunc(accountFromRequest),
	)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, requireValidAccount(streamable))
	s.health.RegisterHealthEndpoints(mux)

	return otelhttp.NewHandler(s.recordRequests(mux), "mcp.http")
}

// recordRequests reports each request to the http_requests metrics.
func (s *HTTPServer) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, m.Code, m.Duration)
	})
}

// Start listens on addr and blocks until the server stops. A clean shutdown
// returns nil.
func (s *HTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	slog.Info("starting MCP HTTP server", "addr", addr, "endpoint", MCPEndpoint)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
