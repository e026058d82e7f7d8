package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/resources"
	"github.com/teemow/inboxassist/internal/retry"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/cache_tools"
	"github.com/teemow/inboxassist/internal/tools/calendar_tools"
	"github.com/teemow/inboxassist/internal/tools/gmail_tools"
	"github.com/teemow/inboxassist/internal/tools/google_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	// limiterWaitTimeout bounds how long a call queues for an upstream token.
	limiterWaitTimeout = 5 * time.Second
)

// ServeConfig is the resolved configuration of the serve command.
type ServeConfig struct {
	Transport string
	HTTPAddr  string
	Debug     bool
	Yolo      bool

	GoogleClientID     string
	GoogleClientSecret string

	WorkingHoursStart    string
	WorkingHoursEnd      string
	WorkingHoursTimezone string

	// CacheSweepInterval of zero keeps expired entries until overwritten.
	CacheSweepInterval time.Duration

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration

	// UpstreamRPS of zero disables the upstream rate limit.
	UpstreamRPS   float64
	UpstreamBurst int

	Metrics MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	cfg := ServeConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that gives AI assistants
cached, retrying access to Gmail and Google Calendar.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode.
  Use --yolo to enable write operations (sending email, modifying labels,
  creating and deleting events, clearing the cache).

Every flag can also be set through the environment variable named in its
help text. A flag given on the command line wins over the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadServeEnvVars(cmd, &cfg); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	addServeFlags(cmd, &cfg)

	return cmd
}

func addServeFlags(cmd *cobra.Command, cfg *ServeConfig) {
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&cfg.Yolo, "yolo", false, "Enable write operations. Default is read-only mode.")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID for token refresh and authorization. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")

	cmd.Flags().StringVar(&cfg.WorkingHoursStart, "working-hours-start", "09:00", "Start of the free-slot search window (HH:MM). Can also use WORKING_HOURS_START env var.")
	cmd.Flags().StringVar(&cfg.WorkingHoursEnd, "working-hours-end", "18:00", "End of the free-slot search window (HH:MM). Can also use WORKING_HOURS_END env var.")
	cmd.Flags().StringVar(&cfg.WorkingHoursTimezone, "working-hours-timezone", "UTC", "IANA timezone of the working hours. Can also use WORKING_HOURS_TIMEZONE env var.")

	cmd.Flags().DurationVar(&cfg.CacheSweepInterval, "cache-sweep-interval", 0, "Purge expired cache entries at this interval (0 disables). Can also use CACHE_SWEEP_INTERVAL env var.")

	defaults := retry.DefaultPolicy()
	cmd.Flags().IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", defaults.MaxAttempts, "Attempts per upstream read, counting the first. Can also use RETRY_MAX_ATTEMPTS env var.")
	cmd.Flags().DurationVar(&cfg.RetryInitialDelay, "retry-initial-delay", defaults.InitialDelay, "Pause after the first failed attempt, doubled for each further one. Can also use RETRY_INITIAL_DELAY env var.")

	cmd.Flags().Float64Var(&cfg.UpstreamRPS, "upstream-rps", 0, "Maximum Google API requests per second (0 disables). Can also use UPSTREAM_RPS env var.")
	cmd.Flags().IntVar(&cfg.UpstreamBurst, "upstream-burst", 5, "Burst allowed above --upstream-rps. Can also use UPSTREAM_BURST env var.")

	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// loadServeEnvVars fills cfg from the environment. An environment variable
// only applies when the matching flag was not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) error {
	changed := cmd.Flags().Changed

	stringVars := []struct {
		flag, env string
		dst       *string
	}{
		{"google-client-id", "GOOGLE_CLIENT_ID", &cfg.GoogleClientID},
		{"google-client-secret", "GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret},
		{"working-hours-start", "WORKING_HOURS_START", &cfg.WorkingHoursStart},
		{"working-hours-end", "WORKING_HOURS_END", &cfg.WorkingHoursEnd},
		{"working-hours-timezone", "WORKING_HOURS_TIMEZONE", &cfg.WorkingHoursTimezone},
		{"metrics-addr", "METRICS_ADDR", &cfg.Metrics.Addr},
	}
	for _, v := range stringVars {
		if changed(v.flag) {
			continue
		}
		if val := os.Getenv(v.env); val != "" {
			*v.dst = val
		}
	}

	durationVars := []struct {
		flag, env string
		dst       *time.Duration
	}{
		{"cache-sweep-interval", "CACHE_SWEEP_INTERVAL", &cfg.CacheSweepInterval},
		{"retry-initial-delay", "RETRY_INITIAL_DELAY", &cfg.RetryInitialDelay},
	}
	for _, v := range durationVars {
		if changed(v.flag) {
			continue
		}
		if val := os.Getenv(v.env); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", v.env, val, err)
			}
			*v.dst = d
		}
	}

	intVars := []struct {
		flag, env string
		dst       *int
	}{
		{"retry-max-attempts", "RETRY_MAX_ATTEMPTS", &cfg.RetryMaxAttempts},
		{"upstream-burst", "UPSTREAM_BURST", &cfg.UpstreamBurst},
	}
	for _, v := range intVars {
		if changed(v.flag) {
			continue
		}
		if val := os.Getenv(v.env); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", v.env, val, err)
			}
			*v.dst = n
		}
	}

	if !changed("upstream-rps") {
		if val := os.Getenv("UPSTREAM_RPS"); val != "" {
			rps, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid UPSTREAM_RPS %q: %w", val, err)
			}
			cfg.UpstreamRPS = rps
		}
	}

	if !changed("metrics-enabled") {
		if val := os.Getenv("METRICS_ENABLED"); val != "" {
			enabled, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid METRICS_ENABLED %q: %w", val, err)
			}
			cfg.Metrics.Enabled = enabled
		}
	}

	return nil
}

// Validate checks the settings that do not need any I/O.
func (c ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q, must be %s or %s", c.Transport, transportStdio, transportStreamableHTTP)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.RetryInitialDelay < 0 {
		return fmt.Errorf("retry initial delay must not be negative, got %s", c.RetryInitialDelay)
	}
	if c.CacheSweepInterval < 0 {
		return fmt.Errorf("cache sweep interval must not be negative, got %s", c.CacheSweepInterval)
	}
	if c.UpstreamRPS < 0 {
		return fmt.Errorf("upstream rps must not be negative, got %v", c.UpstreamRPS)
	}
	return nil
}

func (c ServeConfig) workingHours() (calendar.WorkingHours, error) {
	return calendar.ParseWorkingHours(c.WorkingHoursStart, c.WorkingHoursEnd, c.WorkingHoursTimezone)
}

func (c ServeConfig) retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.RetryMaxAttempts
	p.InitialDelay = c.RetryInitialDelay
	return p
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	// stderr keeps stdout free for the stdio transport.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe(cfg ServeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	hours, err := cfg.workingHours()
	if err != nil {
		return err
	}
	policy := cfg.retryPolicy()

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", "error", err)
		}
	}()

	responseCache := cache.New(cache.WithLogger(logging.NewSlogAdapter(logger)))
	if err := provider.Metrics().ObserveCache(func() (int64, int64) {
		s := responseCache.Stats()
		return int64(s.Active), int64(s.Expired)
	}); err != nil {
		return err
	}

	sweeper := cache.NewSweeper(responseCache, cfg.CacheSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	tokenStore := memory.New()
	defer tokenStore.Stop()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Config{
		Credentials: google.Credentials{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		},
		TokenProvider: google.NewStoreTokenProvider(tokenStore, google.NewFileTokenProvider(""), logger),
		Cache:         responseCache,
		WorkingHours:  &hours,
		RetryPolicy:   &policy,
		Limiter:       retry.NewLimiter(cfg.UpstreamRPS, cfg.UpstreamBurst, limiterWaitTimeout),
		Metrics:       provider.Metrics(),
		AuditLogger:   instrumentation.NewAuditLogger(logger, instrConfig.Audit),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", "error", err)
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxassist", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	readOnly := !cfg.Yolo
	if readOnly {
		logger.Info("starting in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting with write operations enabled")
	}
	logger.Info("working hours", "window", hours.String(), "cache_sweep_interval", cfg.CacheSweepInterval)

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch cfg.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, provider, cfg, logger)
	}
}

// registerAllTools registers every tool group and the server resources.
// Write tools are skipped when readOnly is set.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register Gmail tools: %w", err)
	}
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register Calendar tools: %w", err)
	}
	if err := cache_tools.RegisterCacheTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register cache tools: %w", err)
	}
	if err := google_tools.RegisterGoogleTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register Google auth tools: %w", err)
	}
	if err := resources.RegisterServerResources(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, cfg ServeConfig, logger *slog.Logger) error {
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     cfg.Metrics.Addr,
			Provider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	httpServer := server.NewHTTPServer(mcpSrv, sc, server.NewHealthChecker(sc))

	errCh := make(chan error, 2)
	go func() {
		errCh <- httpServer.Start(cfg.HTTPAddr)
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
