package cmd

import (
	"context"
	"slices"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/server"
)

func parseServeFlags(t *testing.T, args ...string) (*cobra.Command, *ServeConfig) {
	t.Helper()
	cfg := &ServeConfig{}
	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd, cfg)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd, cfg
}

func TestServeDefaults(t *testing.T) {
	cmd, cfg := parseServeFlags(t)
	if err := loadServeEnvVars(cmd, cfg); err != nil {
		t.Fatalf("loadServeEnvVars() error = %v", err)
	}

	if cfg.Transport != transportStdio {
		t.Errorf("Transport = %q, want %q", cfg.Transport, transportStdio)
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryInitialDelay != time.Second {
		t.Errorf("retry = %d/%s, want 3/1s", cfg.RetryMaxAttempts, cfg.RetryInitialDelay)
	}
	if cfg.CacheSweepInterval != 0 {
		t.Errorf("CacheSweepInterval = %s, want 0", cfg.CacheSweepInterval)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != server.DefaultMetricsAddr {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}

	hours, err := cfg.workingHours()
	if err != nil {
		t.Fatalf("workingHours() error = %v", err)
	}
	if hours.Start != 9*time.Hour || hours.End != 18*time.Hour || hours.Location != time.UTC {
		t.Errorf("workingHours() = %+v, want 09:00-18:00 UTC", hours)
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("WORKING_HOURS_START", "08:30")
	t.Setenv("WORKING_HOURS_TIMEZONE", "Europe/Berlin")
	t.Setenv("CACHE_SWEEP_INTERVAL", "5m")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("UPSTREAM_RPS", "2.5")
	t.Setenv("METRICS_ENABLED", "false")

	cmd, cfg := parseServeFlags(t, "--retry-max-attempts=4")
	if err := loadServeEnvVars(cmd, cfg); err != nil {
		t.Fatalf("loadServeEnvVars() error = %v", err)
	}

	if cfg.GoogleClientID != "env-client" {
		t.Errorf("GoogleClientID = %q, want env-client", cfg.GoogleClientID)
	}
	if cfg.WorkingHoursStart != "08:30" || cfg.WorkingHoursTimezone != "Europe/Berlin" {
		t.Errorf("working hours = %s %s", cfg.WorkingHoursStart, cfg.WorkingHoursTimezone)
	}
	if cfg.CacheSweepInterval != 5*time.Minute {
		t.Errorf("CacheSweepInterval = %s, want 5m", cfg.CacheSweepInterval)
	}
	// The flag wins over the environment.
	if cfg.RetryMaxAttempts != 4 {
		t.Errorf("RetryMaxAttempts = %d, want 4", cfg.RetryMaxAttempts)
	}
	if cfg.UpstreamRPS != 2.5 {
		t.Errorf("UpstreamRPS = %v, want 2.5", cfg.UpstreamRPS)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false from METRICS_ENABLED")
	}
}

func TestLoadServeEnvVarsRejectsBadValues(t *testing.T) {
	tests := []struct {
		env, value string
	}{
		{"CACHE_SWEEP_INTERVAL", "soon"},
		{"RETRY_INITIAL_DELAY", "1"},
		{"RETRY_MAX_ATTEMPTS", "three"},
		{"UPSTREAM_RPS", "fast"},
		{"METRICS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			cmd, cfg := parseServeFlags(t)
			if err := loadServeEnvVars(cmd, cfg); err == nil {
				t.Errorf("loadServeEnvVars() with %s=%q succeeded, want error", tt.env, tt.value)
			}
		})
	}
}

func TestServeConfigValidate(t *testing.T) {
	valid := ServeConfig{Transport: transportStdio, RetryMaxAttempts: 3, RetryInitialDelay: time.Second}

	tests := []struct {
		name    string
		mutate  func(*ServeConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*ServeConfig) {}},
		{name: "http transport", mutate: func(c *ServeConfig) { c.Transport = transportStreamableHTTP }},
		{name: "unknown transport", mutate: func(c *ServeConfig) { c.Transport = "sse" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *ServeConfig) { c.RetryMaxAttempts = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(c *ServeConfig) { c.RetryInitialDelay = -time.Second }, wantErr: true},
		{name: "negative sweep", mutate: func(c *ServeConfig) { c.CacheSweepInterval = -time.Minute }, wantErr: true},
		{name: "negative rps", mutate: func(c *ServeConfig) { c.UpstreamRPS = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvalidWorkingHours(t *testing.T) {
	cfg := ServeConfig{WorkingHoursStart: "18:00", WorkingHoursEnd: "09:00"}
	if _, err := cfg.workingHours(); err == nil {
		t.Error("workingHours() accepted an end before the start")
	}
	cfg = ServeConfig{WorkingHoursStart: "09:00", WorkingHoursEnd: "18:00", WorkingHoursTimezone: "Mars/Olympus"}
	if _, err := cfg.workingHours(); err == nil {
		t.Error("workingHours() accepted an unknown timezone")
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := ServeConfig{RetryMaxAttempts: 5, RetryInitialDelay: 250 * time.Millisecond}
	p := cfg.retryPolicy()
	if p.MaxAttempts != 5 || p.InitialDelay != 250*time.Millisecond || p.Multiplier != 2 {
		t.Errorf("retryPolicy() = %+v", p)
	}
}

func registeredTools(t *testing.T, readOnly bool) []string {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Config{})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	if err := registerAllTools(s, sc, readOnly); err != nil {
		t.Fatalf("registerAllTools() error = %v", err)
	}
	var names []string
	for name := range s.ListTools() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func TestRegisterAllToolsReadOnly(t *testing.T) {
	want := []string{
		"cache_invalidate",
		"cache_stats",
		"calendar_check_availability",
		"calendar_find_free_slots",
		"calendar_get_schedule",
		"gmail_draft_reply",
		"gmail_get_email",
		"gmail_list_emails",
		"gmail_search_emails",
		"google_get_auth_url",
		"google_save_auth_code",
	}
	if got := registeredTools(t, true); !slices.Equal(got, want) {
		t.Errorf("read-only tools = %v, want %v", got, want)
	}
}

func TestRegisterAllToolsWithWrites(t *testing.T) {
	got := registeredTools(t, false)
	for _, name := range []string{
		"cache_clear",
		"calendar_create_event",
		"calendar_delete_event",
		"gmail_batch_modify",
		"gmail_send_email",
	} {
		if !slices.Contains(got, name) {
			t.Errorf("write tool %s not registered", name)
		}
	}
	if len(got) != 16 {
		t.Errorf("registered %d tools, want 16: %v", len(got), got)
	}
}
