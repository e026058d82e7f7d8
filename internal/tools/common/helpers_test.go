package common

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/retry"
	"github.com/teemow/inboxassist/internal/server"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type testEnv struct {
	sc    *server.ServerContext
	clock *fakeClock
	audit *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	audit := &bytes.Buffer{}
	policy := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 10 * time.Millisecond}

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Cache:       cache.New(cache.WithClock(clock.Now), cache.WithLogger(logging.Discard())),
		RetryPolicy: &policy,
		Logger:      logging.Discard().Logger(),
		AuditLogger: instrumentation.NewAuditLogger(
			slog.New(slog.NewJSONHandler(audit, nil)),
			instrumentation.AuditConfig{Enabled: true},
		),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return &testEnv{sc: sc, clock: clock, audit: audit}
}
