package calendar_tools

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/retry"
	"github.com/teemow/inboxassist/internal/server"
)

var (
	errUnavailable  = &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "backend error"}
	errUnauthorized = &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}
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

type freeBusyQuery struct {
	min, max time.Time
	ids      []string
}

// fakeScheduler is an in-memory calendar.Scheduler.
type fakeScheduler struct {
	mu sync.Mutex

	events []calendar.EventSummary
	busy   map[string][]calendar.TimeRange
	errs   map[string][]string

	readErr  error
	writeErr error

	listCalls int
	queries   []freeBusyQuery
	created   []calendar.EventInput
	deleted   []string
}

var _ calendar.Scheduler = (*fakeScheduler)(nil)

func (f *fakeScheduler) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []calendar.EventSummary
	for _, ev := range f.events {
		if ev.End.After(timeMin) && ev.Start.Before(timeMax) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeScheduler) CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.created = append(f.created, input)
	return &calendar.EventSummary{ID: "ev-new", Summary: input.Summary, Start: input.Start, End: input.End, AllDay: input.AllDay}, nil
}

func (f *fakeScheduler) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeScheduler) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]calendar.FreeBusyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, freeBusyQuery{min: timeMin, max: timeMax, ids: calendarIDs})
	if f.readErr != nil {
		return nil, f.readErr
	}
	infos := make([]calendar.FreeBusyInfo, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		infos = append(infos, calendar.FreeBusyInfo{Calendar: id, Busy: f.busy[id], Errors: f.errs[id]})
	}
	return infos, nil
}

func (f *fakeScheduler) setReadErr(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

type testEnv struct {
	sc        *server.ServerContext
	clock     *fakeClock
	scheduler *fakeScheduler
}

// at builds a UTC time on 2 March 2026.
func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fakeClock{now: at(8, 0)}
	policy := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Cache:       cache.New(cache.WithClock(clock.Now), cache.WithLogger(logging.Discard())),
		RetryPolicy: &policy,
		Logger:      logging.Discard().Logger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	prevNow := now
	now = clock.Now
	t.Cleanup(func() { now = prevNow })

	fs := &fakeScheduler{busy: map[string][]calendar.TimeRange{}, errs: map[string][]string{}}
	sc.SetScheduler(server.DefaultAccount, fs)
	return &testEnv{sc: sc, clock: clock, scheduler: fs}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}
