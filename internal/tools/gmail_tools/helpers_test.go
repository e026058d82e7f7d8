package gmail_tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/gmail"
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

// fakeMailbox is an in-memory gmail.Mailbox.
type fakeMailbox struct {
	mu sync.Mutex

	inbox   []gmail.MessageSummary
	results map[string][]gmail.MessageSummary
	details map[string]*gmail.MessageDetail

	readErr   error
	sendErr   error
	modifyErr map[string]error

	listCalls   int
	searchCalls int
	getCalls    int
	sent        []*gmail.EmailMessage
	modified    []string
}

var _ gmail.Mailbox = (*fakeMailbox)(nil)

func (f *fakeMailbox) ListInbox(ctx context.Context, maxResults int64) ([]gmail.MessageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := f.inbox
	if int64(len(out)) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

func (f *fakeMailbox) Search(ctx context.Context, query string, maxResults int64) ([]gmail.MessageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.results[query], nil
}

func (f *fakeMailbox) GetMessage(ctx context.Context, messageID string, includeThread bool) (*gmail.MessageDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	d, ok := f.details[messageID]
	if !ok {
		return nil, errNotFound
	}
	return d, nil
}

func (f *fakeMailbox) SendEmail(ctx context.Context, msg *gmail.EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return "sent-1", nil
}

func (f *fakeMailbox) ModifyLabels(ctx context.Context, messageID string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.modifyErr[messageID]; err != nil {
		return err
	}
	f.modified = append(f.modified, messageID)
	return nil
}

func (f *fakeMailbox) setReadErr(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

type testEnv struct {
	sc      *server.ServerContext
	clock   *fakeClock
	mailbox *fakeMailbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	policy := retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Cache:       cache.New(cache.WithClock(clock.Now), cache.WithLogger(logging.Discard())),
		RetryPolicy: &policy,
		Logger:      logging.Discard().Logger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mb := &fakeMailbox{
		inbox: []gmail.MessageSummary{
			{ID: "m1", ThreadID: "t1", From: "Alice <alice@example.com>", Subject: "Quarterly report", Date: "Mon, 2 Mar 2026 08:00:00 +0000", Unread: true},
			{ID: "m2", ThreadID: "t2", From: "bob@example.com", Subject: "Lunch?", Date: "Sun, 1 Mar 2026 12:00:00 +0000"},
		},
		results: map[string][]gmail.MessageSummary{},
		details: map[string]*gmail.MessageDetail{},
	}
	sc.SetMailbox(server.DefaultAccount, mb)

	return &testEnv{sc: sc, clock: clock, mailbox: mb}
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
