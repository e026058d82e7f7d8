package gmail_tools

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxassist/internal/gmail"
)

var (
	errNotFound     = &googleapi.Error{Code: http.StatusNotFound, Message: "not found"}
	errUnavailable  = &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "backend error"}
	errUnauthorized = &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}
)

func registeredTools(t *testing.T, readOnly bool) []string {
	t.Helper()
	env := newTestEnv(t)
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterGmailTools(s, env.sc, readOnly))

	var names []string
	for name := range s.ListTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestRegisterGmailTools(t *testing.T) {
	assert.Equal(t, []string{
		"gmail_draft_reply", "gmail_get_email", "gmail_list_emails", "gmail_search_emails",
	}, registeredTools(t, true))

	assert.Equal(t, []string{
		"gmail_batch_modify", "gmail_draft_reply", "gmail_get_email", "gmail_list_emails",
		"gmail_search_emails", "gmail_send_email",
	}, registeredTools(t, false))
}

func TestListEmailsIsCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "Your inbox (2 emails)")
	assert.Contains(t, out, "[unread] Quarterly report")
	assert.Contains(t, out, "ID: m2")

	_, err = handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)
	assert.Equal(t, 1, env.mailbox.listCalls)

	// A different page size is a different key.
	_, err = handleListEmails(ctx, callRequest(map[string]any{"maxResults": float64(1)}), env.sc)
	require.NoError(t, err)
	assert.Equal(t, 2, env.mailbox.listCalls)
}

func TestListEmailsRejectsBadMaxResults(t *testing.T) {
	env := newTestEnv(t)
	for _, v := range []any{float64(0), float64(-3), "many"} {
		res, err := handleListEmails(context.Background(), callRequest(map[string]any{"maxResults": v}), env.sc)
		require.NoError(t, err)
		assert.True(t, res.IsError, "maxResults=%v", v)
	}
	assert.Zero(t, env.mailbox.listCalls)
}

func TestListEmailsServesStaleWhenGmailIsDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)
	env.mailbox.setReadErr(errUnavailable)

	res, err := handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "may be outdated")
	assert.Contains(t, out, "Quarterly report")
	assert.Equal(t, 4, env.mailbox.listCalls, "one initial call plus three attempts")
}

func TestListEmailsAuthErrorIsNeverStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)
	env.mailbox.setReadErr(errUnauthorized)

	res, err := handleListEmails(ctx, callRequest(nil), env.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "re-authenticate")
	assert.Equal(t, 2, env.mailbox.listCalls)
}

func TestListEmailsErrorWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	env.mailbox.setReadErr(errUnavailable)

	res, err := handleListEmails(context.Background(), callRequest(nil), env.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "fetching your emails")
}

func TestSearchEmails(t *testing.T) {
	env := newTestEnv(t)
	env.mailbox.results["from:bob"] = env.mailbox.inbox[1:]

	res, err := handleSearchEmails(context.Background(), callRequest(map[string]any{"query": "from:bob"}), env.sc)
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, `Search results for "from:bob" (1 email)`)
	assert.Contains(t, out, "Lunch?")

	res, err = handleSearchEmails(context.Background(), callRequest(map[string]any{"query": "nothing"}), env.sc)
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "no emails found")

	res, err = handleSearchEmails(context.Background(), callRequest(nil), env.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetEmail(t *testing.T) {
	env := newTestEnv(t)
	env.mailbox.details["m1"] = &gmail.MessageDetail{
		MessageSummary: gmail.MessageSummary{ID: "m1", From: "Alice <alice@example.com>", Subject: "Quarterly report", Date: "Mon, 2 Mar 2026"},
		Body:           "Numbers attached.",
		Thread: []gmail.MessageSummary{
			{ID: "m0", From: "me@example.com", Date: "Sun, 1 Mar 2026", Snippet: "Can you send the numbers?"},
			{ID: "m1", From: "Alice <alice@example.com>", Date: "Mon, 2 Mar 2026"},
		},
	}
	ctx := context.Background()

	res, err := handleGetEmail(ctx, callRequest(map[string]any{"emailId": "m1"}), env.sc)
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "Numbers attached.")
	assert.Contains(t, out, "Conversation (2 messages)")
	assert.Contains(t, out, "(this email)")

	res, err = handleGetEmail(ctx, callRequest(map[string]any{"emailId": "m1", "includeThread": false}), env.sc)
	require.NoError(t, err)
	assert.NotContains(t, text(t, res), "Conversation")
	assert.Equal(t, 1, env.mailbox.getCalls, "both views share one cache entry")

	res, err = handleGetEmail(ctx, callRequest(map[string]any{"emailId": "missing"}), env.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDraftReplyDoesNotSend(t *testing.T) {
	env := newTestEnv(t)
	env.mailbox.details["m1"] = &gmail.MessageDetail{
		MessageSummary: gmail.MessageSummary{ID: "m1", From: "Alice <alice@example.com>", Subject: "Quarterly report", Date: "Mon, 2 Mar 2026"},
		Body:           "Numbers attached.",
	}

	res, err := handleDraftReply(context.Background(), callRequest(map[string]any{
		"emailId":      "m1",
		"instructions": "Thanks, I'll review them tomorrow.",
	}), env.sc)
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "Draft reply (not sent)")
	assert.Contains(t, out, "Subject: Re: Quarterly report")
	assert.Contains(t, out, "Hi Alice,")
	assert.Contains(t, out, "> Numbers attached.")
	assert.Empty(t, env.mailbox.sent)

	res, err = handleDraftReply(context.Background(), callRequest(map[string]any{"emailId": "m1"}), env.sc)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
