package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 100
)

var accountOption = mcp.WithString("account",
	mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
)

// RegisterGmailTools registers the Gmail tools. Write tools are skipped in
// read-only mode.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("gmail_list_emails",
		mcp.WithDescription("List the most recent emails in the inbox"),
		accountOption,
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of emails to return (default: %d, max: %d)", defaultMaxResults, maxMaxResults)),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("gmail_list_emails",
		instrumentation.ServiceGmail, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEmails(ctx, request, sc)
		}))

	searchTool := mcp.NewTool("gmail_search_emails",
		mcp.WithDescription("Search emails using Gmail search syntax"),
		accountOption,
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g. 'from:alice@example.com is:unread', 'subject:invoice newer_than:7d')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of emails to return (default: %d, max: %d)", defaultMaxResults, maxMaxResults)),
		),
	)
	s.AddTool(searchTool, common.InstrumentedToolHandler("gmail_search_emails",
		instrumentation.ServiceGmail, instrumentation.OperationSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchEmails(ctx, request, sc)
		}))

	getTool := mcp.NewTool("gmail_get_email",
		mcp.WithDescription("Get the full content of an email, including the rest of its conversation"),
		accountOption,
		mcp.WithString("emailId",
			mcp.Required(),
			mcp.Description("The ID of the email"),
		),
		mcp.WithBoolean("includeThread",
			mcp.Description("Include the other messages of the conversation (default: true)"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandler("gmail_get_email",
		instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEmail(ctx, request, sc)
		}))

	draftTool := mcp.NewTool("gmail_draft_reply",
		mcp.WithDescription("Compose a reply to an email for review. Nothing is sent; use gmail_send_email with replyToId to send it."),
		accountOption,
		mcp.WithString("emailId",
			mcp.Required(),
			mcp.Description("The ID of the email to reply to"),
		),
		mcp.WithString("instructions",
			mcp.Required(),
			mcp.Description("What the reply should say"),
		),
	)
	s.AddTool(draftTool, common.InstrumentedToolHandler("gmail_draft_reply",
		instrumentation.ServiceGmail, instrumentation.OperationDraft, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDraftReply(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}
	return registerWriteTools(s, sc)
}

func maxResultsArg(args map[string]any) (int64, error) {
	n, err := common.IntArg(args, "maxResults", defaultMaxResults)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("maxResults must be positive")
	}
	return min(n, maxMaxResults), nil
}

func handleListEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "fetching your emails"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	maxResults, err := maxResultsArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mailbox, err := sc.Mailbox(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	res, err := common.Fetch(ctx, sc, common.Call{
		Service:   instrumentation.ServiceGmail,
		Operation: instrumentation.OperationList,
		Key:       cache.EmailListKey(account, maxResults),
		TTL:       cache.EmailListTTL,
		Activity:  activity,
	}, func(ctx context.Context) ([]gmail.MessageSummary, error) {
		return mailbox.ListInbox(ctx, maxResults)
	})
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	return mcp.NewToolResultText(res.Annotate(formatSummaries("Your inbox", res.Value))), nil
}

func handleSearchEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "searching your emails"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	query, err := common.RequiredStringArg(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxResults, err := maxResultsArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mailbox, err := sc.Mailbox(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	res, err := common.Fetch(ctx, sc, common.Call{
		Service:   instrumentation.ServiceGmail,
		Operation: instrumentation.OperationSearch,
		Key:       cache.EmailSearchKey(account, query, maxResults),
		TTL:       cache.EmailSearchTTL,
		Activity:  activity,
	}, func(ctx context.Context) ([]gmail.MessageSummary, error) {
		return mailbox.Search(ctx, query, maxResults)
	})
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	title := fmt.Sprintf("Search results for %q", query)
	return mcp.NewToolResultText(res.Annotate(formatSummaries(title, res.Value))), nil
}

// fetchDetail loads a message with its thread through the cache. The thread
// is always fetched so one cache entry serves both views.
func fetchDetail(ctx context.Context, sc *server.ServerContext, account, emailID, activity string) (common.Result[*gmail.MessageDetail], error) {
	mailbox, err := sc.Mailbox(account)
	if err != nil {
		return common.Result[*gmail.MessageDetail]{}, err
	}
	return common.Fetch(ctx, sc, common.Call{
		Service:   instrumentation.ServiceGmail,
		Operation: instrumentation.OperationGet,
		Key:       cache.EmailDetailKey(account, emailID),
		TTL:       cache.EmailDetailTTL,
		Activity:  activity,
	}, func(ctx context.Context) (*gmail.MessageDetail, error) {
		return mailbox.GetMessage(ctx, emailID, true)
	})
}

func handleGetEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "fetching that email"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	emailID, err := common.RequiredStringArg(args, "emailId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	includeThread := common.BoolArg(args, "includeThread", true)

	res, err := fetchDetail(ctx, sc, account, emailID, activity)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	return mcp.NewToolResultText(res.Annotate(formatDetail(res.Value, includeThread))), nil
}

func handleDraftReply(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "preparing your reply"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	emailID, err := common.RequiredStringArg(args, "emailId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	instructions, err := common.RequiredStringArg(args, "instructions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := fetchDetail(ctx, sc, account, emailID, activity)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	draft := gmail.DraftReply(res.Value, instructions)
	return mcp.NewToolResultText(res.Annotate(formatDraft(draft))), nil
}
