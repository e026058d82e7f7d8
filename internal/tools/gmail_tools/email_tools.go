package gmail_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/retry"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/batch"
	"github.com/teemow/inboxassist/internal/tools/common"
)

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sendTool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email, or a reply when replyToId is set"),
		accountOption,
		mcp.WithString("to",
			mcp.Description("Recipient email address(es), comma-separated. Optional for replies (defaults to the original sender)."),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject. Optional for replies (defaults to 'Re: <original subject>')."),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated"),
		),
		mcp.WithString("replyToId",
			mcp.Description("ID of the email being replied to; the reply joins its conversation"),
		),
		mcp.WithBoolean("isHTML",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler("gmail_send_email",
		instrumentation.ServiceGmail, instrumentation.OperationSend, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	modifyTool := mcp.NewTool("gmail_batch_modify",
		mcp.WithDescription("Add or remove labels on one or more emails (e.g. remove UNREAD to mark as read, remove INBOX to archive)"),
		accountOption,
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Email ID, comma-separated IDs, or a JSON array of IDs"),
		),
		mcp.WithString("addLabels",
			mcp.Description("Label IDs to add, comma-separated (e.g. 'STARRED,IMPORTANT')"),
		),
		mcp.WithString("removeLabels",
			mcp.Description("Label IDs to remove, comma-separated (e.g. 'UNREAD,INBOX')"),
		),
	)
	s.AddTool(modifyTool, common.InstrumentedToolHandler("gmail_batch_modify",
		instrumentation.ServiceGmail, instrumentation.OperationModify, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBatchModify(ctx, request, sc)
		}))

	return nil
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "sending your email"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	body, err := common.RequiredStringArg(args, "body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := &gmail.EmailMessage{
		To:        common.SplitAddresses(common.StringArg(args, "to")),
		Cc:        common.SplitAddresses(common.StringArg(args, "cc")),
		Bcc:       common.SplitAddresses(common.StringArg(args, "bcc")),
		Subject:   common.StringArg(args, "subject"),
		Body:      body,
		IsHTML:    common.BoolArg(args, "isHTML", false),
		ReplyToID: common.StringArg(args, "replyToId"),
	}
	if msg.ReplyToID == "" {
		if len(msg.To) == 0 {
			return mcp.NewToolResultError("to is required"), nil
		}
		if msg.Subject == "" {
			return mcp.NewToolResultError("subject is required"), nil
		}
	}

	mailbox, err := sc.Mailbox(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	messageID, err := common.Mutate(ctx, sc, common.Call{
		Service:   instrumentation.ServiceGmail,
		Operation: instrumentation.OperationSend,
		Activity:  activity,
	}, func(ctx context.Context) (string, error) {
		return mailbox.SendEmail(ctx, msg)
	}, cache.EmailListPrefix)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	var b strings.Builder
	if msg.ReplyToID != "" {
		b.WriteString("Reply sent successfully!\n")
	} else {
		b.WriteString("Email sent successfully!\n")
	}
	fmt.Fprintf(&b, "Message ID: %s\n", messageID)
	if len(msg.To) > 0 {
		fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	}
	if msg.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	}
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "CC: %s\n", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "BCC: %s\n", strings.Join(msg.Bcc, ", "))
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func handleBatchModify(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "updating your emails"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	ids, err := batch.ParseIDs(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	add, err := batch.ParseOptionalList(args["addLabels"], "addLabels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	remove, err := batch.ParseOptionalList(args["removeLabels"], "removeLabels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(add) == 0 && len(remove) == 0 {
		return mcp.NewToolResultError("at least one of addLabels or removeLabels is required"), nil
	}

	mailbox, err := sc.Mailbox(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	call := common.Call{
		Service:   instrumentation.ServiceGmail,
		Operation: instrumentation.OperationModify,
		Activity:  activity,
	}
	results := batch.Process(ctx, ids, batch.DefaultConcurrency, func(ctx context.Context, id string) (string, error) {
		_, err := common.Mutate(ctx, sc, call, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, mailbox.ModifyLabels(ctx, id, add, remove)
		})
		if err != nil {
			return "", errors.New(retry.UserMessage(err, activity))
		}
		return "labels updated", nil
	})

	touched := batch.Succeeded(results)
	if len(touched) > 0 {
		common.Invalidate(ctx, sc, cache.EmailListPrefix, cache.EmailSearchPrefix)
		for _, id := range touched {
			sc.Cache().Invalidate(cache.EmailDetailKey(account, id))
		}
	}

	return mcp.NewToolResultText(batch.Format(results)), nil
}
