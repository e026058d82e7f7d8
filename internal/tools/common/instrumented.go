package common

import (
	"context"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type invocationKey struct{}

// invocationState lets concurrent upstream calls of one tool record their
// source safely.
type invocationState struct {
	mu sync.Mutex
	ti *instrumentation.ToolInvocation
}

func withInvocation(ctx context.Context, ti *instrumentation.ToolInvocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, &invocationState{ti: ti})
}

// setSource records where the current tool's answer came from.
func setSource(ctx context.Context, source string) {
	if st, ok := ctx.Value(invocationKey{}).(*invocationState); ok {
		st.mu.Lock()
		st.ti.Source = source
		st.mu.Unlock()
	}
}

// InstrumentedToolHandler wraps handler with a tool span, tool metrics and an
// audit record. service and operation label the audit record.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("gmail_list_emails", "gmail", "list", sc, handler))
func InstrumentedToolHandler(toolName, service, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		account := GetAccountFromArgs(ctx, request.GetArguments())
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithAccount(account)
		if service != "" {
			invocation.WithService(service, operation)
		}

		result, err := handler(withInvocation(ctx, invocation), request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}
		invocation.Complete(failure)

		if failure != nil {
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}
