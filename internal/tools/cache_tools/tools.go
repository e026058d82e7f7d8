package cache_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterCacheTools registers the cache maintenance tools. cache_clear is
// skipped in read-only mode.
func RegisterCacheTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	statsTool := mcp.NewTool("cache_stats",
		mcp.WithDescription("Show how many responses are cached, and how many of those have expired"),
	)
	s.AddTool(statsTool, common.InstrumentedToolHandler("cache_stats", instrumentation.ServiceCache, "stats", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStats(ctx, request, sc)
		}))

	invalidateTool := mcp.NewTool("cache_invalidate",
		mcp.WithDescription("Drop cached responses whose key contains a pattern, forcing fresh data on the next call"),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Substring of the cache keys to drop, e.g. 'emails:list:' or 'calendar:'"),
		),
	)
	s.AddTool(invalidateTool, common.InstrumentedToolHandler("cache_invalidate", instrumentation.ServiceCache, "invalidate", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleInvalidate(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	clearTool := mcp.NewTool("cache_clear",
		mcp.WithDescription("Drop every cached response, including the copies kept for offline fallback"),
	)
	s.AddTool(clearTool, common.InstrumentedToolHandler("cache_clear", instrumentation.ServiceCache, "clear", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClear(ctx, request, sc)
		}))

	return nil
}

func handleStats(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(sc.Cache().Stats(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode cache stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleInvalidate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	pattern, err := common.RequiredStringArg(request.GetArguments(), "pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := common.Invalidate(ctx, sc, pattern)
	return mcp.NewToolResultText(fmt.Sprintf("Invalidated %d cache entries matching %q.", n, pattern)), nil
}

func handleClear(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	n := sc.Cache().Stats().Total
	sc.Cache().Clear()
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d cache entries.", n)), nil
}
