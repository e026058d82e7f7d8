package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/server"
)

const (
	CacheStatsURI = "inboxassist://cache/stats"
	SettingsURI   = "inboxassist://settings"
)

// Settings is the body of the settings resource.
type Settings struct {
	Account      string      `json:"account"`
	ReadOnly     bool        `json:"readOnly"`
	WorkingHours string      `json:"workingHours"`
	Retry        RetryInfo   `json:"retry"`
	CacheTTLs    CacheTTLMap `json:"cacheTTLs"`
}

type RetryInfo struct {
	MaxAttempts  int     `json:"maxAttempts"`
	InitialDelay string  `json:"initialDelay"`
	Multiplier   float64 `json:"multiplier"`
}

// CacheTTLMap lists the cache lifetime of each data category.
type CacheTTLMap struct {
	EmailList        string `json:"emailList"`
	EmailSearch      string `json:"emailSearch"`
	EmailDetail      string `json:"emailDetail"`
	CalendarEvents   string `json:"calendarEvents"`
	CalendarFreeBusy string `json:"calendarFreeBusy"`
}

// RegisterServerResources registers the cache statistics and settings
// resources.
func RegisterServerResources(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	statsResource := mcp.NewResource(
		CacheStatsURI,
		"Cache Statistics",
		mcp.WithResourceDescription("Number of cached responses, split into active and expired"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(statsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCacheStats(ctx, request, sc)
	})

	settingsResource := mcp.NewResource(
		SettingsURI,
		"Server Settings",
		mcp.WithResourceDescription("Working hours, retry policy and cache lifetimes used when answering tool calls"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc, readOnly)
	})

	return nil
}

func handleCacheStats(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, sc.Cache().Stats())
}

func handleSettings(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext, readOnly bool) ([]mcp.ResourceContents, error) {
	account, ok := server.AccountFromContext(ctx)
	if !ok {
		account = server.DefaultAccount
	}
	policy := sc.RetryPolicy()

	return jsonContents(request.Params.URI, Settings{
		Account:      account,
		ReadOnly:     readOnly,
		WorkingHours: sc.WorkingHours().String(),
		Retry: RetryInfo{
			MaxAttempts:  policy.MaxAttempts,
			InitialDelay: policy.InitialDelay.String(),
			Multiplier:   policy.Multiplier,
		},
		CacheTTLs: CacheTTLMap{
			EmailList:        cache.EmailListTTL.String(),
			EmailSearch:      cache.EmailSearchTTL.String(),
			EmailDetail:      cache.EmailDetailTTL.String(),
			CalendarEvents:   cache.CalendarEventsTTL.String(),
			CalendarFreeBusy: cache.CalendarFreeBusyTTL.String(),
		},
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
