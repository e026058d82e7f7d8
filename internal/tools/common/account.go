package common

import (
	"context"

	"github.com/teemow/inboxassist/internal/server"
)

// GetAccountFromArgs picks the Google account for a tool call.
//
// Priority order:
//  1. account set on the request context (the X-Account header over HTTP)
//  2. explicit "account" argument
//  3. "default"
func GetAccountFromArgs(ctx context.Context, args map[string]any) string {
	if account, ok := server.AccountFromContext(ctx); ok {
		return account
	}
	if account, ok := args["account"].(string); ok && account != "" {
		return account
	}
	return server.DefaultAccount
}
