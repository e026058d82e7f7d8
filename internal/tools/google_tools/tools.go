package google_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

const notConfigured = "Google OAuth is not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET (or --google-client-id and --google-client-secret) and restart the server."

// RegisterGoogleTools registers the account authorization tools.
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the URL to authorize Gmail and Calendar access for an account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", "", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Complete authorization for an account with the code shown after consent"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", "", "", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func handleGetAuthURL(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(ctx, request.GetArguments())
	if err := google.ValidateAccountName(account); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	creds := sc.Credentials()
	if !creds.Configured() {
		return mcp.NewToolResultError(notConfigured), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`To authorize Gmail and Calendar access for account "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account and grant access
3. Copy the authorization code

4. Call google_save_auth_code with the code and account "%s"`, account, creds.AuthURL(account), account)), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)
	if err := google.ValidateAccountName(account); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	code, err := common.RequiredStringArg(args, "authCode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	creds := sc.Credentials()
	if !creds.Configured() {
		return mcp.NewToolResultError(notConfigured), nil
	}

	token, err := creds.Exchange(ctx, code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Authorization failed for account %s: %v", account, err)), nil
	}
	if err := sc.SaveToken(ctx, account, token); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save the token for account %s: %v", account, err)), nil
	}

	// Answers cached under the previous identity must not be served.
	common.InvalidateAccount(ctx, sc, account)

	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for account '%s'. Gmail and Calendar tools can now use it.", account)), nil
}
