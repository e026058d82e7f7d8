// Package google_tools lets an MCP client authorize a Google account.
//
// google_get_auth_url returns the consent URL; google_save_auth_code
// exchanges the resulting code and stores the token through the server's
// token provider. Clients and cached answers for the account are dropped so
// the next call uses the new token.
package google_tools
