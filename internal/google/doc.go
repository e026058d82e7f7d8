// Package google provides OAuth2 credentials for the Gmail and Calendar clients.
//
// Tokens come from a TokenProvider. FileTokenProvider reads per-account token
// files from the user cache directory, which is how the stdio transport is
// normally fed. StoreTokenProvider keeps tokens in an mcp-oauth TokenStore and
// falls back to another provider on a miss, caching what it finds.
//
// A missing token is reported as ErrNoToken so callers can tell the user to
// re-authenticate instead of retrying.
package google
