package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoToken means no usable OAuth token exists for an account.
var ErrNoToken = errors.New("no Google OAuth token")

// Scopes are the OAuth scopes requested for Gmail and Calendar access.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar",
}

const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

// Credentials identify the OAuth client used to refresh tokens.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CredentialsFromEnv reads GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
	}
}

// OAuthConfig returns the oauth2 configuration for these credentials.
func (c Credentials) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  oobRedirect,
		Scopes:       Scopes,
	}
}

// Configured reports whether an OAuth client is set.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// AuthURL returns the consent page URL. account is passed as the OAuth state.
func (c Credentials) AuthURL(account string) string {
	return c.OAuthConfig().AuthCodeURL(account, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token.
func (c Credentials) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("google OAuth client is not configured")
	}
	tok, err := c.OAuthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// HTTPClientForAccount returns an authenticated HTTP client for account.
// The client speaks HTTP/1.1; the Google APIs occasionally reset HTTP/2
// streams on long-lived connections.
func HTTPClientForAccount(ctx context.Context, creds Credentials, provider TokenProvider, account string) (*http.Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account, err)
	}

	ts := creds.OAuthConfig().TokenSource(ctx, token)
	client := oauth2.NewClient(ctx, ts)

	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client, nil
}
