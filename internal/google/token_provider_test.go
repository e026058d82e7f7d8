package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/logging"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		account string
		wantErr bool
	}{
		{"default", false},
		{"work-email", false},
		{"personal_email", false},
		{"account123", false},
		{"", true},
		{"my account", true},
		{"account@work", true},
		{"work/personal", true},
		{"../etc", true},
	}
	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			err := ValidateAccountName(tt.account)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestFileTokenProviderRoundTrip(t *testing.T) {
	p := NewFileTokenProvider(t.TempDir())
	ctx := context.Background()

	assert.False(t, p.HasTokenForAccount("work"))
	_, err := p.GetTokenForAccount(ctx, "work")
	assert.True(t, errors.Is(err, ErrNoToken))

	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, p.SaveTokenForAccount("work", want))
	assert.True(t, p.HasTokenForAccount("work"))

	got, err := p.GetTokenForAccount(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))

	info, err := os.Stat(filepath.Join(p.dir, "google-work.token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenProviderLegacyFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google-default.token"), []byte("acc ref\n"), 0o600))

	tok, err := NewFileTokenProvider(dir).GetTokenForAccount(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "acc", tok.AccessToken)
	assert.Equal(t, "ref", tok.RefreshToken)
	assert.True(t, tok.Expiry.Before(time.Now()), "legacy tokens must refresh on first use")
}

func TestFileTokenProviderRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "google-bad.token"), []byte("one two three"), 0o600))

	_, err := NewFileTokenProvider(dir).GetTokenForAccount(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestFileTokenProviderInvalidAccount(t *testing.T) {
	p := NewFileTokenProvider(t.TempDir())
	_, err := p.GetTokenForAccount(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, p.HasTokenForAccount("../x"))
	assert.Error(t, p.SaveTokenForAccount("a b", &oauth2.Token{}))
}

func TestStoreTokenProviderFallsBackAndCaches(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	files := NewFileTokenProvider(t.TempDir())
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, files.SaveTokenForAccount("default", tok))

	p := NewStoreTokenProvider(store, files, logging.Discard().Logger())
	ctx := context.Background()

	assert.True(t, p.HasTokenForAccount("default"))
	got, err := p.GetTokenForAccount(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	cached, err := store.GetToken(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "a", cached.AccessToken)
}

func TestStoreTokenProviderWithoutFallback(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	p := NewStoreTokenProvider(store, nil, nil)
	ctx := context.Background()

	_, err := p.GetTokenForAccount(ctx, "someone@example.com")
	assert.True(t, errors.Is(err, ErrNoToken))
	assert.False(t, p.HasTokenForAccount("someone@example.com"))

	require.NoError(t, p.SaveToken(ctx, "someone@example.com", &oauth2.Token{
		AccessToken: "x", RefreshToken: "y", Expiry: time.Now().Add(time.Hour),
	}))
	assert.True(t, p.HasTokenForAccount("someone@example.com"))
}

func TestHTTPClientForAccount(t *testing.T) {
	p := NewFileTokenProvider(t.TempDir())
	_, err := HTTPClientForAccount(context.Background(), Credentials{}, p, "missing")
	assert.True(t, errors.Is(err, ErrNoToken))

	_, err = HTTPClientForAccount(context.Background(), Credentials{}, nil, "default")
	assert.Error(t, err)

	require.NoError(t, p.SaveTokenForAccount("ok", &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))
	client, err := HTTPClientForAccount(context.Background(), Credentials{ClientID: "id"}, p, "ok")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestOAuthConfigScopes(t *testing.T) {
	conf := Credentials{ClientID: "id", ClientSecret: "secret"}.OAuthConfig()
	assert.Equal(t, "id", conf.ClientID)
	assert.Contains(t, conf.Scopes, "https://www.googleapis.com/auth/calendar")
	assert.Contains(t, conf.Scopes, "https://www.googleapis.com/auth/gmail.send")
}

func TestAuthURL(t *testing.T) {
	creds := Credentials{ClientID: "id", ClientSecret: "secret"}
	assert.True(t, creds.Configured())

	u := creds.AuthURL("work")
	assert.Contains(t, u, "client_id=id")
	assert.Contains(t, u, "state=work")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "prompt=consent")
}

func TestExchangeRequiresClient(t *testing.T) {
	assert.False(t, Credentials{ClientID: "id"}.Configured())
	_, err := Credentials{}.Exchange(context.Background(), "code")
	assert.Error(t, err)
}

func TestStoreTokenProviderWritesThrough(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	files := NewFileTokenProvider(t.TempDir())
	p := NewStoreTokenProvider(store, files, nil)

	require.NoError(t, p.SaveToken(context.Background(), "work", &oauth2.Token{
		AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour),
	}))
	assert.True(t, files.HasTokenForAccount("work"))

	got, err := files.GetTokenForAccount(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
}
