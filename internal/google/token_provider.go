package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens per account.
type TokenProvider interface {
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)
	HasTokenForAccount(account string) bool
}

// TokenSaver persists tokens per account.
type TokenSaver interface {
	SaveToken(ctx context.Context, account string, token *oauth2.Token) error
}

var accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateAccountName rejects names that would be unsafe as file name parts.
func ValidateAccountName(account string) error {
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: use letters, digits, '-' or '_'", account)
	}
	return nil
}

// FileTokenProvider reads tokens from <dir>/google-<account>.token.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider uses dir, or <user cache dir>/inboxassist when dir is empty.
func NewFileTokenProvider(dir string) *FileTokenProvider {
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &FileTokenProvider{dir: dir}
}

// DefaultTokenDir is where token files live unless overridden.
func DefaultTokenDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "inboxassist")
}

func (p *FileTokenProvider) path(account string) string {
	return filepath.Join(p.dir, "google-"+account+".token")
}

// GetTokenForAccount loads the token file for account. Files hold either the
// JSON form of oauth2.Token or the older "<access> <refresh>" pair.
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return decodeToken(data)
}

// HasTokenForAccount reports whether a token file exists for account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	if ValidateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(p.path(account))
	return err == nil
}

// SaveTokenForAccount writes token as JSON with owner-only permissions.
func (p *FileTokenProvider) SaveTokenForAccount(account string, token *oauth2.Token) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(p.path(account), data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// SaveToken implements TokenSaver.
func (p *FileTokenProvider) SaveToken(_ context.Context, account string, token *oauth2.Token) error {
	return p.SaveTokenForAccount(account, token)
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(trimmed), &tok); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		if tok.AccessToken == "" && tok.RefreshToken == "" {
			return nil, fmt.Errorf("%w: token file is empty", ErrNoToken)
		}
		return &tok, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: unrecognised token file format", ErrNoToken)
	}
	// Expiry in the past forces a refresh on first use.
	return &oauth2.Token{
		AccessToken:  fields[0],
		RefreshToken: fields[1],
		TokenType:    "Bearer",
		Expiry:       time.Unix(1, 0),
	}, nil
}
