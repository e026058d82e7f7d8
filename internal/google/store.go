package google

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giantswarm/mcp-oauth/storage"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/logging"
)

// StoreTokenProvider serves tokens from an mcp-oauth TokenStore. On a miss
// it asks the fallback provider and saves the result into the store.
type StoreTokenProvider struct {
	store    storage.TokenStore
	fallback TokenProvider
	logger   *slog.Logger
}

// NewStoreTokenProvider wraps store. fallback may be nil.
func NewStoreTokenProvider(store storage.TokenStore, fallback TokenProvider, logger *slog.Logger) *StoreTokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreTokenProvider{store: store, fallback: fallback, logger: logger}
}

func (p *StoreTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	if tok, err := p.store.GetToken(ctx, account); err == nil && tok != nil {
		return tok, nil
	}

	if p.fallback == nil {
		return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
	}

	tok, err := p.fallback.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveToken(ctx, account, tok); err != nil {
		p.logger.Warn("failed to cache token in store",
			logging.Account(account), logging.Err(err))
	}
	return tok, nil
}

func (p *StoreTokenProvider) HasTokenForAccount(account string) bool {
	if tok, err := p.store.GetToken(context.Background(), account); err == nil && tok != nil {
		return true
	}
	return p.fallback != nil && p.fallback.HasTokenForAccount(account)
}

// SaveToken stores token for account, writing through to the fallback
// when it can persist tokens.
func (p *StoreTokenProvider) SaveToken(ctx context.Context, account string, token *oauth2.Token) error {
	if err := p.store.SaveToken(ctx, account, token); err != nil {
		return fmt.Errorf("save token for %s: %w", account, err)
	}
	if saver, ok := p.fallback.(TokenSaver); ok {
		if err := saver.SaveToken(ctx, account, token); err != nil {
			return fmt.Errorf("persist token for %s: %w", account, err)
		}
	}
	return nil
}
