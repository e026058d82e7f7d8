package server

import (
	"context"
	"net/http"

	"github.com/teemow/inboxassist/internal/google"
)

// AccountHeader selects the Google account for an HTTP request.
const AccountHeader = "X-Account"

type accountKey struct{}

// WithAccount returns a context carrying account.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account stored by WithAccount.
func AccountFromContext(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountKey{}).(string)
	return account, ok && account != ""
}

// accountFromRequest is the streamable-http context hook. The header was
// validated by requireValidAccount.
func accountFromRequest(ctx context.Context, r *http.Request) context.Context {
	if account := r.Header.Get(AccountHeader); account != "" {
		return WithAccount(ctx, account)
	}
	return ctx
}

// requireValidAccount rejects requests whose account header would be unsafe
// as a token file name.
func requireValidAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if account := r.Header.Get(AccountHeader); account != "" {
			if err := google.ValidateAccountName(account); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
