package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giantswarm/mcp-oauth/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/retry"
)

type stubMailbox struct{ gmail.Mailbox }

type stubScheduler struct{ calendar.Scheduler }

func TestNewServerContextDefaults(t *testing.T) {
	sc := newTestServerContext(t)

	assert.NotNil(t, sc.Cache())
	assert.NotNil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
	assert.Nil(t, sc.Limiter())
	assert.Equal(t, retry.DefaultPolicy(), sc.RetryPolicy())
	assert.Equal(t, calendar.DefaultWorkingHours(), sc.WorkingHours())
}

func TestNewServerContextRejectsBadHours(t *testing.T) {
	hours := calendar.WorkingHours{Start: 18 * time.Hour, End: 9 * time.Hour, Location: time.UTC}
	_, err := NewServerContext(context.Background(), Config{WorkingHours: &hours})
	require.Error(t, err)
}

func TestMailboxOverride(t *testing.T) {
	sc := newTestServerContext(t)
	m := stubMailbox{}
	sc.SetMailbox("work", m)

	got, err := sc.Mailbox("work")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	s := stubScheduler{}
	sc.SetScheduler("work", s)
	gotS, err := sc.Scheduler("work")
	require.NoError(t, err)
	assert.Equal(t, s, gotS)
}

func TestMailboxWithoutTokenIsAuthError(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	sc, err := NewServerContext(context.Background(), Config{
		TokenProvider: google.NewStoreTokenProvider(store, nil, nil),
	})
	require.NoError(t, err)

	_, err = sc.Mailbox("default")
	require.Error(t, err)
	assert.True(t, errors.Is(err, google.ErrNoToken))
	assert.True(t, retry.IsAuth(err))

	_, err = sc.Scheduler("default")
	assert.True(t, retry.IsAuth(err))
}

func TestMailboxCreatedFromStoredToken(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	require.NoError(t, store.SaveToken(context.Background(), "default", &oauth2.Token{
		AccessToken: "access",
		Expiry:      time.Now().Add(time.Hour),
	}))

	sc, err := NewServerContext(context.Background(), Config{
		TokenProvider: google.NewStoreTokenProvider(store, nil, nil),
	})
	require.NoError(t, err)

	first, err := sc.Mailbox("default")
	require.NoError(t, err)
	second, err := sc.Mailbox("default")
	require.NoError(t, err)
	assert.Same(t, first.(*gmail.Client), second.(*gmail.Client))
}

func TestSaveTokenDropsClients(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	sc, err := NewServerContext(context.Background(), Config{
		TokenProvider: google.NewStoreTokenProvider(store, nil, nil),
	})
	require.NoError(t, err)
	sc.SetMailbox("work", stubMailbox{})

	require.NoError(t, sc.SaveToken(context.Background(), "work", &oauth2.Token{
		AccessToken: "fresh",
		Expiry:      time.Now().Add(time.Hour),
	}))

	m, err := sc.Mailbox("work")
	require.NoError(t, err)
	_, isClient := m.(*gmail.Client)
	assert.True(t, isClient, "the stub is replaced by a client for the new token")
}

func TestSaveTokenNeedsWritableProvider(t *testing.T) {
	sc := newTestServerContext(t)
	assert.Error(t, sc.SaveToken(context.Background(), "work", &oauth2.Token{}))
}

func TestShutdownIsIdempotent(t *testing.T) {
	sc := newTestServerContext(t)
	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}

func TestAccountContext(t *testing.T) {
	_, ok := AccountFromContext(context.Background())
	assert.False(t, ok)

	account, ok := AccountFromContext(WithAccount(context.Background(), "work"))
	assert.True(t, ok)
	assert.Equal(t, "work", account)

	_, ok = AccountFromContext(WithAccount(context.Background(), ""))
	assert.False(t, ok)
}
