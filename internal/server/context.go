package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/retry"
)

// DefaultAccount is used when a request names no account.
const DefaultAccount = "default"

// Config carries the dependencies shared by all tool handlers.
type Config struct {
	Credentials   google.Credentials
	TokenProvider google.TokenProvider

	// Cache defaults to an empty cache.
	Cache *cache.TTLCache

	// WorkingHours defaults to 09:00-18:00 UTC.
	WorkingHours *calendar.WorkingHours

	// RetryPolicy defaults to retry.DefaultPolicy.
	RetryPolicy *retry.Policy

	// Limiter may be nil for no upstream rate limit.
	Limiter *retry.Limiter

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger
}

// ServerContext holds per-process state: the response cache, the Google
// clients for each account and the instrumentation sinks.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	creds         google.Credentials
	tokenProvider google.TokenProvider
	cache         *cache.TTLCache
	workingHours  calendar.WorkingHours
	retryPolicy   retry.Policy
	limiter       *retry.Limiter
	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	logger        *slog.Logger

	// flights collapses concurrent upstream fetches for the same cache key.
	flights singleflight.Group

	mu         sync.RWMutex
	mailboxes  map[string]gmail.Mailbox
	schedulers map[string]calendar.Scheduler
	shutdown   bool
}

// NewServerContext fills in defaults for anything cfg leaves unset.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hours := calendar.DefaultWorkingHours()
	if cfg.WorkingHours != nil {
		hours = *cfg.WorkingHours
	}
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("invalid working hours: %w", err)
	}

	policy := retry.DefaultPolicy()
	if cfg.RetryPolicy != nil {
		policy = *cfg.RetryPolicy
	}

	c := cfg.Cache
	if c == nil {
		c = cache.New(cache.WithLogger(logging.NewSlogAdapter(logger)))
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		creds:         cfg.Credentials,
		tokenProvider: cfg.TokenProvider,
		cache:         c,
		workingHours:  hours,
		retryPolicy:   policy,
		limiter:       cfg.Limiter,
		metrics:       metrics,
		auditLogger:   cfg.AuditLogger,
		logger:        logger,
		mailboxes:     make(map[string]gmail.Mailbox),
		schedulers:    make(map[string]calendar.Scheduler),
	}, nil
}

// Context is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context { return sc.ctx }

func (sc *ServerContext) Cache() *cache.TTLCache { return sc.cache }

func (sc *ServerContext) WorkingHours() calendar.WorkingHours { return sc.workingHours }

func (sc *ServerContext) RetryPolicy() retry.Policy { return sc.retryPolicy }

func (sc *ServerContext) Limiter() *retry.Limiter { return sc.limiter }

// Metrics is never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.metrics }

// AuditLogger may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.auditLogger }

func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

// Flights is shared by all concurrent fetches against this context's cache.
func (sc *ServerContext) Flights() *singleflight.Group { return &sc.flights }

// Mailbox returns the Gmail client for account, creating it on first use.
// A missing token surfaces as google.ErrNoToken.
func (sc *ServerContext) Mailbox(account string) (gmail.Mailbox, error) {
	sc.mu.RLock()
	m, ok := sc.mailboxes[account]
	sc.mu.RUnlock()
	if ok {
		return m, nil
	}

	httpClient, err := google.HTTPClientForAccount(sc.ctx, sc.creds, sc.tokenProvider, account)
	if err != nil {
		return nil, err
	}
	client, err := gmail.NewClient(sc.ctx, account, httpClient)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.mailboxes[account]; ok {
		return existing, nil
	}
	sc.mailboxes[account] = client
	return client, nil
}

// SetMailbox installs a mailbox for account, replacing any existing one.
func (sc *ServerContext) SetMailbox(account string, m gmail.Mailbox) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.mailboxes[account] = m
}

// Scheduler returns the Calendar client for account, creating it on first use.
func (sc *ServerContext) Scheduler(account string) (calendar.Scheduler, error) {
	sc.mu.RLock()
	s, ok := sc.schedulers[account]
	sc.mu.RUnlock()
	if ok {
		return s, nil
	}

	httpClient, err := google.HTTPClientForAccount(sc.ctx, sc.creds, sc.tokenProvider, account)
	if err != nil {
		return nil, err
	}
	client, err := calendar.NewClient(sc.ctx, account, httpClient)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.schedulers[account]; ok {
		return existing, nil
	}
	sc.schedulers[account] = client
	return client, nil
}

// SetScheduler installs a scheduler for account, replacing any existing one.
func (sc *ServerContext) SetScheduler(account string, s calendar.Scheduler) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.schedulers[account] = s
}

// Credentials returns the Google OAuth client configuration.
func (sc *ServerContext) Credentials() google.Credentials { return sc.creds }

// SaveToken stores a freshly authorized token for account and drops any
// clients built from the previous one.
func (sc *ServerContext) SaveToken(ctx context.Context, account string, token *oauth2.Token) error {
	saver, ok := sc.tokenProvider.(google.TokenSaver)
	if !ok {
		return fmt.Errorf("token provider cannot store tokens")
	}
	if err := saver.SaveToken(ctx, account, token); err != nil {
		return err
	}

	sc.mu.Lock()
	delete(sc.mailboxes, account)
	delete(sc.schedulers, account)
	sc.mu.Unlock()
	return nil
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
