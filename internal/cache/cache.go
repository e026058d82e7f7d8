package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/teemow/inboxassist/internal/logging"
)

// MinTTL is the floor applied to non-positive TTLs passed to Set.
const MinTTL = time.Millisecond

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a point-in-time view of the cache. Expired entries are counted
// against the clock at the moment Stats is called.
type Stats struct {
	Total   int `json:"total"`
	Expired int `json:"expired"`
	Active  int `json:"active"`
}

// TTLCache is an in-memory map of string keys to values with a per-entry
// expiry. Expired entries stay readable through GetStale until they are
// overwritten, invalidated or purged.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	now    func() time.Time
	logger logging.Logger
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now. Tests use it to move time deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for invalidation and purge messages.
func WithLogger(logger logging.Logger) Option {
	return func(c *TTLCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *TTLCache) Get(key string) (any, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// GetStale returns the value stored under key regardless of freshness,
// together with its expiry time.
func (c *TTLCache) GetStale(key string) (any, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.expiresAt, true
}

// Set stores value under key for ttl. A ttl of zero or less is raised to MinTTL.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = MinTTL
	}
	e := entry{value: value, expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Invalidate removes key. Removing a missing key is a no-op.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePattern removes every entry whose key contains substr and
// returns how many were removed. An empty substr matches nothing.
func (c *TTLCache) InvalidatePattern(substr string) int {
	if substr == "" {
		return 0
	}

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.Contains(key, substr) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("cache entries invalidated",
		"pattern", logging.ScrubCacheKey(substr),
		logging.KeyCount, removed)
	return removed
}

// InvalidateScope removes every entry cached for scope, matching the scope
// segment exactly, and returns how many were removed. Query text in later
// segments never matches.
func (c *TTLCache) InvalidateScope(scope string) int {
	if scope == "" {
		return 0
	}

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if Scope(key) == scope {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("cache entries invalidated for scope", logging.KeyCount, removed)
	return removed
}

// Clear removes every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Debug("cache cleared", logging.KeyCount, n)
}

// Stats reports total, expired and active entry counts.
func (c *TTLCache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			s.Expired++
		}
	}
	s.Active = s.Total - s.Expired
	return s
}

// PurgeExpired drops entries whose expiry has passed and returns the count.
// Purged entries are no longer available to GetStale.
func (c *TTLCache) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("expired cache entries purged", logging.KeyCount, removed)
	}
	return removed
}

// Lookup is a typed Get. A stored value of a different type is a miss.
func Lookup[T any](c *TTLCache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// LookupStale is a typed GetStale.
func LookupStale[T any](c *TTLCache, key string) (T, time.Time, bool) {
	var zero T
	v, exp, ok := c.GetStale(key)
	if !ok {
		return zero, time.Time{}, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, time.Time{}, false
	}
	return t, exp, true
}
