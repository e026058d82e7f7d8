// Package cache_tools exposes the response cache: cache_stats,
// cache_invalidate and, when writes are enabled, cache_clear.
package cache_tools
