// Package logging holds the structured logging helpers shared by inboxassist.
//
// Everything logs through log/slog. The helpers here fix attribute names so
// that tool handlers, the cache and the retry loop emit the same keys, and
// they scrub personal data before it reaches a log line:
//
//	logger := logging.WithTool(slog.Default(), "gmail_list_emails")
//	logger.Debug("cache lookup", logging.CacheKey(key), logging.Source("stale"))
//
// Cache keys embed the account identity, so CacheKey hashes that segment.
package logging
