package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys used across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyAccount   = "account"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyCacheKey  = "cache_key"
	KeySource    = "source"
	KeyAttempt   = "attempt"
	KeyCount     = "count"
)

// Status values. Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithAccount returns a logger carrying the account attribute.
func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(Account(account))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Service(svc string) slog.Attr { return slog.String(KeyService, svc) }

func Tool(tool string) slog.Attr { return slog.String(KeyTool, tool) }

func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

// Source reports where a tool result came from: cache, upstream or stale.
func Source(source string) slog.Attr { return slog.String(KeySource, source) }

func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// Account returns the account attribute. Anything that looks like an email
// address is anonymized; plain labels such as "default" or "work" pass through.
func Account(account string) slog.Attr {
	if strings.Contains(account, "@") {
		return slog.String(KeyAccount, AnonymizeEmail(account))
	}
	return slog.String(KeyAccount, account)
}

// Err returns the error attribute, or an empty group (dropped by slog) for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a stable, non-reversible tag for an email address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash returns the user_hash attribute for an email address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken masks a bearer or refresh token, keeping only its length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain returns the part after "@", or "" for anything that is not
// a single-@ address.
func ExtractDomain(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}

// ScrubCacheKey replaces the scope segment (third field) of a
// domain:operation:scope:params key with its hash. Keys with fewer than three
// segments are returned unchanged.
func ScrubCacheKey(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 3 || parts[2] == "" {
		return key
	}
	parts[2] = AnonymizeEmail(parts[2])
	return strings.Join(parts, ":")
}

// CacheKey returns the cache_key attribute with the scope segment scrubbed.
func CacheKey(key string) slog.Attr {
	return slog.String(KeyCacheKey, ScrubCacheKey(key))
}
