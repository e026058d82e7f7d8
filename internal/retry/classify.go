package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxassist/internal/google"
)

// Category groups upstream failures by what the user can do about them.
type Category string

const (
	CategoryAuth      Category = "auth"
	CategoryRateLimit Category = "rate_limit"
	CategoryNetwork   Category = "network"
	CategoryTimeout   Category = "timeout"
	CategoryGeneric   Category = "generic"
)

// ErrAuth marks an error as an authentication failure. Wrap it with %w.
var ErrAuth = errors.New("authentication required")

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return Classify(err) == CategoryAuth
}

// Classify maps err to a Category. Typed errors are checked first; the
// message text is only consulted when nothing typed matched.
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneric
	}

	if errors.Is(err, ErrAuth) || errors.Is(err, google.ErrNoToken) {
		return CategoryAuth
	}
	if errors.Is(err, ErrRateLimited) {
		return CategoryRateLimit
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return CategoryAuth
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return CategoryAuth
		case apiErr.Code == http.StatusTooManyRequests:
			return CategoryRateLimit
		case apiErr.Code == http.StatusForbidden:
			if hasRateLimitReason(apiErr) {
				return CategoryRateLimit
			}
			return CategoryAuth
		case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusGatewayTimeout:
			return CategoryTimeout
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return CategoryNetwork
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) Category {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "invalid_grant"), strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid credentials"):
		return CategoryAuth
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return CategoryRateLimit
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"):
		return CategoryNetwork
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return CategoryTimeout
	}
	return CategoryGeneric
}

func hasRateLimitReason(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

// isClientError reports a googleapi 4xx that repeating cannot fix.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500
}

// UserMessage renders err as text for the chat user. operation completes the
// phrase "while ...", for example "listing your emails".
func UserMessage(err error, operation string) string {
	switch Classify(err) {
	case CategoryAuth:
		return fmt.Sprintf("I couldn't access your account while %s. Please re-authenticate and try again.", operation)
	case CategoryRateLimit:
		return fmt.Sprintf("I've hit the API rate limit while %s. Please try again in a few moments.", operation)
	case CategoryNetwork:
		return fmt.Sprintf("I'm having network issues while %s. Please check your internet connection and try again.", operation)
	case CategoryTimeout:
		return fmt.Sprintf("The request timed out while %s. The service might be slow right now. Please try again.", operation)
	}
	return fmt.Sprintf("I encountered an error while %s: %v\nPlease try again or let me know if you need help with something else.", operation, err)
}
