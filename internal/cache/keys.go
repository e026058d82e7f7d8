package cache

import (
	"strconv"
	"strings"
	"time"
)

// TTLs per data category.
const (
	EmailListTTL        = 60 * time.Second
	EmailSearchTTL      = 60 * time.Second
	EmailDetailTTL      = 300 * time.Second
	CalendarEventsTTL   = 300 * time.Second
	CalendarFreeBusyTTL = 300 * time.Second
)

// Key family prefixes, suitable for InvalidatePattern.
const (
	EmailListPrefix        = "emails:list:"
	EmailSearchPrefix      = "emails:search:"
	EmailDetailPrefix      = "emails:detail:"
	CalendarEventsPrefix   = "calendar:events:"
	CalendarFreeBusyPrefix = "calendar:freebusy:"
)

// Key joins domain, operation, scope and params with ":".
func Key(domain, operation, scope string, params ...string) string {
	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte(':')
	b.WriteString(operation)
	b.WriteByte(':')
	b.WriteString(scope)
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

func EmailListKey(user string, maxResults int64) string {
	return Key("emails", "list", user, strconv.FormatInt(maxResults, 10))
}

func EmailSearchKey(user, query string, maxResults int64) string {
	return Key("emails", "search", user, query, strconv.FormatInt(maxResults, 10))
}

func EmailDetailKey(user, messageID string) string {
	return Key("emails", "detail", user, messageID)
}

func CalendarEventsKey(user string, timeMin, timeMax time.Time) string {
	return Key("calendar", "events", user, stamp(timeMin), stamp(timeMax))
}

// CalendarFreeBusyKey builds a free/busy key. Calendar IDs are appended in
// the order given; callers sort them when order is not meaningful.
func CalendarFreeBusyKey(user string, timeMin, timeMax time.Time, calendarIDs ...string) string {
	params := []string{stamp(timeMin), stamp(timeMax)}
	if len(calendarIDs) > 0 {
		params = append(params, strings.Join(calendarIDs, ","))
	}
	return Key("calendar", "freebusy", user, params...)
}

// Domain returns the first segment of a key, or "" if the key has no ":".
func Domain(key string) string {
	d, _, ok := strings.Cut(key, ":")
	if !ok {
		return ""
	}
	return d
}

// Scope returns the third segment of a key, the account it was cached for,
// or "" for keys with fewer segments.
func Scope(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// stamp renders a time as UTC RFC3339 so equal instants map to equal keys.
func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
