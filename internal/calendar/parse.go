package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInterval is wrapped by ParseBusyIntervals for malformed input.
var ErrInvalidInterval = errors.New("invalid busy interval")

// RawInterval is a free/busy record as it arrives from the API or a file.
type RawInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const dateLayout = "2006-01-02"

// naiveLayouts are accepted without an offset and read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an RFC 3339 timestamp. Timestamps without an offset
// are taken to be UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseDate parses YYYY-MM-DD in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseBusyIntervals converts raw records into TimeRanges. Any missing,
// unparseable or non-chronological record fails the whole batch.
func ParseBusyIntervals(raw []RawInterval) ([]TimeRange, error) {
	out := make([]TimeRange, 0, len(raw))
	for i, r := range raw {
		start, err := ParseTimestamp(r.Start)
		if err != nil {
			return nil, fmt.Errorf("%w %d: start: %v", ErrInvalidInterval, i, err)
		}
		end, err := ParseTimestamp(r.End)
		if err != nil {
			return nil, fmt.Errorf("%w %d: end: %v", ErrInvalidInterval, i, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("%w %d: start %s is not before end %s",
				ErrInvalidInterval, i, r.Start, r.End)
		}
		out = append(out, TimeRange{Start: start, End: end})
	}
	return out, nil
}
