package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// WorkingHours describes the daily window searched for free slots.
// Start and End are wall-clock times of day in Location, stored as offsets
// from midnight.
type WorkingHours struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// DefaultWorkingHours is 09:00 to 18:00 UTC.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		Start:    9 * time.Hour,
		End:      18 * time.Hour,
		Location: time.UTC,
	}
}

// ParseWorkingHours builds WorkingHours from "HH:MM" strings and an IANA
// zone name. An empty zone means UTC.
func ParseWorkingHours(start, end, zone string) (WorkingHours, error) {
	s, err := ParseClock(start)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("working hours start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("working hours end: %w", err)
	}
	loc := time.UTC
	if zone != "" {
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return WorkingHours{}, fmt.Errorf("working hours timezone: %w", err)
		}
	}
	wh := WorkingHours{Start: s, End: e, Location: loc}
	if err := wh.Validate(); err != nil {
		return WorkingHours{}, err
	}
	return wh, nil
}

// ParseClock parses "HH:MM" (00:00 to 24:00) into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	var h, m int
	if n, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || n != 2 || len(s) != 5 {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// Validate checks that the window is non-empty.
func (w WorkingHours) Validate() error {
	if w.End <= w.Start {
		return fmt.Errorf("working hours end must be after start")
	}
	return nil
}

func (w WorkingHours) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Window returns the working window on the calendar date of day, as seen in
// the working-hours location.
func (w WorkingHours) Window(day time.Time) TimeRange {
	loc := w.location()
	y, m, d := day.In(loc).Date()
	// Wall-clock components keep the window at 09:00 on DST transition days.
	at := func(offset time.Duration) time.Time {
		h := int(offset / time.Hour)
		mins := int(offset % time.Hour / time.Minute)
		return time.Date(y, m, d, h, mins, 0, 0, loc)
	}
	return TimeRange{Start: at(w.Start), End: at(w.End)}
}

// String renders the window as "HH:MM-HH:MM Zone".
func (w WorkingHours) String() string {
	return fmt.Sprintf("%s-%s %s", clock(w.Start), clock(w.End), w.location())
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
