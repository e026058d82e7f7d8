package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventInput describes an event to create.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// AllDay events use the calendar dates of Start and End.
	AllDay    bool
	TimeZone  string
	Attendees []string
}

// EventSummary is the subset of an event shown to the user.
type EventSummary struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay,omitempty"`
	Status      string    `json:"status,omitempty"`
	Organizer   string    `json:"organizer,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Link        string    `json:"link,omitempty"`
}

// FreeBusyInfo is the busy time of one calendar.
type FreeBusyInfo struct {
	Calendar string      `json:"calendar"`
	Busy     []TimeRange `json:"busy"`
	Errors   []string    `json:"errors,omitempty"`
}

func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}
	s := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		Link:        event.HtmlLink,
	}
	s.Start, s.AllDay = eventTime(event.Start)
	s.End, _ = eventTime(event.End)
	if event.Organizer != nil {
		s.Organizer = event.Organizer.Email
	}
	for _, a := range event.Attendees {
		if a != nil && a.Email != "" {
			s.Attendees = append(s.Attendees, a.Email)
		}
	}
	return s
}

// StartIn returns the event start in loc. All-day events keep their calendar
// date, starting at midnight in loc.
func (e EventSummary) StartIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if !e.AllDay {
		return e.Start.In(loc)
	}
	y, m, d := e.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// eventTime reads a DateTime, or a Date for all-day events. Dates carry no
// zone and are returned at UTC midnight; use StartIn to place them.
func eventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := ParseTimestamp(dt.DateTime); err == nil {
			return t, false
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse(dateLayout, dt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
