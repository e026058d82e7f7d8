package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Scheduler is the calendar surface used by the tool layer.
type Scheduler interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error)
}

// Client talks to the Google Calendar API on behalf of one account.
type Client struct {
	svc     *calendar.Service
	account string
}

var _ Scheduler = (*Client)(nil)

// NewClient builds a client from an authenticated HTTP client.
func NewClient(ctx context.Context, account string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, account: account}, nil
}

// Account returns the account this client acts for.
func (c *Client) Account() string {
	return c.account
}

// ListEvents returns single (expanded) events ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	var out []EventSummary
	call := c.svc.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			out = append(out, toEventSummary(ev))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return out, nil
}

// CreateEvent inserts an event. Attendees are notified when present.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}

	if input.AllDay {
		event.Start = &calendar.EventDateTime{Date: input.Start.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: input.End.Format(dateLayout)}
	} else {
		tz := input.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		event.Start = &calendar.EventDateTime{DateTime: input.Start.Format(time.RFC3339), TimeZone: tz}
		event.End = &calendar.EventDateTime{DateTime: input.End.Format(time.RFC3339), TimeZone: tz}
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	sendUpdates := "none"
	if len(event.Attendees) > 0 {
		sendUpdates = "all"
	}

	created, err := c.svc.Events.Insert(calendarID, event).
		SendUpdates(sendUpdates).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s := toEventSummary(created)
	return &s, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// QueryFreeBusy returns busy intervals per calendar, sorted by calendar ID.
// A malformed interval in the response fails the call.
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	resp, err := c.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(resp.Calendars))
	for id, cal := range resp.Calendars {
		raw := make([]RawInterval, 0, len(cal.Busy))
		for _, b := range cal.Busy {
			if b == nil {
				continue
			}
			raw = append(raw, RawInterval{Start: b.Start, End: b.End})
		}
		busy, err := ParseBusyIntervals(raw)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", id, err)
		}

		info := FreeBusyInfo{Calendar: id, Busy: busy}
		for _, e := range cal.Errors {
			if e != nil {
				info.Errors = append(info.Errors, e.Reason)
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Calendar < infos[j].Calendar })
	return infos, nil
}

// MergeBusy flattens the busy intervals of several calendars.
func MergeBusy(infos []FreeBusyInfo) []TimeRange {
	var all []TimeRange
	for _, info := range infos {
		all = append(all, info.Busy...)
	}
	return all
}
