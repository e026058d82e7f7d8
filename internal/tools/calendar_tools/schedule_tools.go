package calendar_tools

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

func handleGetSchedule(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "fetching your calendar"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)
	hours := sc.WorkingHours()

	first, err := day(args, hours)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days, err := common.IntArg(args, "days", 1)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if days < 1 || days > maxScheduleDays {
		return mcp.NewToolResultError(fmt.Sprintf("days must be between 1 and %d", maxScheduleDays)), nil
	}
	timeMin := first
	timeMax := first.AddDate(0, 0, int(days))

	scheduler, err := sc.Scheduler(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	res, err := common.Fetch(ctx, sc, common.Call{
		Service:   instrumentation.ServiceCalendar,
		Operation: instrumentation.OperationEvents,
		Key:       cache.CalendarEventsKey(account, timeMin, timeMax),
		TTL:       cache.CalendarEventsTTL,
		Activity:  activity,
	}, func(ctx context.Context) ([]calendar.EventSummary, error) {
		return scheduler.ListEvents(ctx, primaryCalendar, timeMin, timeMax)
	})
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	return mcp.NewToolResultText(res.Annotate(formatSchedule(first, int(days), res.Value, hours.Location))), nil
}

func handleCheckAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "checking your availability"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	window, err := timeRangeArgs(args, "startTime", "endTime")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := fetchFreeBusy(ctx, sc, account, window, []string{primaryCalendar}, activity)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	loc := sc.WorkingHours().Location
	if loc == nil {
		loc = time.UTC
	}
	var conflicts []calendar.TimeRange
	for _, b := range calendar.MergeBusy(res.Value) {
		if b.Overlaps(window) {
			conflicts = append(conflicts, b)
		}
	}

	var b strings.Builder
	when := fmt.Sprintf("%s %s", window.Start.In(loc).Format("Mon 2 Jan 2006"), formatClockRange(window, loc))
	if len(conflicts) == 0 {
		fmt.Fprintf(&b, "Free: nothing is scheduled %s.", when)
	} else {
		fmt.Fprintf(&b, "Busy: %d conflict(s) %s:\n", len(conflicts), when)
		for _, c := range conflicts {
			fmt.Fprintf(&b, "- %s %s\n", c.Start.In(loc).Format("Mon 2 Jan"), formatClockRange(c, loc))
		}
	}
	return mcp.NewToolResultText(res.Annotate(strings.TrimRight(b.String(), "\n"))), nil
}

func handleFindFreeSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "finding free time"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	hours, err := searchHours(args, sc.WorkingHours())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := day(args, hours)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minutes, err := common.IntArg(args, "durationMinutes", 30)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	minDuration := time.Duration(minutes) * time.Minute
	window := hours.Window(date)
	ids := calendarIDs(args)

	res, err := fetchFreeBusy(ctx, sc, account, window, ids, activity)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	slots := calendar.FindFreeSlots(window, calendar.MergeBusy(res.Value), minDuration)

	var b strings.Builder
	fmt.Fprintf(&b, "Free slots on %s (%s", date.Format("Mon 2 Jan 2006"), hours)
	if len(ids) > 1 || ids[0] != primaryCalendar {
		fmt.Fprintf(&b, ", calendars: %s", strings.Join(ids, ", "))
	}
	b.WriteString("):\n")
	if len(slots) == 0 {
		fmt.Fprintf(&b, "No free slot of at least %s.\n", formatDuration(max(minDuration, time.Minute)))
	}
	for _, s := range slots {
		fmt.Fprintf(&b, "- %s (%s)\n", formatClockRange(s, hours.Location), formatDuration(s.Duration()))
	}
	for _, info := range res.Value {
		if len(info.Errors) > 0 {
			fmt.Fprintf(&b, "Note: could not read %s (%s); its busy time is not included.\n",
				info.Calendar, strings.Join(info.Errors, ", "))
		}
	}
	return mcp.NewToolResultText(res.Annotate(strings.TrimRight(b.String(), "\n"))), nil
}

// searchHours applies windowStart and windowEnd over the configured working
// hours.
func searchHours(args map[string]any, hours calendar.WorkingHours) (calendar.WorkingHours, error) {
	if s := common.StringArg(args, "windowStart"); s != "" {
		d, err := calendar.ParseClock(s)
		if err != nil {
			return hours, fmt.Errorf("windowStart: %w", err)
		}
		hours.Start = d
	}
	if s := common.StringArg(args, "windowEnd"); s != "" {
		d, err := calendar.ParseClock(s)
		if err != nil {
			return hours, fmt.Errorf("windowEnd: %w", err)
		}
		hours.End = d
	}
	if hours.Location == nil {
		hours.Location = time.UTC
	}
	if err := hours.Validate(); err != nil {
		return hours, err
	}
	return hours, nil
}

func fetchFreeBusy(ctx context.Context, sc *server.ServerContext, account string, window calendar.TimeRange, ids []string, activity string) (common.Result[[]calendar.FreeBusyInfo], error) {
	scheduler, err := sc.Scheduler(account)
	if err != nil {
		return common.Result[[]calendar.FreeBusyInfo]{}, err
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	return common.Fetch(ctx, sc, common.Call{
		Service:   instrumentation.ServiceCalendar,
		Operation: instrumentation.OperationFreeBusy,
		Key:       cache.CalendarFreeBusyKey(account, window.Start, window.End, sorted...),
		TTL:       cache.CalendarFreeBusyTTL,
		Activity:  activity,
	}, func(ctx context.Context) ([]calendar.FreeBusyInfo, error) {
		return scheduler.QueryFreeBusy(ctx, window.Start, window.End, sorted)
	})
}

func formatSchedule(first time.Time, days int, events []calendar.EventSummary, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	span := first.Format("Mon 2 Jan 2006")
	if days > 1 {
		span += " to " + first.AddDate(0, 0, days-1).Format("Mon 2 Jan 2006")
	}
	if len(events) == 0 {
		return fmt.Sprintf("No events scheduled for %s.", span)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s (%d events):\n", span, len(events))
	lastDay := ""
	for _, ev := range events {
		if days > 1 {
			if d := ev.StartIn(loc).Format("Mon 2 Jan"); d != lastDay {
				fmt.Fprintf(&b, "\n%s\n", d)
				lastDay = d
			}
		}
		when := "all day"
		if !ev.AllDay {
			when = formatClockRange(calendar.TimeRange{Start: ev.Start, End: ev.End}, loc)
		}
		title := ev.Summary
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(&b, "- %s %s", when, title)
		if extra := joinNonEmpty(ev.Location, attendeeCount(ev.Attendees)); extra != "" {
			fmt.Fprintf(&b, " (%s)", extra)
		}
		fmt.Fprintf(&b, " [id: %s]\n", ev.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func attendeeCount(attendees []string) string {
	switch len(attendees) {
	case 0:
		return ""
	case 1:
		return "1 attendee"
	default:
		return fmt.Sprintf("%d attendees", len(attendees))
	}
}
