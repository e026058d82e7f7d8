package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

const primaryCalendar = "primary"

const maxScheduleDays = 14

var accountOption = mcp.WithString("account",
	mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
)

// now is replaced in tests.
var now = time.Now

// RegisterCalendarTools registers the Calendar tools. Write tools are skipped
// in read-only mode.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	scheduleTool := mcp.NewTool("calendar_get_schedule",
		mcp.WithDescription("Get the events on the primary calendar for a day or a few days"),
		accountOption,
		mcp.WithString("date",
			mcp.Description("First day in YYYY-MM-DD format (default: today)"),
		),
		mcp.WithNumber("days",
			mcp.Description(fmt.Sprintf("Number of days to include (default: 1, max: %d)", maxScheduleDays)),
		),
	)
	s.AddTool(scheduleTool, common.InstrumentedToolHandler("calendar_get_schedule",
		instrumentation.ServiceCalendar, instrumentation.OperationEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetSchedule(ctx, request, sc)
		}))

	availabilityTool := mcp.NewTool("calendar_check_availability",
		mcp.WithDescription("Check whether the primary calendar is free for a time range"),
		accountOption,
		mcp.WithString("startTime",
			mcp.Required(),
			mcp.Description("Start of the range (RFC3339, e.g. '2026-03-02T14:00:00Z')"),
		),
		mcp.WithString("endTime",
			mcp.Required(),
			mcp.Description("End of the range (RFC3339, e.g. '2026-03-02T15:00:00Z')"),
		),
	)
	s.AddTool(availabilityTool, common.InstrumentedToolHandler("calendar_check_availability",
		instrumentation.ServiceCalendar, instrumentation.OperationFreeBusy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckAvailability(ctx, request, sc)
		}))

	slotsTool := mcp.NewTool("calendar_find_free_slots",
		mcp.WithDescription("Find free time slots on a day within working hours, across one or more calendars"),
		accountOption,
		mcp.WithString("date",
			mcp.Description("Day to search in YYYY-MM-DD format (default: today)"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Minimum slot length in minutes (default: 30)"),
		),
		mcp.WithString("calendars",
			mcp.Description("Comma-separated calendar IDs or attendee emails whose busy time counts (default: 'primary')"),
		),
		mcp.WithString("windowStart",
			mcp.Description("Start of the search window as HH:MM (default: start of working hours)"),
		),
		mcp.WithString("windowEnd",
			mcp.Description("End of the search window as HH:MM (default: end of working hours)"),
		),
	)
	s.AddTool(slotsTool, common.InstrumentedToolHandler("calendar_find_free_slots",
		instrumentation.ServiceCalendar, instrumentation.OperationSlots, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindFreeSlots(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}
	return registerEventTools(s, sc)
}

// day resolves the "date" argument to local midnight in the working-hours
// location.
func day(args map[string]any, hours calendar.WorkingHours) (time.Time, error) {
	loc := hours.Location
	if loc == nil {
		loc = time.UTC
	}
	s := common.StringArg(args, "date")
	if s == "" {
		y, m, d := now().In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return calendar.ParseDate(s, loc)
}

// timeRangeArgs reads a required start/end pair of timestamps.
func timeRangeArgs(args map[string]any, startName, endName string) (calendar.TimeRange, error) {
	startStr, err := common.RequiredStringArg(args, startName)
	if err != nil {
		return calendar.TimeRange{}, err
	}
	endStr, err := common.RequiredStringArg(args, endName)
	if err != nil {
		return calendar.TimeRange{}, err
	}
	start, err := calendar.ParseTimestamp(startStr)
	if err != nil {
		return calendar.TimeRange{}, fmt.Errorf("%s: %w", startName, err)
	}
	end, err := calendar.ParseTimestamp(endStr)
	if err != nil {
		return calendar.TimeRange{}, fmt.Errorf("%s: %w", endName, err)
	}
	if !end.After(start) {
		return calendar.TimeRange{}, fmt.Errorf("%s must be after %s", endName, startName)
	}
	return calendar.TimeRange{Start: start, End: end}, nil
}

// calendarIDs reads a comma-separated list, defaulting to the primary
// calendar.
func calendarIDs(args map[string]any) []string {
	ids := common.SplitAddresses(common.StringArg(args, "calendars"))
	if len(ids) == 0 {
		return []string{primaryCalendar}
	}
	return ids
}

func formatClockRange(r calendar.TimeRange, loc *time.Location) string {
	return fmt.Sprintf("%s-%s", r.Start.In(loc).Format("15:04"), r.End.In(loc).Format("15:04"))
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
