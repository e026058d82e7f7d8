package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/cache"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

func registerEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create an event on the primary calendar. Attendees receive an invitation."),
		accountOption,
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("startTime",
			mcp.Required(),
			mcp.Description("Start time (RFC3339, e.g. '2026-03-02T14:00:00Z'), or YYYY-MM-DD for an all-day event"),
		),
		mcp.WithString("endTime",
			mcp.Required(),
			mcp.Description("End time (RFC3339), or YYYY-MM-DD for an all-day event"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee email addresses"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandler("calendar_create_event",
		instrumentation.ServiceCalendar, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	deleteTool := mcp.NewTool("calendar_delete_event",
		mcp.WithDescription("Delete an event from the primary calendar"),
		accountOption,
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The ID of the event to delete"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler("calendar_delete_event",
		instrumentation.ServiceCalendar, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, sc)
		}))

	return nil
}

// isDate reports whether s is a bare YYYY-MM-DD date.
func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// eventInput builds the event to create from tool arguments.
func eventInput(args map[string]any, hours calendar.WorkingHours) (calendar.EventInput, error) {
	title, err := common.RequiredStringArg(args, "title")
	if err != nil {
		return calendar.EventInput{}, err
	}
	input := calendar.EventInput{
		Summary:     title,
		Description: common.StringArg(args, "description"),
		Location:    common.StringArg(args, "location"),
		Attendees:   common.SplitAddresses(common.StringArg(args, "attendees")),
	}

	startStr, endStr := common.StringArg(args, "startTime"), common.StringArg(args, "endTime")
	if startStr == "" || endStr == "" {
		return calendar.EventInput{}, fmt.Errorf("startTime and endTime are required")
	}

	switch startDate, endDate := isDate(startStr), isDate(endStr); {
	case startDate && endDate:
		start, _ := calendar.ParseDate(startStr, time.UTC)
		end, _ := calendar.ParseDate(endStr, time.UTC)
		if end.Before(start) {
			return calendar.EventInput{}, fmt.Errorf("endTime must not be before startTime")
		}
		// The end date of an all-day event is exclusive.
		input.Start, input.End, input.AllDay = start, end.AddDate(0, 0, 1), true
	case startDate || endDate:
		return calendar.EventInput{}, fmt.Errorf("startTime and endTime must both be dates or both be times")
	default:
		r, err := timeRangeArgs(args, "startTime", "endTime")
		if err != nil {
			return calendar.EventInput{}, err
		}
		input.Start, input.End = r.Start, r.End
		if hours.Location != nil {
			input.TimeZone = hours.Location.String()
		}
	}
	return input, nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "creating the event"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	input, err := eventInput(args, sc.WorkingHours())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scheduler, err := sc.Scheduler(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	event, err := common.Mutate(ctx, sc, common.Call{
		Service:   instrumentation.ServiceCalendar,
		Operation: instrumentation.OperationCreate,
		Activity:  activity,
	}, func(ctx context.Context) (*calendar.EventSummary, error) {
		return scheduler.CreateEvent(ctx, primaryCalendar, input)
	}, cache.CalendarEventsPrefix, cache.CalendarFreeBusyPrefix)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	var b strings.Builder
	b.WriteString("Event created successfully!\n")
	fmt.Fprintf(&b, "ID: %s\n", event.ID)
	fmt.Fprintf(&b, "Title: %s\n", event.Summary)
	if input.AllDay {
		last := input.End.AddDate(0, 0, -1)
		if last.Equal(input.Start) {
			fmt.Fprintf(&b, "When: %s (all day)\n", input.Start.Format("Mon 2 Jan 2006"))
		} else {
			fmt.Fprintf(&b, "When: %s to %s (all day)\n", input.Start.Format("Mon 2 Jan 2006"), last.Format("Mon 2 Jan 2006"))
		}
	} else {
		fmt.Fprintf(&b, "When: %s to %s\n", input.Start.Format(time.RFC3339), input.End.Format(time.RFC3339))
	}
	if len(input.Attendees) > 0 {
		fmt.Fprintf(&b, "Invitations sent to: %s\n", strings.Join(input.Attendees, ", "))
	}
	if event.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", event.Link)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	const activity = "deleting the event"
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	eventID, err := common.RequiredStringArg(args, "eventId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scheduler, err := sc.Scheduler(account)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	_, err = common.Mutate(ctx, sc, common.Call{
		Service:   instrumentation.ServiceCalendar,
		Operation: instrumentation.OperationDelete,
		Activity:  activity,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, scheduler.DeleteEvent(ctx, primaryCalendar, eventID)
	}, cache.CalendarEventsPrefix, cache.CalendarFreeBusyPrefix)
	if err != nil {
		return common.ErrorResult(err, activity), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Event %s deleted successfully.", eventID)), nil
}
