// Package calendar_tools exposes the primary calendar to MCP clients.
//
// calendar_get_schedule, calendar_check_availability and
// calendar_find_free_slots are cached reads. calendar_find_free_slots runs
// the free-slot finder over the merged busy time of the requested calendars
// inside the working window of the day. calendar_create_event and
// calendar_delete_event are writes; they invalidate every cached schedule
// and free/busy answer.
package calendar_tools
