// Package calendar wraps the Google Calendar API and computes free slots.
//
// FindFreeSlots is a pure interval sweep over busy time. It is fed by
// QueryFreeBusy through ParseBusyIntervals, which rejects malformed records
// before they reach the sweep:
//
//	infos, err := client.QueryFreeBusy(ctx, window.Start, window.End, []string{"primary"})
//	if err != nil {
//	    return err
//	}
//	slots := calendar.FindFreeSlots(window, calendar.MergeBusy(infos), 30*time.Minute)
//
// Working hours default to 09:00-18:00 UTC and are configurable.
package calendar
