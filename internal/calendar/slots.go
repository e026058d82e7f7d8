package calendar

import (
	"slices"
	"time"
)

// MinSlotDuration is the smallest slot FindFreeSlots will report.
const MinSlotDuration = time.Minute

// FindFreeSlots returns the gaps between busy intervals inside window that
// last at least minDuration, in chronological order.
//
// Busy intervals may be unsorted and may overlap. Intervals with
// Start >= End are ignored, and the rest are clipped to the window. A gap of
// exactly minDuration counts.
func FindFreeSlots(window TimeRange, busy []TimeRange, minDuration time.Duration) []TimeRange {
	if minDuration < MinSlotDuration {
		minDuration = MinSlotDuration
	}
	if !window.Start.Before(window.End) {
		return nil
	}

	intervals := make([]TimeRange, 0, len(busy))
	for _, b := range busy {
		if !b.Start.Before(b.End) {
			continue
		}
		clipped, ok := b.clip(window)
		if !ok {
			continue
		}
		intervals = append(intervals, clipped)
	}
	slices.SortFunc(intervals, func(a, b TimeRange) int {
		return a.Start.Compare(b.Start)
	})

	var free []TimeRange
	cursor := window.Start
	for _, b := range intervals {
		if b.Start.After(cursor) && b.Start.Sub(cursor) >= minDuration {
			free = append(free, TimeRange{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if window.End.After(cursor) && window.End.Sub(cursor) >= minDuration {
		free = append(free, TimeRange{Start: cursor, End: window.End})
	}
	return free
}

// clip trims r to w. It reports false when nothing of r lies inside w.
func (r TimeRange) clip(w TimeRange) (TimeRange, bool) {
	if !r.Start.Before(w.End) || !r.End.After(w.Start) {
		return TimeRange{}, false
	}
	if r.Start.Before(w.Start) {
		r.Start = w.Start
	}
	if r.End.After(w.End) {
		r.End = w.End
	}
	return r, true
}

// Overlaps reports whether r and o share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Duration is End minus Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
