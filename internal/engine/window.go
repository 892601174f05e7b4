package engine

import (
	"time"

	"github.com/heliotrack/go-solar-reconciler/internal/models"
	"github.com/heliotrack/go-solar-reconciler/internal/timerange"
)

// WindowPolicy derives the reconciliation window for one device. The two
// policies are the only difference between the full-history and ranged
// backfill variants; everything downstream of the window is shared.
type WindowPolicy interface {
	// Window returns the inclusive [start, end] day window for the device.
	// ok is false when no window can be derived, in which case the device is
	// skipped with the given reason.
	Window(device models.DeviceSeries, now time.Time) (start, end time.Time, ok bool, reason string)
}

// FullHistoryWindow reconciles from the device's first generation day up to
// yesterday (UTC). The current day is still accumulating and never counts.
type FullHistoryWindow struct{}

// Window implements WindowPolicy.
func (FullHistoryWindow) Window(device models.DeviceSeries, now time.Time) (time.Time, time.Time, bool, string) {
	if !device.HasKnownStart() {
		return time.Time{}, time.Time{}, false, "no first generation date"
	}
	return timerange.DayStart(*device.FirstGenerationAt), timerange.Yesterday(now), true, ""
}

// FixedRangeWindow reconciles an operator-supplied [Start, End] range. The
// range is clamped to what can actually exist for the device: nothing before
// its first generation day and nothing after yesterday.
type FixedRangeWindow struct {
	Start time.Time
	End   time.Time
}

// Window implements WindowPolicy.
func (w FixedRangeWindow) Window(device models.DeviceSeries, now time.Time) (time.Time, time.Time, bool, string) {
	if !device.HasKnownStart() {
		return time.Time{}, time.Time{}, false, "no first generation date"
	}

	start := timerange.DayStart(w.Start)
	if firstDay := timerange.DayStart(*device.FirstGenerationAt); firstDay.After(start) {
		start = firstDay
	}
	end := timerange.DayStart(w.End)
	if yesterday := timerange.Yesterday(now); yesterday.Before(end) {
		end = yesterday
	}
	return start, end, true, ""
}
