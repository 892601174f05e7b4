// Package timerange provides pure UTC calendar-day math used by the gap
// calculator and the month batch planner. All functions operate on UTC
// midnights so that daylight-saving shifts and local timezones can never
// change which calendar days a window covers.
package timerange

import (
	"time"
)

// DateLayout is the canonical date label format used across the system,
// both for provider responses and for persisted summary keys.
const DateLayout = "2006-01-02"

// MonthKeyLayout formats a month grouping key. The key is an opaque grouping
// token; nothing in the system parses it back into a day-of-month.
const MonthKeyLayout = "2006-01"

// DayStart truncates t to UTC midnight of its calendar day.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Yesterday returns UTC midnight of the calendar day before now. The current
// day is still accumulating generation data and is never a valid gap.
func Yesterday(now time.Time) time.Time {
	return DayStart(now).AddDate(0, 0, -1)
}

// EnumerateDatesInclusive returns every UTC calendar day in [start, end],
// both endpoints included, in ascending order. Returns an empty slice when
// end precedes start.
func EnumerateDatesInclusive(start, end time.Time) []time.Time {
	first := DayStart(start)
	last := DayStart(end)
	if last.Before(first) {
		return nil
	}

	days := int(last.Sub(first).Hours()/24) + 1
	dates := make([]time.Time, 0, days)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// MonthKey derives the "YYYY-MM" grouping key for a date.
func MonthKey(date time.Time) string {
	return date.UTC().Format(MonthKeyLayout)
}

// GroupByMonth partitions dates by their month key. Date order within each
// group follows the input order, and the returned key slice follows the
// first-seen order of the input, so callers iterating keys process months in
// the same order the dates arrived.
func GroupByMonth(dates []time.Time) (map[string][]time.Time, []string) {
	groups := make(map[string][]time.Time, len(dates))
	var keys []string
	for _, d := range dates {
		key := MonthKey(d)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], d)
	}
	return groups, keys
}

// ParseDate parses a "YYYY-MM-DD" label into its UTC midnight.
func ParseDate(label string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, label, time.UTC)
}

// FormatDate renders a date as its "YYYY-MM-DD" label.
func FormatDate(date time.Time) string {
	return date.UTC().Format(DateLayout)
}
