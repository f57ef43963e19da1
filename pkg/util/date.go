package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar date format used on every interface.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDate parses YYYY-MM-DD as midnight in loc (UTC when nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// DateRange lists calendar days from start to end inclusive, stepping by
// calendar day so DST transitions never skip or repeat a date. It stops
// after limit days when limit > 0 and reports whether the range was complete.
func DateRange(start, end time.Time, limit int) ([]time.Time, bool) {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if limit > 0 && len(out) == limit {
			return out, false
		}
		out = append(out, d)
	}
	return out, true
}
