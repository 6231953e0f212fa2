package schedule

import (
	"fmt"
	"time"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant reads an ISO-8601 timestamp. Strings without an offset are
// taken to be wall-clock time in loc. The result is UTC.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseDay reads a calendar date (YYYY-MM-DD) or any timestamp accepted by
// ParseInstant and returns noon of that local day, in UTC.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return d.Add(12 * time.Hour).UTC(), nil
	}
	t, err := ParseInstant(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 12, 0, 0, 0, loc).UTC(), nil
}

// Format renders t for API responses.
func Format(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}
