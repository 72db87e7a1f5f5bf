// Package timewindow resolves the ISO 8601 bounds of an event query into
// instants for calendar adapters.
package timewindow

import (
	"fmt"
	"strings"
	"time"
)

var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Parse resolves start and end in loc. Values without an offset are wall
// clock times in loc. A date-only end covers that whole day. An empty bound
// resolves to the zero time, which leaves that side open.
func Parse(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	from, _, err := parseBound(start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	to, dateOnly, err := parseBound(end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %q is not after start %q", end, start)
	}
	return from, to, nil
}

func parseBound(value string, loc *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, false, nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, false, nil
		}
	}
	if parsed, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return parsed, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unsupported timestamp %q", value)
}
