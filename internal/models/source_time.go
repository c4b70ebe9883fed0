package models

import (
	"fmt"
	"time"
)

// sourceTimeLayout is the naive local form the racing source uses for start times.
const sourceTimeLayout = "2006-01-02T15:04:05"

// ParseSourceTime parses a source timestamp. Values carrying an offset are
// honoured; naive values are interpreted in loc.
func ParseSourceTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(sourceTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable start time %q: %w", s, err)
	}
	return t, nil
}
