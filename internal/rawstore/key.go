// Package rawstore persists raw source payloads write-once, keyed by
// category, logical date, identifier and capture timestamp.
package rawstore

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// TimestampLayout is the capture timestamp suffix of every raw key.
// Existing captures depend on it; it must not change.
const TimestampLayout = "20060102_150405"

const fileExt = ".json"

// Categories of raw captures
const (
	CategoryCalendar = "calendar"
	CategoryGames    = "games"
)

// Key addresses one raw capture.
type Key struct {
	Category   string
	Date       string
	Identifier string
	CapturedAt time.Time
}

// NewKey builds a key, truncating the capture time to whole seconds in loc.
func NewKey(category, date, identifier string, capturedAt time.Time, loc *time.Location) Key {
	if loc == nil {
		loc = time.UTC
	}
	return Key{
		Category:   category,
		Date:       date,
		Identifier: identifier,
		CapturedAt: capturedAt.In(loc).Truncate(time.Second),
	}
}

// FileName returns "{identifier}_{YYYYMMDD_HHMMSS}.json"
func (k Key) FileName() string {
	return k.Identifier + "_" + k.CapturedAt.Format(TimestampLayout) + fileExt
}

// Path returns "{category}/{date}/{identifier}_{YYYYMMDD_HHMMSS}.json"
func (k Key) Path() string {
	return path.Join(k.Category, k.Date, k.FileName())
}

func (k Key) String() string {
	return k.Path()
}

// ParseKey recovers a key from its relative path. The timestamp is read
// from the last two underscore-separated parts of the file stem and
// interpreted in loc.
func ParseKey(p string, loc *time.Location) (Key, error) {
	parts := strings.Split(strings.Trim(path.Clean(p), "/"), "/")
	if len(parts) < 3 {
		return Key{}, fmt.Errorf("raw key %q: expected category/date/file", p)
	}
	parts = parts[len(parts)-3:]

	identifier, capturedAt, err := ParseFileName(parts[2], loc)
	if err != nil {
		return Key{}, fmt.Errorf("raw key %q: %w", p, err)
	}

	return Key{
		Category:   parts[0],
		Date:       parts[1],
		Identifier: identifier,
		CapturedAt: capturedAt,
	}, nil
}

// ParseFileName splits "{identifier}_{YYYYMMDD}_{HHMMSS}.json".
func ParseFileName(name string, loc *time.Location) (string, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if !strings.HasSuffix(name, fileExt) {
		return "", time.Time{}, fmt.Errorf("file %q is not %s", name, fileExt)
	}

	fields := strings.Split(strings.TrimSuffix(name, fileExt), "_")
	if len(fields) < 3 {
		return "", time.Time{}, fmt.Errorf("file %q has no capture timestamp", name)
	}

	n := len(fields)
	ts, err := time.ParseInLocation(TimestampLayout, fields[n-2]+"_"+fields[n-1], loc)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("file %q: bad capture timestamp: %w", name, err)
	}

	return strings.Join(fields[:n-2], "_"), ts, nil
}
