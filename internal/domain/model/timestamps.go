package model

import (
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrNoTimestamp is returned for blank timestamp cells.
var ErrNoTimestamp = errors.New("empty timestamp")

// ParseTime reads a sheet timestamp in loc. The canonical layout is tried
// first; anything else goes through a lenient parser.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(TimestampLayout, s, loc); err == nil {
		return t, nil
	}
	return dateparse.ParseIn(s, loc)
}

// FormatTimestamp renders t in loc using the canonical layout.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// CanonicalTimestamp re-renders a timestamp cell in canonical form. Cells
// that cannot be parsed come back unchanged with ok false.
func CanonicalTimestamp(s string, loc *time.Location) (string, bool) {
	t, err := ParseTime(s, loc)
	if err != nil {
		return s, false
	}
	return FormatTimestamp(t, loc), true
}
