package core

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the date encodings seen across backends and callers.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05-07",
	time.DateOnly,
	time.RubyDate,
	"2006-01-02T15:04",
}

// ParseDate parses a date in any of the encodings the backends use. Dates
// without a zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// MustParseDate is ParseDate for constants in tests and defaults.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
