package csvimport

import (
	"strings"
	"time"
)

// Legacy exports disagree on date formatting, so the parser accepts the
// layouts seen in practice, most specific first. Two-digit years follow
// the Go convention (69 and below are 20xx).
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2006/1/2",
	"1-2-2006",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses a date cell. The empty string is the caller's problem;
// here it is just another unparseable value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
