package crawl

import (
	"strings"
	"time"
)

// dateFormats is tried in order; first parse wins. The month-day-only
// formats at the tail are pinned to the current year.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006年01月02日",
	"2006.01.02",
}

var monthDayFormats = []string{
	"01-02",
	"01/02",
}

// ParseDate turns the loosely-formatted date strings found on listing pages
// into a calendar date. It fails closed: anything unparseable becomes today,
// so extraction never stalls on a bad date cell.
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return today(now)
	}

	for _, fmt := range dateFormats {
		if d, err := time.Parse(fmt, s); err == nil {
			return d
		}
	}
	for _, fmt := range monthDayFormats {
		if d, err := time.Parse(fmt, s); err == nil {
			return time.Date(now.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
	}

	return today(now)
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// CleanText collapses whitespace runs (including NBSP) to single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
