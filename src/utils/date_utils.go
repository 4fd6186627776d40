package utils

import (
	"fmt"
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ParseDate parses a calendar date in the ledger's wire format (ISO 8601
// date, no time component).
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want %s): %w", dateStr, DefaultDateFormat, err)
	}
	return t, nil
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
