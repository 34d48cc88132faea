// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical storage format for ledger dates.
const DateLayout = "2006-01-02"

// legacyDateLayout accepts day-first dates from hand-entered records.
const legacyDateLayout = "02/01/2006"

// ParseDate parses a stored ledger date. The canonical ISO form is tried
// first, then the day-first legacy form. Records whose dates fail both
// layouts are skipped by callers rather than aborting the operation.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(legacyDateLayout, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// Day truncates t to midnight UTC so date arithmetic stays calendar-based.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day distance from a to b, negative when b
// precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
