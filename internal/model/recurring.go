package model

import (
	"fmt"
	"strings"
	"time"
)

// RecurrenceInterval is the cadence of a recurring rule.
type RecurrenceInterval string

const (
	// IntervalDaily repeats every day.
	IntervalDaily RecurrenceInterval = "daily"
	// IntervalWeekly repeats on the weekday of the rule's start date.
	IntervalWeekly RecurrenceInterval = "weekly"
	// IntervalMonthly repeats on the day-of-month of the rule's start date,
	// clamped to the last day of shorter months.
	IntervalMonthly RecurrenceInterval = "monthly"
)

// RecurringRule describes a repeating expected cash movement. StartDate
// anchors the schedule: monthly rules keep its day-of-month, weekly rules
// its weekday.
type RecurringRule struct {
	StartDate   time.Time
	CreatedAt   time.Time
	Name        string
	Description string
	Interval    RecurrenceInterval
	ID          int64
	WorkspaceID int64
	AccountID   int64
	CategoryID  int64
	Amount      float64
}

// Validate ensures the rule has usable data before it is stored.
func (r *RecurringRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name is required")
	}
	switch r.Interval {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
	default:
		return fmt.Errorf("unknown interval %q", r.Interval)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	return nil
}

// RecurringSuggestion is a candidate rule inferred from transaction history.
// It is derived on demand and only persisted once the user accepts it.
type RecurringSuggestion struct {
	FirstDate    time.Time
	Name         string
	CategoryName string
	AccountName  string
	Interval     RecurrenceInterval
	CategoryID   int64
	AccountID    int64
	Amount       float64
	Occurrences  int
}
