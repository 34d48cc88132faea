package model

import (
	"fmt"
	"time"
)

// Budget caps expected spending for one category in one calendar month.
// AccountID zero means the cap applies across all accounts.
type Budget struct {
	CreatedAt   time.Time
	Month       time.Month
	ID          int64
	WorkspaceID int64
	CategoryID  int64
	AccountID   int64
	Year        int
	Amount      float64
}

// Validate ensures the budget row has usable data before it is stored.
func (b *Budget) Validate() error {
	if b.Month < time.January || b.Month > time.December {
		return fmt.Errorf("month must be between 1 and 12")
	}
	if b.Year < 1900 {
		return fmt.Errorf("implausible budget year %d", b.Year)
	}
	if b.Amount < 0 {
		return fmt.Errorf("budget amount must not be negative")
	}
	return nil
}
