package model

import "time"

// PlannedTransaction is a one-off expected future movement: an invoice due,
// a transfer promised, a refund awaited. Reconciling it against a real
// transaction removes it from the outstanding set.
type PlannedTransaction struct {
	Date        time.Time
	CreatedAt   time.Time
	Description string
	ID          int64
	WorkspaceID int64
	AccountID   int64
	CategoryID  int64
	Amount      float64
}
