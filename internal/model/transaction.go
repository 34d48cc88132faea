package model

import "time"

// Transaction is a single dated, signed money movement that already
// happened. Income is positive, spending is negative.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	Description string
	ID          int64
	WorkspaceID int64
	AccountID   int64
	CategoryID  int64
	Amount      float64
}

// TransactionDetail is a transaction joined with its category and account
// names, the shape recurrence inference and reporting work from.
type TransactionDetail struct {
	Date         time.Time
	Description  string
	CategoryName string
	AccountName  string
	CategoryKind CategoryKind
	ID           int64
	CategoryID   int64
	AccountID    int64
	Amount       float64
}
