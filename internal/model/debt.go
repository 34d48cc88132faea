package model

import "time"

// DebtType says which direction an informal debt points.
type DebtType string

const (
	// DebtTypeLent is money handed to someone else, expected back.
	DebtTypeLent DebtType = "lent"
	// DebtTypeBorrowed is money received from someone else, owed back.
	DebtTypeBorrowed DebtType = "borrowed"
)

// DebtStatus tracks whether a debt has been settled.
type DebtStatus string

const (
	// DebtStatusOutstanding marks debts still open.
	DebtStatusOutstanding DebtStatus = "outstanding"
	// DebtStatusSettled marks debts that have been paid off.
	DebtStatusSettled DebtStatus = "settled"
)

// Debt is an informal IOU with another person, outside the account ledger
// until it is settled. Amount is always positive; Type carries direction.
type Debt struct {
	DueDate     time.Time
	CreatedAt   time.Time
	Person      string
	Type        DebtType
	Status      DebtStatus
	ID          int64
	WorkspaceID int64
	Amount      float64
}

// SettlementAmount returns the signed transaction amount that clears the
// debt: money comes back in for lent debts and goes out for borrowed ones.
func (d *Debt) SettlementAmount() float64 {
	if d.Type == DebtTypeBorrowed {
		return -d.Amount
	}
	return d.Amount
}
