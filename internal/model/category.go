package model

import "time"

// CategoryKind partitions categories by cash direction.
type CategoryKind string

const (
	// CategoryKindIncome marks categories for money coming in.
	CategoryKindIncome CategoryKind = "income"
	// CategoryKindExpense marks categories for money going out.
	CategoryKindExpense CategoryKind = "expense"
	// CategoryKindTransfer marks internal movements between accounts.
	CategoryKindTransfer CategoryKind = "transfer"
)

// Reserved category names the application manages itself. They are part of
// the seeded catalogue and are created on demand if the user removed them.
const (
	CategoryNameTransfer      = "Transfer"
	CategoryNameLoanRepayment = "Loan Repayment"
	CategoryNameDebtPayment   = "Debt Payment"
	CategoryNameUncategorized = "Uncategorized"
)

// Category labels transactions for grouping, budgeting and inference.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Kind        CategoryKind
	ID          int64
	WorkspaceID int64
}
