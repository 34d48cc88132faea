package model

import (
	"fmt"
	"strings"
	"time"
)

// AccountType distinguishes asset accounts from revolving credit cards.
type AccountType string

const (
	// AccountTypeStandard is a regular asset account (checking, savings, cash).
	AccountTypeStandard AccountType = "standard"
	// AccountTypeCreditCard is a revolving credit line. Its balance is owed,
	// not owned, so forecasting excludes it from liquidity.
	AccountTypeCreditCard AccountType = "credit_card"
)

// Account represents a place money lives, or a credit line money is owed on.
type Account struct {
	CreatedAt      time.Time
	Name           string
	Type           AccountType
	ID             int64
	WorkspaceID    int64
	OpeningBalance float64
	CreditLimit    float64
	StatementDay   int
}

// Validate ensures the account has usable data before it is stored.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name is required")
	}
	switch a.Type {
	case AccountTypeStandard, AccountTypeCreditCard:
	default:
		return fmt.Errorf("unknown account type %q", a.Type)
	}
	if a.Type == AccountTypeCreditCard {
		if a.CreditLimit < 0 {
			return fmt.Errorf("credit limit must not be negative")
		}
		if a.StatementDay < 1 || a.StatementDay > 28 {
			return fmt.Errorf("statement day must be between 1 and 28")
		}
	}
	return nil
}
