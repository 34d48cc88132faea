// Package storage provides the data persistence layer for the ebb application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebbcash/ebb/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidID        = errors.New("id must be positive")
	ErrInvalidWorkspace = errors.New("workspace id must be positive")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidRecord    = errors.New("invalid record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures a row id is positive.
func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

// validateWorkspaceID ensures the workspace scope is set.
func validateWorkspaceID(id int64) error {
	if id <= 0 {
		return ErrInvalidWorkspace
	}
	return nil
}

// validateDateRange ensures end does not precede start.
func validateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("%w: %s after %s", ErrInvalidDateRange,
			start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	return nil
}

// validateTransactionRecord validates a transaction before it is written.
func validateTransactionRecord(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateWorkspaceID(txn.WorkspaceID); err != nil {
		return err
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: transaction is missing a date", ErrInvalidRecord)
	}
	if txn.AccountID <= 0 {
		return fmt.Errorf("%w: transaction is missing an account", ErrInvalidRecord)
	}
	if txn.CategoryID <= 0 {
		return fmt.Errorf("%w: transaction is missing a category", ErrInvalidRecord)
	}
	return nil
}

// validatePlannedRecord validates a planned transaction before it is written.
func validatePlannedRecord(planned *model.PlannedTransaction) error {
	if planned == nil {
		return fmt.Errorf("%w: planned transaction", ErrNilParameter)
	}
	if err := validateWorkspaceID(planned.WorkspaceID); err != nil {
		return err
	}
	if planned.Date.IsZero() {
		return fmt.Errorf("%w: planned transaction is missing a date", ErrInvalidRecord)
	}
	if strings.TrimSpace(planned.Description) == "" {
		return fmt.Errorf("%w: planned transaction is missing a description", ErrInvalidRecord)
	}
	if planned.AccountID <= 0 || planned.CategoryID <= 0 {
		return fmt.Errorf("%w: planned transaction is missing account or category", ErrInvalidRecord)
	}
	return nil
}

// validateAccountRecord validates an account before it is written.
func validateAccountRecord(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateWorkspaceID(account.WorkspaceID); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// validateRecurringRecord validates a recurring rule before it is written.
func validateRecurringRecord(rule *model.RecurringRule) error {
	if rule == nil {
		return fmt.Errorf("%w: recurring rule", ErrNilParameter)
	}
	if err := validateWorkspaceID(rule.WorkspaceID); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rule.AccountID <= 0 || rule.CategoryID <= 0 {
		return fmt.Errorf("%w: recurring rule is missing account or category", ErrInvalidRecord)
	}
	return nil
}

// validateGoalRecord validates a goal before it is written.
func validateGoalRecord(goal *model.Goal) error {
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if err := validateWorkspaceID(goal.WorkspaceID); err != nil {
		return err
	}
	if strings.TrimSpace(goal.Description) == "" {
		return fmt.Errorf("%w: goal is missing a description", ErrInvalidRecord)
	}
	if goal.Amount == 0 {
		return fmt.Errorf("%w: goal amount cannot be zero", ErrInvalidRecord)
	}
	return nil
}

// validateDebtRecord validates a debt before it is written.
func validateDebtRecord(debt *model.Debt) error {
	if debt == nil {
		return fmt.Errorf("%w: debt", ErrNilParameter)
	}
	if err := validateWorkspaceID(debt.WorkspaceID); err != nil {
		return err
	}
	if strings.TrimSpace(debt.Person) == "" {
		return fmt.Errorf("%w: debt is missing a person", ErrInvalidRecord)
	}
	if debt.Amount <= 0 {
		return fmt.Errorf("%w: debt amount must be positive", ErrInvalidRecord)
	}
	switch debt.Type {
	case model.DebtTypeLent, model.DebtTypeBorrowed:
	default:
		return fmt.Errorf("%w: unknown debt type %q", ErrInvalidRecord, debt.Type)
	}
	return nil
}

// validateBudgetRecord validates a budget before it is written.
func validateBudgetRecord(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := validateWorkspaceID(budget.WorkspaceID); err != nil {
		return err
	}
	if budget.CategoryID <= 0 {
		return fmt.Errorf("%w: budget is missing a category", ErrInvalidRecord)
	}
	if err := budget.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// validateRuleRecord validates a keyword rule before it is written.
func validateRuleRecord(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateWorkspaceID(rule.WorkspaceID); err != nil {
		return err
	}
	if strings.TrimSpace(rule.Keyword) == "" {
		return fmt.Errorf("%w: rule is missing a keyword", ErrInvalidRecord)
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("%w: rule is missing a category", ErrInvalidRecord)
	}
	return nil
}
