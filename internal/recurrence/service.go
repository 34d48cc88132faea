package recurrence

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// Suggest runs detection over a workspace's full recorded history.
func Suggest(ctx context.Context, store service.Storage, workspaceID int64, cfg Config) ([]model.RecurringSuggestion, error) {
	entries, err := store.ListTransactionDetails(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	details, err := store.ListRecurringRules(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring rules: %w", err)
	}
	existing := make([]model.RecurringRule, 0, len(details))
	for _, detail := range details {
		existing = append(existing, detail.Rule)
	}
	return NewDetector(cfg).Detect(entries, existing), nil
}

// Accept persists a suggestion as a recurring rule. The duplicate check and
// the insert share one transaction, so two concurrent accepts of the same
// suggestion cannot both land.
func Accept(ctx context.Context, store service.Storage, workspaceID int64, suggestion model.RecurringSuggestion) (*model.RecurringRule, error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.FindRecurringRule(ctx, workspaceID, suggestion.Name, suggestion.Interval, suggestion.CategoryID, suggestion.AccountID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: recurring rule %q already exists", common.ErrDuplicateEntry, suggestion.Name)
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("failed to check for existing rule: %w", err)
	}

	rule, err := tx.CreateRecurringRule(ctx, &model.RecurringRule{
		WorkspaceID: workspaceID,
		Name:        suggestion.Name,
		StartDate:   suggestion.FirstDate,
		Interval:    suggestion.Interval,
		Amount:      math.Round(suggestion.Amount*100) / 100,
		AccountID:   suggestion.AccountID,
		CategoryID:  suggestion.CategoryID,
		Description: "Added from a detected pattern",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring rule: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return rule, nil
}
