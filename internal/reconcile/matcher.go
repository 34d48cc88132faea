// Package reconcile pairs incoming real transactions with the planned
// entries that anticipated them, then swaps the plan for the recorded
// movement in one atomic step.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// Config bounds how far a real movement may drift from its plan and still
// count as the same thing.
type Config struct {
	// DayTolerance is the window in days on either side of the plan date.
	DayTolerance int
	// AmountTolerance is the allowed drift as a fraction of the planned
	// amount. 0.15 lets a 100 plan match anything in [85, 115].
	AmountTolerance float64
}

// DefaultConfig returns the stock matching tolerances.
func DefaultConfig() Config {
	return Config{DayTolerance: 7, AmountTolerance: 0.15}
}

// Matcher finds and settles planned transactions against real movements.
type Matcher struct {
	store service.Storage
	cfg   Config
}

// NewMatcher creates a matcher. Unset config fields fall back to defaults.
func NewMatcher(store service.Storage, cfg Config) *Matcher {
	defaults := DefaultConfig()
	if cfg.DayTolerance <= 0 {
		cfg.DayTolerance = defaults.DayTolerance
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = defaults.AmountTolerance
	}
	return &Matcher{store: store, cfg: cfg}
}

// FindBest returns the planned transaction closest to the given movement,
// or nil when none lies within tolerance. Candidates are ranked by amount
// distance first, date distance second.
func (m *Matcher) FindBest(ctx context.Context, workspaceID int64, date time.Time, amount float64) (*model.PlannedTransaction, error) {
	return m.store.FindBestPlannedMatch(ctx, workspaceID, date, amount, m.cfg.DayTolerance, m.cfg.AmountTolerance)
}

// Reconcile records the real transaction and removes the planned entry it
// fulfills. Both steps share one transaction: the planned row is re-read
// inside it, so a plan reconciled concurrently fails the whole operation
// with ErrNotFound and nothing is inserted.
func (m *Matcher) Reconcile(ctx context.Context, workspaceID, plannedID int64, txn *model.Transaction) (*model.Transaction, error) {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetPlannedTransactionByID(ctx, workspaceID, plannedID); err != nil {
		return nil, fmt.Errorf("planned transaction %d is gone: %w", plannedID, err)
	}

	txn.WorkspaceID = workspaceID
	created, err := tx.CreateTransaction(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	if err := tx.DeletePlannedTransaction(ctx, workspaceID, plannedID); err != nil {
		return nil, fmt.Errorf("failed to remove planned transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return created, nil
}
