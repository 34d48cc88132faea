package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

// CreateGoal stores a discretionary spending goal. The amount is normalized
// to negative regardless of the sign it arrives with.
func (s *SQLiteStorage) CreateGoal(ctx context.Context, goal *model.Goal) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateGoalRecord(goal); err != nil {
		return nil, err
	}
	return s.createGoalTx(ctx, s.db, goal)
}

func (s *SQLiteStorage) createGoalTx(ctx context.Context, q queryable, goal *model.Goal) (*model.Goal, error) {
	goal.Normalize()
	status := goal.Status
	if status == "" {
		status = model.GoalStatusPending
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO goals (workspace_id, description, amount, priority, status)
		 VALUES (?, ?, ?, ?, ?)`,
		goal.WorkspaceID, goal.Description, goal.Amount, goal.Priority, string(status))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: workspace %d", common.ErrNotFound, goal.WorkspaceID)
		}
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get goal id: %w", err)
	}
	return s.getGoalByIDTx(ctx, q, goal.WorkspaceID, id)
}

func (s *SQLiteStorage) getGoalByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.Goal, error) {
	var goal model.Goal
	var status string
	err := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, description, amount, priority, status, created_at
		 FROM goals WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	).Scan(&goal.ID, &goal.WorkspaceID, &goal.Description, &goal.Amount,
		&goal.Priority, &status, &goal.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	goal.Status = model.GoalStatus(status)
	return &goal, nil
}

// ListGoals returns goals filtered by status, cheapest first so the
// scheduler can fit as many as possible. An empty status returns all goals.
func (s *SQLiteStorage) ListGoals(ctx context.Context, workspaceID int64, status model.GoalStatus) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listGoalsTx(ctx, s.db, workspaceID, status)
}

func (s *SQLiteStorage) listGoalsTx(ctx context.Context, q queryable, workspaceID int64, status model.GoalStatus) ([]model.Goal, error) {
	query := `SELECT id, workspace_id, description, amount, priority, status, created_at
		 FROM goals WHERE workspace_id = ?`
	args := []any{workspaceID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY ABS(amount) ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []model.Goal
	for rows.Next() {
		var goal model.Goal
		var goalStatus string
		if err := rows.Scan(&goal.ID, &goal.WorkspaceID, &goal.Description, &goal.Amount,
			&goal.Priority, &goalStatus, &goal.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goal.Status = model.GoalStatus(goalStatus)
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// UpdateGoalStatus flips a goal between pending and satisfied.
func (s *SQLiteStorage) UpdateGoalStatus(ctx context.Context, workspaceID, id int64, status model.GoalStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "goal ID"); err != nil {
		return err
	}
	switch status {
	case model.GoalStatusPending, model.GoalStatusSatisfied:
	default:
		return fmt.Errorf("%w: unknown goal status %q", ErrInvalidRecord, status)
	}
	return s.updateGoalStatusTx(ctx, s.db, workspaceID, id, status)
}

func (s *SQLiteStorage) updateGoalStatusTx(ctx context.Context, q queryable, workspaceID, id int64, status model.GoalStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE goals SET status = ? WHERE workspace_id = ? AND id = ?`,
		string(status), workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteGoal removes a goal.
func (s *SQLiteStorage) DeleteGoal(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "goal ID"); err != nil {
		return err
	}
	return s.deleteGoalTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteGoalTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM goals WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
