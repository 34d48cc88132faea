package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// CreatePlannedTransaction stores a one-off expected movement.
func (s *SQLiteStorage) CreatePlannedTransaction(ctx context.Context, planned *model.PlannedTransaction) (*model.PlannedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePlannedRecord(planned); err != nil {
		return nil, err
	}
	return s.createPlannedTransactionTx(ctx, s.db, planned)
}

func (s *SQLiteStorage) createPlannedTransactionTx(ctx context.Context, q queryable, planned *model.PlannedTransaction) (*model.PlannedTransaction, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO planned_transactions (workspace_id, plan_date, description, amount, category_id, account_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		planned.WorkspaceID, planned.Date.Format(model.DateLayout), planned.Description,
		planned.Amount, planned.CategoryID, planned.AccountID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: account or category does not exist", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create planned transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get planned transaction id: %w", err)
	}
	return s.getPlannedTransactionByIDTx(ctx, q, planned.WorkspaceID, id)
}

// GetPlannedTransactionByID retrieves a single outstanding planned
// transaction.
func (s *SQLiteStorage) GetPlannedTransactionByID(ctx context.Context, workspaceID, id int64) (*model.PlannedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateID(id, "planned transaction ID"); err != nil {
		return nil, err
	}
	return s.getPlannedTransactionByIDTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) getPlannedTransactionByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.PlannedTransaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, plan_date, description, amount, category_id, account_id, created_at
		 FROM planned_transactions
		 WHERE workspace_id = ? AND id = ? AND status = 'planned'`,
		workspaceID, id)
	return scanPlannedRow(row)
}

func scanPlannedRow(row *sql.Row) (*model.PlannedTransaction, error) {
	var planned model.PlannedTransaction
	var rawDate string
	err := row.Scan(&planned.ID, &planned.WorkspaceID, &rawDate, &planned.Description,
		&planned.Amount, &planned.CategoryID, &planned.AccountID, &planned.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planned transaction: %w", err)
	}

	planned.Date, err = model.ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: planned transaction %d: %v", common.ErrInvalidDate, planned.ID, err)
	}
	return &planned, nil
}

// ListPlannedTransactions returns outstanding planned transactions with
// category and account names, earliest first.
func (s *SQLiteStorage) ListPlannedTransactions(ctx context.Context, workspaceID int64) ([]service.PlannedDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listPlannedTransactionsTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listPlannedTransactionsTx(ctx context.Context, q queryable, workspaceID int64) ([]service.PlannedDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT p.id, p.workspace_id, p.plan_date, p.description, p.amount,
		        p.category_id, p.account_id, p.created_at, c.name, a.name
		 FROM planned_transactions p
		 JOIN categories c ON c.id = p.category_id
		 JOIN accounts a ON a.id = p.account_id
		 WHERE p.workspace_id = ? AND p.status = 'planned'
		 ORDER BY p.plan_date ASC, p.id ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []service.PlannedDetail
	for rows.Next() {
		var detail service.PlannedDetail
		var rawDate string
		if err := rows.Scan(&detail.Planned.ID, &detail.Planned.WorkspaceID, &rawDate,
			&detail.Planned.Description, &detail.Planned.Amount, &detail.Planned.CategoryID,
			&detail.Planned.AccountID, &detail.Planned.CreatedAt,
			&detail.CategoryName, &detail.AccountName); err != nil {
			return nil, fmt.Errorf("failed to scan planned transaction: %w", err)
		}
		detail.Planned.Date, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping planned transaction with unparseable date",
				"planned_id", detail.Planned.ID, "date", rawDate)
			continue
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// PlannedEventsInRange returns outstanding planned movements on standard
// accounts between start and end inclusive, as cash events for projection.
func (s *SQLiteStorage) PlannedEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.plannedEventsInRangeTx(ctx, s.db, workspaceID, start, end, accountID)
}

func (s *SQLiteStorage) plannedEventsInRangeTx(ctx context.Context, q queryable, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	query := `
		SELECT p.plan_date, p.amount, p.description, p.category_id, c.name, p.account_id
		FROM planned_transactions p
		JOIN categories c ON c.id = p.category_id
		JOIN accounts a ON a.id = p.account_id
		WHERE p.workspace_id = ? AND p.status = 'planned' AND a.type = 'standard'
		  AND p.plan_date >= ? AND p.plan_date <= ?`
	args := []any{workspaceID, start.Format(model.DateLayout), end.Format(model.DateLayout)}
	if accountID > 0 {
		query += ` AND p.account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY p.plan_date ASC, p.id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planned events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.CashEvent
	for rows.Next() {
		var event model.CashEvent
		var rawDate string
		if err := rows.Scan(&rawDate, &event.Amount, &event.Description,
			&event.CategoryID, &event.CategoryName, &event.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan planned event: %w", err)
		}
		event.Date, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping planned event with unparseable date", "date", rawDate)
			continue
		}
		event.Source = model.EventSourcePlanned
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeletePlannedTransaction removes an outstanding planned transaction.
// Reconciliation uses this once a real movement has covered the plan.
func (s *SQLiteStorage) DeletePlannedTransaction(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "planned transaction ID"); err != nil {
		return err
	}
	return s.deletePlannedTransactionTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deletePlannedTransactionTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM planned_transactions WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete planned transaction: %w", err)
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

// FindBestPlannedMatch returns the outstanding planned transaction that best
// matches a real movement, or nil when nothing plausible exists. A candidate
// must fall within dayTolerance days of the movement and within
// amountTolerance of its own planned amount; ties resolve by smaller amount
// difference, then by date proximity.
func (s *SQLiteStorage) FindBestPlannedMatch(ctx context.Context, workspaceID int64, date time.Time, amount float64, dayTolerance int, amountTolerance float64) (*model.PlannedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if dayTolerance < 0 || amountTolerance < 0 {
		return nil, fmt.Errorf("%w: tolerances must not be negative", ErrInvalidRecord)
	}
	return s.findBestPlannedMatchTx(ctx, s.db, workspaceID, date, amount, dayTolerance, amountTolerance)
}

func (s *SQLiteStorage) findBestPlannedMatchTx(ctx context.Context, q queryable, workspaceID int64, date time.Time, amount float64, dayTolerance int, amountTolerance float64) (*model.PlannedTransaction, error) {
	day := model.Day(date)
	windowStart := day.AddDate(0, 0, -dayTolerance).Format(model.DateLayout)
	windowEnd := day.AddDate(0, 0, dayTolerance).Format(model.DateLayout)
	target := day.Format(model.DateLayout)

	row := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, plan_date, description, amount, category_id, account_id, created_at
		 FROM planned_transactions
		 WHERE workspace_id = ? AND status = 'planned'
		   AND plan_date >= ? AND plan_date <= ?
		   AND ABS(amount - ?) <= ? * ABS(amount)
		 ORDER BY ABS(amount - ?) ASC,
		          ABS(julianday(plan_date) - julianday(?)) ASC,
		          id ASC
		 LIMIT 1`,
		workspaceID, windowStart, windowEnd, amount, amountTolerance, amount, target)

	planned, err := scanPlannedRow(row)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return planned, nil
}
