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
)

// CreateDebt stores an informal debt with another person.
func (s *SQLiteStorage) CreateDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDebtRecord(debt); err != nil {
		return nil, err
	}
	return s.createDebtTx(ctx, s.db, debt)
}

func (s *SQLiteStorage) createDebtTx(ctx context.Context, q queryable, debt *model.Debt) (*model.Debt, error) {
	status := debt.Status
	if status == "" {
		status = model.DebtStatusOutstanding
	}

	var dueDate any
	if !debt.DueDate.IsZero() {
		dueDate = debt.DueDate.Format(model.DateLayout)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO debts (workspace_id, person, amount, type, due_date, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		debt.WorkspaceID, debt.Person, debt.Amount, string(debt.Type), dueDate, string(status))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: workspace %d", common.ErrNotFound, debt.WorkspaceID)
		}
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get debt id: %w", err)
	}
	return s.getDebtByIDTx(ctx, q, debt.WorkspaceID, id)
}

func (s *SQLiteStorage) getDebtByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.Debt, error) {
	var debt model.Debt
	var debtType, status string
	var dueDate sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, person, amount, type, due_date, status, created_at
		 FROM debts WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	).Scan(&debt.ID, &debt.WorkspaceID, &debt.Person, &debt.Amount,
		&debtType, &dueDate, &status, &debt.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	debt.Type = model.DebtType(debtType)
	debt.Status = model.DebtStatus(status)
	if dueDate.Valid && dueDate.String != "" {
		if parsed, parseErr := model.ParseDate(dueDate.String); parseErr == nil {
			debt.DueDate = parsed
		} else {
			slog.Warn("ignoring unparseable debt due date", "debt_id", debt.ID, "date", dueDate.String)
		}
	}
	return &debt, nil
}

// ListDebts returns debts filtered by status, soonest due first. An empty
// status returns all debts.
func (s *SQLiteStorage) ListDebts(ctx context.Context, workspaceID int64, status model.DebtStatus) ([]model.Debt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listDebtsTx(ctx, s.db, workspaceID, status)
}

func (s *SQLiteStorage) listDebtsTx(ctx context.Context, q queryable, workspaceID int64, status model.DebtStatus) ([]model.Debt, error) {
	query := `SELECT id, workspace_id, person, amount, type, due_date, status, created_at
		 FROM debts WHERE workspace_id = ?`
	args := []any{workspaceID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var debts []model.Debt
	for rows.Next() {
		var debt model.Debt
		var debtType, debtStatus string
		var dueDate sql.NullString
		if err := rows.Scan(&debt.ID, &debt.WorkspaceID, &debt.Person, &debt.Amount,
			&debtType, &dueDate, &debtStatus, &debt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debt.Type = model.DebtType(debtType)
		debt.Status = model.DebtStatus(debtStatus)
		if dueDate.Valid && dueDate.String != "" {
			if parsed, parseErr := model.ParseDate(dueDate.String); parseErr == nil {
				debt.DueDate = parsed
			} else {
				slog.Warn("ignoring unparseable debt due date", "debt_id", debt.ID, "date", dueDate.String)
			}
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

// SettleDebt closes an outstanding debt and records the settlement movement
// on the chosen account in the same transaction. Lent money comes back as a
// loan repayment; borrowed money goes out as a debt payment.
func (s *SQLiteStorage) SettleDebt(ctx context.Context, workspaceID, debtID, accountID int64, settledOn time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(debtID, "debt ID"); err != nil {
		return err
	}
	if err := validateID(accountID, "account ID"); err != nil {
		return err
	}
	if settledOn.IsZero() {
		return fmt.Errorf("%w: settlement date is required", common.ErrInvalidDate)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.settleDebtTx(ctx, tx, workspaceID, debtID, accountID, settledOn)
	})
}

func (s *SQLiteStorage) settleDebtTx(ctx context.Context, q queryable, workspaceID, debtID, accountID int64, settledOn time.Time) error {
	// Load inside the transaction so a concurrent settle cannot double-pay.
	debt, err := s.getDebtByIDTx(ctx, q, workspaceID, debtID)
	if err != nil {
		return err
	}
	if debt.Status != model.DebtStatusOutstanding {
		return fmt.Errorf("%w: debt already settled", common.ErrNotFound)
	}

	if _, err := s.getAccountByIDTx(ctx, q, workspaceID, accountID); err != nil {
		return fmt.Errorf("failed to load settlement account: %w", err)
	}

	categoryName := model.CategoryNameLoanRepayment
	categoryKind := model.CategoryKindIncome
	description := "Repayment from " + debt.Person
	if debt.Type == model.DebtTypeBorrowed {
		categoryName = model.CategoryNameDebtPayment
		categoryKind = model.CategoryKindExpense
		description = "Payment to " + debt.Person
	}

	category, err := s.getOrCreateCategoryTx(ctx, q, workspaceID, categoryName, categoryKind)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		workspaceID, accountID, category.ID, settledOn.Format(model.DateLayout),
		debt.SettlementAmount(), description); err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE debts SET status = ? WHERE workspace_id = ? AND id = ?`,
		string(model.DebtStatusSettled), workspaceID, debtID); err != nil {
		return fmt.Errorf("failed to mark debt settled: %w", err)
	}
	return nil
}

// DeleteDebt removes a debt without recording any movement.
func (s *SQLiteStorage) DeleteDebt(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "debt ID"); err != nil {
		return err
	}
	return s.deleteDebtTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteDebtTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM debts WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
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
