package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// UpsertBudget creates or replaces the cap for one category, month and
// account scope. A zero AccountID stores the all-accounts cap.
//
// The write is an explicit update-then-insert: the natural key includes a
// nullable account column, and SQLite treats NULLs as distinct in unique
// indexes, so ON CONFLICT would keep stacking all-accounts rows instead of
// replacing them.
func (s *SQLiteStorage) UpsertBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudgetRecord(budget); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.upsertBudgetTx(ctx, tx, budget)
	})
}

func (s *SQLiteStorage) upsertBudgetTx(ctx context.Context, q queryable, budget *model.Budget) error {
	var accountID any
	if budget.AccountID > 0 {
		accountID = budget.AccountID
	}

	result, err := q.ExecContext(ctx,
		`UPDATE budgets SET amount = ?
		 WHERE workspace_id = ? AND year = ? AND month = ? AND category_id = ? AND account_id IS ?`,
		budget.Amount, budget.WorkspaceID, budget.Year, int(budget.Month), budget.CategoryID, accountID)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO budgets (workspace_id, year, month, category_id, account_id, amount)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		budget.WorkspaceID, budget.Year, int(budget.Month), budget.CategoryID, accountID, budget.Amount); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: category or account does not exist", common.ErrNotFound)
		}
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// ListBudgetsByYear returns all caps for a year with names joined, ordered
// by month then category.
func (s *SQLiteStorage) ListBudgetsByYear(ctx context.Context, workspaceID int64, year int) ([]service.BudgetDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listBudgetsByYearTx(ctx, s.db, workspaceID, year)
}

func (s *SQLiteStorage) listBudgetsByYearTx(ctx context.Context, q queryable, workspaceID int64, year int) ([]service.BudgetDetail, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT b.id, b.workspace_id, b.year, b.month, b.category_id, b.account_id, b.amount, b.created_at,
		        c.name, a.name
		 FROM budgets b
		 JOIN categories c ON c.id = b.category_id
		 LEFT JOIN accounts a ON a.id = b.account_id
		 WHERE b.workspace_id = ? AND b.year = ?
		 ORDER BY b.month ASC, c.name ASC, a.name ASC`,
		workspaceID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []service.BudgetDetail
	for rows.Next() {
		var detail service.BudgetDetail
		var month int
		var accountID sql.NullInt64
		var accountName sql.NullString
		if err := rows.Scan(&detail.Budget.ID, &detail.Budget.WorkspaceID, &detail.Budget.Year,
			&month, &detail.Budget.CategoryID, &accountID, &detail.Budget.Amount,
			&detail.Budget.CreatedAt, &detail.CategoryName, &accountName); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		detail.Budget.Month = time.Month(month)
		if accountID.Valid {
			detail.Budget.AccountID = accountID.Int64
		}
		if accountName.Valid {
			detail.AccountName = accountName.String
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// BudgetActualsByYear returns observed spending for the year keyed by month,
// category and account name. Each month and category also gets an
// all-accounts rollup under an empty account name, matching the scope of
// budgets that apply across accounts.
func (s *SQLiteStorage) BudgetActualsByYear(ctx context.Context, workspaceID int64, year int) (map[service.BudgetActualKey]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.budgetActualsByYearTx(ctx, s.db, workspaceID, year)
}

func (s *SQLiteStorage) budgetActualsByYearTx(ctx context.Context, q queryable, workspaceID int64, year int) (map[service.BudgetActualKey]float64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT CAST(strftime('%m', t.tx_date) AS INTEGER) AS month, c.name, a.name, SUM(ABS(t.amount))
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.workspace_id = ? AND strftime('%Y', t.tx_date) = ? AND t.amount < 0
		 GROUP BY month, c.name, a.name`,
		workspaceID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("failed to query budget actuals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actuals := make(map[service.BudgetActualKey]float64)
	for rows.Next() {
		var month int
		var categoryName, accountName string
		var total float64
		if err := rows.Scan(&month, &categoryName, &accountName, &total); err != nil {
			return nil, fmt.Errorf("failed to scan budget actual: %w", err)
		}

		perAccount := service.BudgetActualKey{
			CategoryName: categoryName,
			AccountName:  accountName,
			Month:        time.Month(month),
		}
		actuals[perAccount] += total

		rollup := perAccount
		rollup.AccountName = ""
		actuals[rollup] += total
	}
	return actuals, rows.Err()
}

// DeleteBudget removes one budget row.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "budget ID"); err != nil {
		return err
	}
	return s.deleteBudgetTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteBudgetTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM budgets WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
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
