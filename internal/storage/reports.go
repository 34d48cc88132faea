package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// GetMonthlySummary aggregates recorded income and expenses per calendar
// month. Direction comes from the category kind, not the amount sign, so a
// refund on an expense category reduces spending instead of counting as
// income. Transfers are internal movements and never appear.
func (s *SQLiteStorage) GetMonthlySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]service.MonthlyFlow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.getMonthlySummaryTx(ctx, s.db, workspaceID, start, end, accountID)
}

func (s *SQLiteStorage) getMonthlySummaryTx(ctx context.Context, q queryable, workspaceID int64, start, end time.Time, accountID int64) ([]service.MonthlyFlow, error) {
	query := `
		SELECT CAST(strftime('%Y', t.tx_date) AS INTEGER) AS year,
		       CAST(strftime('%m', t.tx_date) AS INTEGER) AS month,
		       COALESCE(SUM(CASE WHEN c.type = 'income' THEN t.amount ELSE 0 END), 0) AS income,
		       COALESCE(SUM(CASE WHEN c.type = 'expense' THEN t.amount ELSE 0 END), 0) AS expenses
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.workspace_id = ? AND c.type != 'transfer'
		  AND t.tx_date >= ? AND t.tx_date <= ?`
	args := []any{workspaceID, start.Format(model.DateLayout), end.Format(model.DateLayout)}
	if accountID > 0 {
		query += ` AND t.account_id = ?`
		args = append(args, accountID)
	}
	query += ` GROUP BY year, month ORDER BY year ASC, month ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var flows []service.MonthlyFlow
	for rows.Next() {
		var flow service.MonthlyFlow
		var month int
		if err := rows.Scan(&flow.Year, &month, &flow.Income, &flow.Expenses); err != nil {
			return nil, fmt.Errorf("failed to scan monthly summary: %w", err)
		}
		flow.Month = time.Month(month)
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

// GetCategorySummary returns absolute spending totals per expense category
// in the range, largest first.
func (s *SQLiteStorage) GetCategorySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]service.CategoryTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.getCategorySummaryTx(ctx, s.db, workspaceID, start, end, accountID)
}

func (s *SQLiteStorage) getCategorySummaryTx(ctx context.Context, q queryable, workspaceID int64, start, end time.Time, accountID int64) ([]service.CategoryTotal, error) {
	query := `
		SELECT c.name, SUM(ABS(t.amount)) AS total
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.workspace_id = ? AND c.type = 'expense' AND t.amount < 0
		  AND t.tx_date >= ? AND t.tx_date <= ?`
	args := []any{workspaceID, start.Format(model.DateLayout), end.Format(model.DateLayout)}
	if accountID > 0 {
		query += ` AND t.account_id = ?`
		args = append(args, accountID)
	}
	query += ` GROUP BY c.name ORDER BY total DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []service.CategoryTotal
	for rows.Next() {
		var total service.CategoryTotal
		if err := rows.Scan(&total.Category, &total.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category summary: %w", err)
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// GetCategoryTrend returns the monthly absolute spending series for one
// category across the range.
func (s *SQLiteStorage) GetCategoryTrend(ctx context.Context, workspaceID, categoryID int64, start, end time.Time) ([]service.MonthlyAmount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateID(categoryID, "category ID"); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.getCategoryTrendTx(ctx, s.db, workspaceID, categoryID, start, end)
}

func (s *SQLiteStorage) getCategoryTrendTx(ctx context.Context, q queryable, workspaceID, categoryID int64, start, end time.Time) ([]service.MonthlyAmount, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', t.tx_date) AS INTEGER) AS year,
		        CAST(strftime('%m', t.tx_date) AS INTEGER) AS month,
		        SUM(ABS(t.amount)) AS total
		 FROM transactions t
		 WHERE t.workspace_id = ? AND t.category_id = ? AND t.amount < 0
		   AND t.tx_date >= ? AND t.tx_date <= ?
		 GROUP BY year, month
		 ORDER BY year ASC, month ASC`,
		workspaceID, categoryID, start.Format(model.DateLayout), end.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query category trend: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var series []service.MonthlyAmount
	for rows.Next() {
		var point service.MonthlyAmount
		var month int
		if err := rows.Scan(&point.Year, &month, &point.Total); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		point.Month = time.Month(month)
		series = append(series, point)
	}
	return series, rows.Err()
}

// GetNetWorth computes the workspace's net position: liquid cash on
// standard accounts, minus card debt, minus money still owed to other
// people. Money lent out is deliberately left uncounted until it comes back.
func (s *SQLiteStorage) GetNetWorth(ctx context.Context, workspaceID int64) (*service.NetWorthSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.getNetWorthTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) getNetWorthTx(ctx context.Context, q queryable, workspaceID int64) (*service.NetWorthSummary, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT a.type, a.opening_balance + COALESCE(SUM(t.amount), 0) AS balance
		 FROM accounts a
		 LEFT JOIN transactions t ON t.account_id = a.id
		 WHERE a.workspace_id = ?
		 GROUP BY a.id`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summary service.NetWorthSummary
	for rows.Next() {
		var accountType string
		var balance float64
		if err := rows.Scan(&accountType, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan account balance: %w", err)
		}
		switch model.AccountType(accountType) {
		case model.AccountTypeStandard:
			summary.Liquidity += balance
		case model.AccountTypeCreditCard:
			if balance < 0 {
				summary.CardDebt += balance
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM debts
		 WHERE workspace_id = ? AND type = 'borrowed' AND status = 'outstanding'`,
		workspaceID,
	).Scan(&summary.Borrowed); err != nil {
		return nil, fmt.Errorf("failed to sum outstanding debts: %w", err)
	}

	summary.Total = summary.Liquidity + summary.CardDebt - summary.Borrowed
	return &summary, nil
}
