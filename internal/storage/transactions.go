package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// CreateTransaction records a single money movement.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransactionRecord(txn); err != nil {
		return nil, err
	}
	return s.createTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) createTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) (*model.Transaction, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		txn.WorkspaceID, txn.AccountID, txn.CategoryID,
		txn.Date.Format(model.DateLayout), txn.Amount, txn.Description)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: account or category does not exist", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction id: %w", err)
	}
	return s.getTransactionByIDTx(ctx, q, txn.WorkspaceID, id)
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, workspaceID, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateID(id, "transaction ID"); err != nil {
		return nil, err
	}
	return s.getTransactionByIDTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) getTransactionByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	var rawDate string
	err := q.QueryRowContext(ctx,
		`SELECT id, workspace_id, account_id, category_id, tx_date, amount, description, created_at
		 FROM transactions WHERE workspace_id = ? AND id = ?`,
		workspaceID, id,
	).Scan(&txn.ID, &txn.WorkspaceID, &txn.AccountID, &txn.CategoryID,
		&rawDate, &txn.Amount, &txn.Description, &txn.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.Date, err = model.ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %d: %v", common.ErrInvalidDate, id, err)
	}
	return &txn, nil
}

// ListTransactions returns transactions with category and account names,
// newest first, honoring the filter.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, workspaceID int64, filter service.TransactionFilter) ([]model.TransactionDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		if err := validateDateRange(*filter.StartDate, *filter.EndDate); err != nil {
			return nil, err
		}
	}
	return s.listTransactionsTx(ctx, s.db, workspaceID, filter)
}

func (s *SQLiteStorage) listTransactionsTx(ctx context.Context, q queryable, workspaceID int64, filter service.TransactionFilter) ([]model.TransactionDetail, error) {
	query := `
		SELECT t.id, t.tx_date, t.amount, t.description,
		       t.category_id, c.name, c.type,
		       t.account_id, a.name
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		JOIN accounts a ON a.id = t.account_id
		WHERE t.workspace_id = ?`
	args := []any{workspaceID}

	if filter.StartDate != nil {
		query += ` AND t.tx_date >= ?`
		args = append(args, filter.StartDate.Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		query += ` AND t.tx_date <= ?`
		args = append(args, filter.EndDate.Format(model.DateLayout))
	}
	if filter.AccountID > 0 {
		query += ` AND t.account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.CategoryID > 0 {
		query += ` AND t.category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if strings.TrimSpace(filter.Search) != "" {
		query += ` AND t.description LIKE ?`
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	query += ` ORDER BY t.tx_date DESC, t.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []model.TransactionDetail
	for rows.Next() {
		var detail model.TransactionDetail
		var rawDate, kind string
		if err := rows.Scan(&detail.ID, &rawDate, &detail.Amount, &detail.Description,
			&detail.CategoryID, &detail.CategoryName, &kind,
			&detail.AccountID, &detail.AccountName); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		detail.Date, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping transaction with unparseable date",
				"transaction_id", detail.ID, "date", rawDate)
			continue
		}
		detail.CategoryKind = model.CategoryKind(kind)
		details = append(details, detail)
	}
	return details, rows.Err()
}

// ListTransactionDetails returns every transaction in the workspace with
// names joined, newest first. Recurrence inference consumes this shape.
func (s *SQLiteStorage) ListTransactionDetails(ctx context.Context, workspaceID int64) ([]model.TransactionDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listTransactionDetailsTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listTransactionDetailsTx(ctx context.Context, q queryable, workspaceID int64) ([]model.TransactionDetail, error) {
	return s.listTransactionsTx(ctx, q, workspaceID, service.TransactionFilter{})
}

// ListTrainingSamples returns description and category name pairs for
// classifier training. Rows with blank descriptions carry no signal and are
// excluded.
func (s *SQLiteStorage) ListTrainingSamples(ctx context.Context, workspaceID int64) ([]service.LabeledDescription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listTrainingSamplesTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listTrainingSamplesTx(ctx context.Context, q queryable, workspaceID int64) ([]service.LabeledDescription, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.description, c.name
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.workspace_id = ? AND TRIM(t.description) != ''
		 ORDER BY t.id ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list training samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []service.LabeledDescription
	for rows.Next() {
		var sample service.LabeledDescription
		if err := rows.Scan(&sample.Description, &sample.Category); err != nil {
			return nil, fmt.Errorf("failed to scan training sample: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// UpdateTransaction rewrites all mutable fields of a transaction.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactionRecord(txn); err != nil {
		return err
	}
	if err := validateID(txn.ID, "transaction ID"); err != nil {
		return err
	}
	return s.updateTransactionTx(ctx, s.db, txn)
}

func (s *SQLiteStorage) updateTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	result, err := q.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, category_id = ?, tx_date = ?, amount = ?, description = ?
		 WHERE workspace_id = ? AND id = ?`,
		txn.AccountID, txn.CategoryID, txn.Date.Format(model.DateLayout),
		txn.Amount, txn.Description, txn.WorkspaceID, txn.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: account or category does not exist", common.ErrNotFound)
		}
		return fmt.Errorf("failed to update transaction: %w", err)
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

// DeleteTransaction removes a single transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "transaction ID"); err != nil {
		return err
	}
	return s.deleteTransactionTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteTransactionTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM transactions WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
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

// DeleteTransactions removes a batch of transactions and reports how many
// rows actually went away. Unknown ids are ignored.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, workspaceID int64, ids []int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.deleteTransactionsTx(ctx, s.db, workspaceID, ids)
}

func (s *SQLiteStorage) deleteTransactionsTx(ctx context.Context, q queryable, workspaceID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, workspaceID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM transactions WHERE workspace_id = ? AND id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected, nil
}

// ReassignTransactions moves a batch of transactions onto a different
// category, account, or both. Zero ids leave that side untouched.
func (s *SQLiteStorage) ReassignTransactions(ctx context.Context, workspaceID int64, ids []int64, categoryID, accountID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if categoryID <= 0 && accountID <= 0 {
		return fmt.Errorf("%w: nothing to reassign", ErrInvalidRecord)
	}
	return s.reassignTransactionsTx(ctx, s.db, workspaceID, ids, categoryID, accountID)
}

func (s *SQLiteStorage) reassignTransactionsTx(ctx context.Context, q queryable, workspaceID int64, ids []int64, categoryID, accountID int64) error {
	if len(ids) == 0 {
		return nil
	}

	var sets []string
	args := []any{}
	if categoryID > 0 {
		sets = append(sets, "category_id = ?")
		args = append(args, categoryID)
	}
	if accountID > 0 {
		sets = append(sets, "account_id = ?")
		args = append(args, accountID)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: nothing to reassign", ErrInvalidRecord)
	}

	placeholders := make([]string, len(ids))
	args = append(args, workspaceID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	_, err := q.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+
			` WHERE workspace_id = ? AND id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: target category or account does not exist", common.ErrNotFound)
		}
		return fmt.Errorf("failed to reassign transactions: %w", err)
	}
	return nil
}

// TransactionEventsInRange returns recorded movements on standard accounts
// between start and end inclusive, as cash events ready for projection.
// Card accounts never feed the forecast.
func (s *SQLiteStorage) TransactionEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return s.transactionEventsInRangeTx(ctx, s.db, workspaceID, start, end, accountID)
}

func (s *SQLiteStorage) transactionEventsInRangeTx(ctx context.Context, q queryable, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	query := `
		SELECT t.tx_date, t.amount, t.description, t.category_id, c.name, t.account_id
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		JOIN accounts a ON a.id = t.account_id
		WHERE t.workspace_id = ? AND a.type = 'standard'
		  AND t.tx_date >= ? AND t.tx_date <= ?`
	args := []any{workspaceID, start.Format(model.DateLayout), end.Format(model.DateLayout)}
	if accountID > 0 {
		query += ` AND t.account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY t.tx_date ASC, t.id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.CashEvent
	for rows.Next() {
		var event model.CashEvent
		var rawDate string
		if err := rows.Scan(&rawDate, &event.Amount, &event.Description,
			&event.CategoryID, &event.CategoryName, &event.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction event: %w", err)
		}
		event.Date, err = model.ParseDate(rawDate)
		if err != nil {
			slog.Warn("skipping transaction event with unparseable date", "date", rawDate)
			continue
		}
		event.Source = model.EventSourceActual
		events = append(events, event)
	}
	return events, rows.Err()
}

// SumTransactionsBefore totals all recorded movements on standard accounts
// strictly before the cutoff date.
func (s *SQLiteStorage) SumTransactionsBefore(ctx context.Context, workspaceID int64, cutoff time.Time, accountID int64) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return 0, err
	}
	return s.sumTransactionsBeforeTx(ctx, s.db, workspaceID, cutoff, accountID)
}

func (s *SQLiteStorage) sumTransactionsBeforeTx(ctx context.Context, q queryable, workspaceID int64, cutoff time.Time, accountID int64) (float64, error) {
	query := `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.workspace_id = ? AND a.type = 'standard' AND t.tx_date < ?`
	args := []any{workspaceID, cutoff.Format(model.DateLayout)}
	if accountID > 0 {
		query += ` AND t.account_id = ?`
		args = append(args, accountID)
	}

	var total float64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

// SumOpeningBalances totals the opening balances of standard accounts.
func (s *SQLiteStorage) SumOpeningBalances(ctx context.Context, workspaceID int64, accountID int64) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return 0, err
	}
	return s.sumOpeningBalancesTx(ctx, s.db, workspaceID, accountID)
}

func (s *SQLiteStorage) sumOpeningBalancesTx(ctx context.Context, q queryable, workspaceID int64, accountID int64) (float64, error) {
	query := `SELECT COALESCE(SUM(opening_balance), 0) FROM accounts WHERE workspace_id = ? AND type = 'standard'`
	args := []any{workspaceID}
	if accountID > 0 {
		query += ` AND id = ?`
		args = append(args, accountID)
	}

	var total float64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum opening balances: %w", err)
	}
	return total, nil
}
