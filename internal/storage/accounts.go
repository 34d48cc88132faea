package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

const accountColumns = `id, workspace_id, name, type, opening_balance,
	COALESCE(credit_limit, 0), COALESCE(statement_day, 0), created_at`

// CreateAccount creates a new account in the workspace carried on the record.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateAccountRecord(account); err != nil {
		return nil, err
	}
	return s.createAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) (*model.Account, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO accounts (workspace_id, name, type, opening_balance, credit_limit, statement_day)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.WorkspaceID, account.Name, string(account.Type), account.OpeningBalance,
		cardLimit(account), cardStatementDay(account))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account %q", common.ErrDuplicateEntry, account.Name)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: workspace %d", common.ErrNotFound, account.WorkspaceID)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account id: %w", err)
	}
	return s.getAccountByIDTx(ctx, q, account.WorkspaceID, id)
}

// GetAccountByName retrieves an account by name within the workspace.
func (s *SQLiteStorage) GetAccountByName(ctx context.Context, workspaceID int64, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getAccountByNameTx(ctx, s.db, workspaceID, name)
}

func (s *SQLiteStorage) getAccountByNameTx(ctx context.Context, q queryable, workspaceID int64, name string) (*model.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE workspace_id = ? AND name = ?`,
		workspaceID, name)
	return scanAccountRow(row)
}

func (s *SQLiteStorage) getAccountByIDTx(ctx context.Context, q queryable, workspaceID, id int64) (*model.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE workspace_id = ? AND id = ?`,
		workspaceID, id)
	return scanAccountRow(row)
}

func scanAccountRow(row *sql.Row) (*model.Account, error) {
	var account model.Account
	var accountType string
	err := row.Scan(&account.ID, &account.WorkspaceID, &account.Name, &accountType,
		&account.OpeningBalance, &account.CreditLimit, &account.StatementDay, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.Type = model.AccountType(accountType)
	return &account, nil
}

// ListAccounts returns all accounts in the workspace ordered by name.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, workspaceID int64) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listAccountsTx(ctx context.Context, q queryable, workspaceID int64) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE workspace_id = ? ORDER BY name ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		var accountType string
		if err := rows.Scan(&account.ID, &account.WorkspaceID, &account.Name, &accountType,
			&account.OpeningBalance, &account.CreditLimit, &account.StatementDay, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Type = model.AccountType(accountType)
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ListAccountBalances returns every account with its derived position.
// Standard accounts report opening balance plus all recorded movements;
// credit cards report remaining credit, with the outstanding debt surfaced
// separately as the amount due.
func (s *SQLiteStorage) ListAccountBalances(ctx context.Context, workspaceID int64) ([]service.AccountBalance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return nil, err
	}
	return s.listAccountBalancesTx(ctx, s.db, workspaceID)
}

func (s *SQLiteStorage) listAccountBalancesTx(ctx context.Context, q queryable, workspaceID int64) ([]service.AccountBalance, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT a.id, a.workspace_id, a.name, a.type, a.opening_balance,
		        COALESCE(a.credit_limit, 0), COALESCE(a.statement_day, 0), a.created_at,
		        CASE
		          WHEN a.type = 'credit_card'
		          THEN COALESCE(a.credit_limit, 0) + a.opening_balance + COALESCE(SUM(t.amount), 0)
		          ELSE a.opening_balance + COALESCE(SUM(t.amount), 0)
		        END AS balance,
		        CASE
		          WHEN a.type = 'credit_card' AND a.opening_balance + COALESCE(SUM(t.amount), 0) < 0
		          THEN -(a.opening_balance + COALESCE(SUM(t.amount), 0))
		          ELSE 0
		        END AS amount_due
		 FROM accounts a
		 LEFT JOIN transactions t ON t.account_id = a.id
		 WHERE a.workspace_id = ?
		 GROUP BY a.id
		 ORDER BY a.name ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var balances []service.AccountBalance
	for rows.Next() {
		var entry service.AccountBalance
		var accountType string
		if err := rows.Scan(&entry.Account.ID, &entry.Account.WorkspaceID, &entry.Account.Name, &accountType,
			&entry.Account.OpeningBalance, &entry.Account.CreditLimit, &entry.Account.StatementDay,
			&entry.Account.CreatedAt, &entry.Balance, &entry.AmountDue); err != nil {
			return nil, fmt.Errorf("failed to scan account balance: %w", err)
		}
		entry.Account.Type = model.AccountType(accountType)
		balances = append(balances, entry)
	}
	return balances, rows.Err()
}

// UpdateAccount updates an existing account's mutable fields.
func (s *SQLiteStorage) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccountRecord(account); err != nil {
		return err
	}
	if err := validateID(account.ID, "account ID"); err != nil {
		return err
	}
	return s.updateAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) updateAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	result, err := q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, opening_balance = ?, credit_limit = ?, statement_day = ?
		 WHERE workspace_id = ? AND id = ?`,
		account.Name, string(account.Type), account.OpeningBalance,
		cardLimit(account), cardStatementDay(account), account.WorkspaceID, account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %q", common.ErrDuplicateEntry, account.Name)
		}
		return fmt.Errorf("failed to update account: %w", err)
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

// DeleteAccount removes an account and, through cascade, all of its
// transactions and planned transactions.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, workspaceID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(id, "account ID"); err != nil {
		return err
	}
	return s.deleteAccountTx(ctx, s.db, workspaceID, id)
}

func (s *SQLiteStorage) deleteAccountTx(ctx context.Context, q queryable, workspaceID, id int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM accounts WHERE workspace_id = ? AND id = ?`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
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

// PayCardStatement records a statement payment as a mirrored transaction
// pair: money leaves the funding account and lands on the card, both under
// the Transfer category so reports ignore the movement.
func (s *SQLiteStorage) PayCardStatement(ctx context.Context, workspaceID int64, payment service.CardPayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWorkspaceID(workspaceID); err != nil {
		return err
	}
	if err := validateID(payment.CardAccountID, "card account ID"); err != nil {
		return err
	}
	if err := validateID(payment.FromAccountID, "funding account ID"); err != nil {
		return err
	}
	if payment.Amount <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", common.ErrInvalidAmount)
	}
	if payment.Date.IsZero() {
		return fmt.Errorf("%w: payment date is required", common.ErrInvalidDate)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.payCardStatementTx(ctx, tx, workspaceID, payment)
	})
}

func (s *SQLiteStorage) payCardStatementTx(ctx context.Context, q queryable, workspaceID int64, payment service.CardPayment) error {
	card, err := s.getAccountByIDTx(ctx, q, workspaceID, payment.CardAccountID)
	if err != nil {
		return fmt.Errorf("failed to load card account: %w", err)
	}
	if card.Type != model.AccountTypeCreditCard {
		return fmt.Errorf("%w: account %q is not a credit card", common.ErrInvalidAccount, card.Name)
	}

	from, err := s.getAccountByIDTx(ctx, q, workspaceID, payment.FromAccountID)
	if err != nil {
		return fmt.Errorf("failed to load funding account: %w", err)
	}
	if from.Type != model.AccountTypeStandard {
		return fmt.Errorf("%w: account %q cannot fund a card payment", common.ErrInvalidAccount, from.Name)
	}

	transfer, err := s.getOrCreateCategoryTx(ctx, q, workspaceID, model.CategoryNameTransfer, model.CategoryKindTransfer)
	if err != nil {
		return err
	}

	date := payment.Date.Format(model.DateLayout)
	description := "Statement payment " + card.Name

	if _, err := q.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		workspaceID, from.ID, transfer.ID, date, -payment.Amount, description); err != nil {
		return fmt.Errorf("failed to record funding leg: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		workspaceID, card.ID, transfer.ID, date, payment.Amount, description); err != nil {
		return fmt.Errorf("failed to record card leg: %w", err)
	}
	return nil
}

// cardLimit returns the stored credit limit, NULL for non-card accounts.
func cardLimit(account *model.Account) any {
	if account.Type != model.AccountTypeCreditCard {
		return nil
	}
	return account.CreditLimit
}

// cardStatementDay returns the stored statement day, NULL for non-card accounts.
func cardStatementDay(account *model.Account) any {
	if account.Type != model.AccountTypeCreditCard {
		return nil
	}
	return account.StatementDay
}
