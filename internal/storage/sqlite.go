package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// Compile-time interface checks.
var (
	_ service.Storage     = (*SQLiteStorage)(nil)
	_ service.Transaction = (*sqliteTransaction)(nil)
)

// queryable abstracts over *sql.DB and *sql.Tx so entity queries can run
// both standalone and inside a transaction.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// withTx runs fn inside a fresh transaction and commits on success.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is a SQLite unique constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// isForeignKeyViolation reports whether err is a SQLite foreign key failure,
// covering both missing referenced rows and RESTRICT deletions.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Data methods delegate to the main storage with the transaction bound.

func (t *sqliteTransaction) CreateWorkspace(ctx context.Context, name string) (*model.Workspace, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createWorkspaceTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetWorkspaceByName(ctx context.Context, name string) (*model.Workspace, error) {
	return t.storage.getWorkspaceByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return t.storage.listWorkspacesTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	if err := validateAccountRecord(account); err != nil {
		return nil, err
	}
	return t.storage.createAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccountByName(ctx context.Context, workspaceID int64, name string) (*model.Account, error) {
	return t.storage.getAccountByNameTx(ctx, t.tx, workspaceID, name)
}

func (t *sqliteTransaction) ListAccounts(ctx context.Context, workspaceID int64) ([]model.Account, error) {
	return t.storage.listAccountsTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) ListAccountBalances(ctx context.Context, workspaceID int64) ([]service.AccountBalance, error) {
	return t.storage.listAccountBalancesTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateAccountRecord(account); err != nil {
		return err
	}
	return t.storage.updateAccountTx(ctx, t.tx, account)
}

func (t *sqliteTransaction) DeleteAccount(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteAccountTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) PayCardStatement(ctx context.Context, workspaceID int64, payment service.CardPayment) error {
	return t.storage.payCardStatementTx(ctx, t.tx, workspaceID, payment)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createCategoryTx(ctx, t.tx, workspaceID, name, kind)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, workspaceID int64, name string) (*model.Category, error) {
	return t.storage.getCategoryByNameTx(ctx, t.tx, workspaceID, name)
}

func (t *sqliteTransaction) GetOrCreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error) {
	return t.storage.getOrCreateCategoryTx(ctx, t.tx, workspaceID, name, kind)
}

func (t *sqliteTransaction) ListCategories(ctx context.Context, workspaceID int64) ([]model.Category, error) {
	return t.storage.listCategoriesTx(ctx, t.tx, workspaceID, "")
}

func (t *sqliteTransaction) ListCategoriesByKind(ctx context.Context, workspaceID int64, kind model.CategoryKind) ([]model.Category, error) {
	return t.storage.listCategoriesTx(ctx, t.tx, workspaceID, kind)
}

func (t *sqliteTransaction) UpdateCategory(ctx context.Context, workspaceID, id int64, name string, kind model.CategoryKind) error {
	return t.storage.updateCategoryTx(ctx, t.tx, workspaceID, id, name, kind)
}

func (t *sqliteTransaction) DeleteCategory(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteCategoryTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) DeleteUnusedCategories(ctx context.Context, workspaceID int64) (int64, error) {
	return t.storage.deleteUnusedCategoriesTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) CreateTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if err := validateTransactionRecord(txn); err != nil {
		return nil, err
	}
	return t.storage.createTransactionTx(ctx, t.tx, txn)
}

func (t *sqliteTransaction) GetTransactionByID(ctx context.Context, workspaceID, id int64) (*model.Transaction, error) {
	return t.storage.getTransactionByIDTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) ListTransactions(ctx context.Context, workspaceID int64, filter service.TransactionFilter) ([]model.TransactionDetail, error) {
	return t.storage.listTransactionsTx(ctx, t.tx, workspaceID, filter)
}

func (t *sqliteTransaction) ListTransactionDetails(ctx context.Context, workspaceID int64) ([]model.TransactionDetail, error) {
	return t.storage.listTransactionDetailsTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) ListTrainingSamples(ctx context.Context, workspaceID int64) ([]service.LabeledDescription, error) {
	return t.storage.listTrainingSamplesTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransactionRecord(txn); err != nil {
		return err
	}
	return t.storage.updateTransactionTx(ctx, t.tx, txn)
}

func (t *sqliteTransaction) DeleteTransaction(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteTransactionTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) DeleteTransactions(ctx context.Context, workspaceID int64, ids []int64) (int64, error) {
	return t.storage.deleteTransactionsTx(ctx, t.tx, workspaceID, ids)
}

func (t *sqliteTransaction) ReassignTransactions(ctx context.Context, workspaceID int64, ids []int64, categoryID, accountID int64) error {
	return t.storage.reassignTransactionsTx(ctx, t.tx, workspaceID, ids, categoryID, accountID)
}

func (t *sqliteTransaction) TransactionEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	return t.storage.transactionEventsInRangeTx(ctx, t.tx, workspaceID, start, end, accountID)
}

func (t *sqliteTransaction) SumTransactionsBefore(ctx context.Context, workspaceID int64, cutoff time.Time, accountID int64) (float64, error) {
	return t.storage.sumTransactionsBeforeTx(ctx, t.tx, workspaceID, cutoff, accountID)
}

func (t *sqliteTransaction) SumOpeningBalances(ctx context.Context, workspaceID int64, accountID int64) (float64, error) {
	return t.storage.sumOpeningBalancesTx(ctx, t.tx, workspaceID, accountID)
}

func (t *sqliteTransaction) CreateRecurringRule(ctx context.Context, rule *model.RecurringRule) (*model.RecurringRule, error) {
	if err := validateRecurringRecord(rule); err != nil {
		return nil, err
	}
	return t.storage.createRecurringRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) FindRecurringRule(ctx context.Context, workspaceID int64, name string, interval model.RecurrenceInterval, categoryID, accountID int64) (*model.RecurringRule, error) {
	return t.storage.findRecurringRuleTx(ctx, t.tx, workspaceID, name, interval, categoryID, accountID)
}

func (t *sqliteTransaction) ListRecurringRules(ctx context.Context, workspaceID int64) ([]service.RecurringRuleDetail, error) {
	return t.storage.listRecurringRulesTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) ListProjectableRules(ctx context.Context, workspaceID int64, accountID int64) ([]model.RecurringRule, error) {
	return t.storage.listProjectableRulesTx(ctx, t.tx, workspaceID, accountID)
}

func (t *sqliteTransaction) DeleteRecurringRule(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteRecurringRuleTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) CreatePlannedTransaction(ctx context.Context, planned *model.PlannedTransaction) (*model.PlannedTransaction, error) {
	if err := validatePlannedRecord(planned); err != nil {
		return nil, err
	}
	return t.storage.createPlannedTransactionTx(ctx, t.tx, planned)
}

func (t *sqliteTransaction) GetPlannedTransactionByID(ctx context.Context, workspaceID, id int64) (*model.PlannedTransaction, error) {
	return t.storage.getPlannedTransactionByIDTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) ListPlannedTransactions(ctx context.Context, workspaceID int64) ([]service.PlannedDetail, error) {
	return t.storage.listPlannedTransactionsTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) PlannedEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	return t.storage.plannedEventsInRangeTx(ctx, t.tx, workspaceID, start, end, accountID)
}

func (t *sqliteTransaction) DeletePlannedTransaction(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deletePlannedTransactionTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) FindBestPlannedMatch(ctx context.Context, workspaceID int64, date time.Time, amount float64, dayTolerance int, amountTolerance float64) (*model.PlannedTransaction, error) {
	return t.storage.findBestPlannedMatchTx(ctx, t.tx, workspaceID, date, amount, dayTolerance, amountTolerance)
}

func (t *sqliteTransaction) CreateGoal(ctx context.Context, goal *model.Goal) (*model.Goal, error) {
	if err := validateGoalRecord(goal); err != nil {
		return nil, err
	}
	return t.storage.createGoalTx(ctx, t.tx, goal)
}

func (t *sqliteTransaction) ListGoals(ctx context.Context, workspaceID int64, status model.GoalStatus) ([]model.Goal, error) {
	return t.storage.listGoalsTx(ctx, t.tx, workspaceID, status)
}

func (t *sqliteTransaction) UpdateGoalStatus(ctx context.Context, workspaceID, id int64, status model.GoalStatus) error {
	return t.storage.updateGoalStatusTx(ctx, t.tx, workspaceID, id, status)
}

func (t *sqliteTransaction) DeleteGoal(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteGoalTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) CreateDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	if err := validateDebtRecord(debt); err != nil {
		return nil, err
	}
	return t.storage.createDebtTx(ctx, t.tx, debt)
}

func (t *sqliteTransaction) ListDebts(ctx context.Context, workspaceID int64, status model.DebtStatus) ([]model.Debt, error) {
	return t.storage.listDebtsTx(ctx, t.tx, workspaceID, status)
}

func (t *sqliteTransaction) SettleDebt(ctx context.Context, workspaceID, debtID, accountID int64, settledOn time.Time) error {
	return t.storage.settleDebtTx(ctx, t.tx, workspaceID, debtID, accountID, settledOn)
}

func (t *sqliteTransaction) DeleteDebt(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteDebtTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) UpsertBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateBudgetRecord(budget); err != nil {
		return err
	}
	return t.storage.upsertBudgetTx(ctx, t.tx, budget)
}

func (t *sqliteTransaction) ListBudgetsByYear(ctx context.Context, workspaceID int64, year int) ([]service.BudgetDetail, error) {
	return t.storage.listBudgetsByYearTx(ctx, t.tx, workspaceID, year)
}

func (t *sqliteTransaction) BudgetActualsByYear(ctx context.Context, workspaceID int64, year int) (map[service.BudgetActualKey]float64, error) {
	return t.storage.budgetActualsByYearTx(ctx, t.tx, workspaceID, year)
}

func (t *sqliteTransaction) DeleteBudget(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteBudgetTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) UpsertRule(ctx context.Context, rule *model.Rule) error {
	if err := validateRuleRecord(rule); err != nil {
		return err
	}
	return t.storage.upsertRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) ListRules(ctx context.Context, workspaceID int64) ([]service.RuleDetail, error) {
	return t.storage.listRulesTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) DeleteRule(ctx context.Context, workspaceID, id int64) error {
	return t.storage.deleteRuleTx(ctx, t.tx, workspaceID, id)
}

func (t *sqliteTransaction) GetMonthlySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]service.MonthlyFlow, error) {
	return t.storage.getMonthlySummaryTx(ctx, t.tx, workspaceID, start, end, accountID)
}

func (t *sqliteTransaction) GetCategorySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]service.CategoryTotal, error) {
	return t.storage.getCategorySummaryTx(ctx, t.tx, workspaceID, start, end, accountID)
}

func (t *sqliteTransaction) GetCategoryTrend(ctx context.Context, workspaceID, categoryID int64, start, end time.Time) ([]service.MonthlyAmount, error) {
	return t.storage.getCategoryTrendTx(ctx, t.tx, workspaceID, categoryID, start, end)
}

func (t *sqliteTransaction) GetNetWorth(ctx context.Context, workspaceID int64) (*service.NetWorthSummary, error) {
	return t.storage.getNetWorthTx(ctx, t.tx, workspaceID)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
