// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ebbcash/ebb/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string
	AccountID  int64
	CategoryID int64
	Limit      int
}

// Storage defines the contract for the persistence layer. Every operation
// below workspace level is scoped to a single workspace; data never crosses
// workspace boundaries.
type Storage interface {
	// Workspace operations
	CreateWorkspace(ctx context.Context, name string) (*model.Workspace, error)
	GetWorkspaceByName(ctx context.Context, name string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)

	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	GetAccountByName(ctx context.Context, workspaceID int64, name string) (*model.Account, error)
	ListAccounts(ctx context.Context, workspaceID int64) ([]model.Account, error)
	ListAccountBalances(ctx context.Context, workspaceID int64) ([]AccountBalance, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	DeleteAccount(ctx context.Context, workspaceID, id int64) error
	PayCardStatement(ctx context.Context, workspaceID int64, payment CardPayment) error

	// Category operations
	CreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error)
	GetCategoryByName(ctx context.Context, workspaceID int64, name string) (*model.Category, error)
	GetOrCreateCategory(ctx context.Context, workspaceID int64, name string, kind model.CategoryKind) (*model.Category, error)
	ListCategories(ctx context.Context, workspaceID int64) ([]model.Category, error)
	ListCategoriesByKind(ctx context.Context, workspaceID int64, kind model.CategoryKind) ([]model.Category, error)
	UpdateCategory(ctx context.Context, workspaceID, id int64, name string, kind model.CategoryKind) error
	DeleteCategory(ctx context.Context, workspaceID, id int64) error
	DeleteUnusedCategories(ctx context.Context, workspaceID int64) (int64, error)

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetTransactionByID(ctx context.Context, workspaceID, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, workspaceID int64, filter TransactionFilter) ([]model.TransactionDetail, error)
	ListTransactionDetails(ctx context.Context, workspaceID int64) ([]model.TransactionDetail, error)
	ListTrainingSamples(ctx context.Context, workspaceID int64) ([]LabeledDescription, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, workspaceID, id int64) error
	DeleteTransactions(ctx context.Context, workspaceID int64, ids []int64) (int64, error)
	ReassignTransactions(ctx context.Context, workspaceID int64, ids []int64, categoryID, accountID int64) error
	TransactionEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error)
	SumTransactionsBefore(ctx context.Context, workspaceID int64, cutoff time.Time, accountID int64) (float64, error)
	SumOpeningBalances(ctx context.Context, workspaceID int64, accountID int64) (float64, error)

	// Recurring rule operations
	CreateRecurringRule(ctx context.Context, rule *model.RecurringRule) (*model.RecurringRule, error)
	FindRecurringRule(ctx context.Context, workspaceID int64, name string, interval model.RecurrenceInterval, categoryID, accountID int64) (*model.RecurringRule, error)
	ListRecurringRules(ctx context.Context, workspaceID int64) ([]RecurringRuleDetail, error)
	ListProjectableRules(ctx context.Context, workspaceID int64, accountID int64) ([]model.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, workspaceID, id int64) error

	// Planned transaction operations
	CreatePlannedTransaction(ctx context.Context, planned *model.PlannedTransaction) (*model.PlannedTransaction, error)
	GetPlannedTransactionByID(ctx context.Context, workspaceID, id int64) (*model.PlannedTransaction, error)
	ListPlannedTransactions(ctx context.Context, workspaceID int64) ([]PlannedDetail, error)
	PlannedEventsInRange(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error)
	DeletePlannedTransaction(ctx context.Context, workspaceID, id int64) error
	FindBestPlannedMatch(ctx context.Context, workspaceID int64, date time.Time, amount float64, dayTolerance int, amountTolerance float64) (*model.PlannedTransaction, error)

	// Goal operations
	CreateGoal(ctx context.Context, goal *model.Goal) (*model.Goal, error)
	ListGoals(ctx context.Context, workspaceID int64, status model.GoalStatus) ([]model.Goal, error)
	UpdateGoalStatus(ctx context.Context, workspaceID, id int64, status model.GoalStatus) error
	DeleteGoal(ctx context.Context, workspaceID, id int64) error

	// Debt operations
	CreateDebt(ctx context.Context, debt *model.Debt) (*model.Debt, error)
	ListDebts(ctx context.Context, workspaceID int64, status model.DebtStatus) ([]model.Debt, error)
	SettleDebt(ctx context.Context, workspaceID, debtID, accountID int64, settledOn time.Time) error
	DeleteDebt(ctx context.Context, workspaceID, id int64) error

	// Budget operations
	UpsertBudget(ctx context.Context, budget *model.Budget) error
	ListBudgetsByYear(ctx context.Context, workspaceID int64, year int) ([]BudgetDetail, error)
	BudgetActualsByYear(ctx context.Context, workspaceID int64, year int) (map[BudgetActualKey]float64, error)
	DeleteBudget(ctx context.Context, workspaceID, id int64) error

	// Keyword rule operations
	UpsertRule(ctx context.Context, rule *model.Rule) error
	ListRules(ctx context.Context, workspaceID int64) ([]RuleDetail, error)
	DeleteRule(ctx context.Context, workspaceID, id int64) error

	// Reporting operations
	GetMonthlySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]MonthlyFlow, error)
	GetCategorySummary(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]CategoryTotal, error)
	GetCategoryTrend(ctx context.Context, workspaceID, categoryID int64, start, end time.Time) ([]MonthlyAmount, error)
	GetNetWorth(ctx context.Context, workspaceID int64) (*NetWorthSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// AccountBalance pairs an account with its derived position. Balance holds
// the current balance for standard accounts and the remaining credit for
// cards; AmountDue is how much card debt is still to be paid, zero for
// standard accounts.
type AccountBalance struct {
	Account   model.Account
	Balance   float64
	AmountDue float64
}

// LabeledDescription is one classifier training sample.
type LabeledDescription struct {
	Description string
	Category    string
}

// RecurringRuleDetail is a recurring rule joined with its category and
// account names.
type RecurringRuleDetail struct {
	Rule         model.RecurringRule
	CategoryName string
	AccountName  string
}

// PlannedDetail is a planned transaction joined with its category and
// account names.
type PlannedDetail struct {
	Planned      model.PlannedTransaction
	CategoryName string
	AccountName  string
}

// BudgetDetail is a budget row joined with its category and account names.
// AccountName is empty for budgets that apply across all accounts.
type BudgetDetail struct {
	Budget       model.Budget
	CategoryName string
	AccountName  string
}

// BudgetActualKey addresses observed spending for one month and category.
// AccountName is empty for the all-accounts rollup.
type BudgetActualKey struct {
	CategoryName string
	AccountName  string
	Month        time.Month
}

// RuleDetail is a keyword rule joined with its category name.
type RuleDetail struct {
	Rule         model.Rule
	CategoryName string
}

// MonthlyFlow aggregates recorded income and expenses for one calendar
// month. Expenses keep their negative sign.
type MonthlyFlow struct {
	Month    time.Month
	Year     int
	Income   float64
	Expenses float64
}

// CategoryTotal is the absolute spending total for one category.
type CategoryTotal struct {
	Category string
	Total    float64
}

// MonthlyAmount is one month's absolute total in a trend series.
type MonthlyAmount struct {
	Month time.Month
	Year  int
	Total float64
}

// NetWorthSummary breaks the net position into its components. CardDebt is
// negative, Borrowed positive; Total is Liquidity + CardDebt - Borrowed.
type NetWorthSummary struct {
	Liquidity float64
	CardDebt  float64
	Borrowed  float64
	Total     float64
}

// CardPayment describes paying a credit card statement out of an asset
// account. It is recorded as a linked pair of transfer transactions.
type CardPayment struct {
	Date          time.Time
	CardAccountID int64
	FromAccountID int64
	Amount        float64
}
