package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// testLedger bundles the rows most tests need: one workspace, a standard
// account, a credit card and two seeded categories.
type testLedger struct {
	ws       *model.Workspace
	checking *model.Account
	card     *model.Account
	salary   *model.Category
	rent     *model.Category
}

func seedTestLedger(t *testing.T, store *SQLiteStorage) *testLedger {
	t.Helper()
	ctx := context.Background()

	ws, err := store.CreateWorkspace(ctx, "home")
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}

	checking, err := store.CreateAccount(ctx, &model.Account{
		WorkspaceID:    ws.ID,
		Name:           "Checking",
		Type:           model.AccountTypeStandard,
		OpeningBalance: 1000,
	})
	if err != nil {
		t.Fatalf("Failed to create checking account: %v", err)
	}

	card, err := store.CreateAccount(ctx, &model.Account{
		WorkspaceID:  ws.ID,
		Name:         "Visa",
		Type:         model.AccountTypeCreditCard,
		CreditLimit:  2000,
		StatementDay: 15,
	})
	if err != nil {
		t.Fatalf("Failed to create card account: %v", err)
	}

	salary, err := store.GetCategoryByName(ctx, ws.ID, "Salary")
	if err != nil {
		t.Fatalf("Failed to get seeded Salary category: %v", err)
	}
	rent, err := store.GetCategoryByName(ctx, ws.ID, "Rent")
	if err != nil {
		t.Fatalf("Failed to get seeded Rent category: %v", err)
	}

	return &testLedger{ws: ws, checking: checking, card: card, salary: salary, rent: rent}
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := model.ParseDate(value)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", value, err)
	}
	return date
}

func addTestTransaction(t *testing.T, store *SQLiteStorage, workspaceID, accountID, categoryID int64, date string, amount float64, description string) *model.Transaction {
	t.Helper()
	txn, err := store.CreateTransaction(context.Background(), &model.Transaction{
		WorkspaceID: workspaceID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		Date:        mustDate(t, date),
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	return txn
}

func TestCreateWorkspace(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	ws, err := store.CreateWorkspace(ctx, "personal")
	if err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	if ws.ID <= 0 {
		t.Errorf("Expected positive workspace ID, got %d", ws.ID)
	}

	// A fresh workspace arrives with the seeded category catalogue.
	categories, err := store.ListCategories(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("Expected seeded categories in new workspace")
	}
	names := make(map[string]model.CategoryKind, len(categories))
	for _, cat := range categories {
		names[cat.Name] = cat.Kind
	}
	for _, want := range []struct {
		name string
		kind model.CategoryKind
	}{
		{"Salary", model.CategoryKindIncome},
		{"Rent", model.CategoryKindExpense},
		{model.CategoryNameTransfer, model.CategoryKindTransfer},
		{model.CategoryNameUncategorized, model.CategoryKindExpense},
	} {
		if got, ok := names[want.name]; !ok {
			t.Errorf("Expected seeded category %q", want.name)
		} else if got != want.kind {
			t.Errorf("Category %q: expected kind %q, got %q", want.name, want.kind, got)
		}
	}

	// Duplicate names are rejected.
	if _, err := store.CreateWorkspace(ctx, "personal"); !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry for duplicate workspace, got %v", err)
	}

	// Seeding in a second workspace is independent of the first.
	other, err := store.CreateWorkspace(ctx, "business")
	if err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	otherCats, err := store.ListCategories(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(otherCats) != len(categories) {
		t.Errorf("Expected %d seeded categories, got %d", len(categories), len(otherCats))
	}
}

func TestGetWorkspaceByName(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	created, err := store.CreateWorkspace(ctx, "home")
	if err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}

	found, err := store.GetWorkspaceByName(ctx, "home")
	if err != nil {
		t.Fatalf("GetWorkspaceByName failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("Expected workspace %d, got %d", created.ID, found.ID)
	}

	if _, err := store.GetWorkspaceByName(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	// Duplicate account names within a workspace are rejected.
	_, err := store.CreateAccount(ctx, &model.Account{
		WorkspaceID: ledger.ws.ID,
		Name:        "Checking",
		Type:        model.AccountTypeStandard,
	})
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}

	got, err := store.GetAccountByName(ctx, ledger.ws.ID, "Visa")
	if err != nil {
		t.Fatalf("GetAccountByName failed: %v", err)
	}
	if got.Type != model.AccountTypeCreditCard || got.CreditLimit != 2000 || got.StatementDay != 15 {
		t.Errorf("Card fields not persisted: %+v", got)
	}

	got.Name = "Visa Gold"
	got.CreditLimit = 3000
	if err := store.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}
	updated, err := store.GetAccountByName(ctx, ledger.ws.ID, "Visa Gold")
	if err != nil {
		t.Fatalf("GetAccountByName after update failed: %v", err)
	}
	if updated.CreditLimit != 3000 {
		t.Errorf("Expected credit limit 3000, got %v", updated.CreditLimit)
	}

	// Deleting cascades to the account's transactions.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-01", -500, "March rent")
	if err := store.DeleteAccount(ctx, ledger.ws.ID, ledger.checking.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	details, err := store.ListTransactionDetails(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTransactionDetails failed: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("Expected cascade delete of transactions, found %d", len(details))
	}

	if err := store.DeleteAccount(ctx, ledger.ws.ID, ledger.checking.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListAccountBalances(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-03-01", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-02", -800, "Rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-03-03", -150, "Groceries on card")

	balances, err := store.ListAccountBalances(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListAccountBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(balances))
	}

	byName := make(map[string]int, len(balances))
	for i, b := range balances {
		byName[b.Account.Name] = i
	}

	checking := balances[byName["Checking"]]
	if checking.Balance != 1000+2500-800 {
		t.Errorf("Checking balance: expected 2700, got %v", checking.Balance)
	}
	if checking.AmountDue != 0 {
		t.Errorf("Checking amount due: expected 0, got %v", checking.AmountDue)
	}

	card := balances[byName["Visa"]]
	if card.Balance != 2000-150 {
		t.Errorf("Card remaining credit: expected 1850, got %v", card.Balance)
	}
	if card.AmountDue != 150 {
		t.Errorf("Card amount due: expected 150, got %v", card.AmountDue)
	}
}

func TestPayCardStatement(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-03-03", -150, "Groceries on card")

	payment := model.Day(mustDate(t, "2025-03-20"))
	err := store.PayCardStatement(ctx, ledger.ws.ID, service.CardPayment{
		Date:          payment,
		CardAccountID: ledger.card.ID,
		FromAccountID: ledger.checking.ID,
		Amount:        150,
	})
	if err != nil {
		t.Fatalf("PayCardStatement failed: %v", err)
	}

	// The payment lands as a mirrored transfer pair.
	details, err := store.ListTransactionDetails(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTransactionDetails failed: %v", err)
	}
	var fromLeg, cardLeg bool
	for _, d := range details {
		if d.CategoryName != model.CategoryNameTransfer {
			continue
		}
		if d.Description != "Statement payment Visa" {
			t.Errorf("Unexpected payment description %q", d.Description)
		}
		switch {
		case d.AccountID == ledger.checking.ID && d.Amount == -150:
			fromLeg = true
		case d.AccountID == ledger.card.ID && d.Amount == 150:
			cardLeg = true
		}
	}
	if !fromLeg || !cardLeg {
		t.Errorf("Expected both payment legs, got fromLeg=%v cardLeg=%v", fromLeg, cardLeg)
	}

	// Card debt is cleared.
	balances, err := store.ListAccountBalances(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListAccountBalances failed: %v", err)
	}
	for _, b := range balances {
		if b.Account.ID == ledger.card.ID && b.AmountDue != 0 {
			t.Errorf("Expected card paid off, amount due %v", b.AmountDue)
		}
	}

	// Direction matters: a standard account cannot be the card side.
	err = store.PayCardStatement(ctx, ledger.ws.ID, service.CardPayment{
		Date:          payment,
		CardAccountID: ledger.checking.ID,
		FromAccountID: ledger.checking.ID,
		Amount:        10,
	})
	if !errors.Is(err, common.ErrInvalidAccount) {
		t.Errorf("Expected ErrInvalidAccount, got %v", err)
	}
	// A card cannot fund its own payment.
	err = store.PayCardStatement(ctx, ledger.ws.ID, service.CardPayment{
		Date:          payment,
		CardAccountID: ledger.card.ID,
		FromAccountID: ledger.card.ID,
		Amount:        10,
	})
	if !errors.Is(err, common.ErrInvalidAccount) {
		t.Errorf("Expected ErrInvalidAccount, got %v", err)
	}
}

func TestWorkspaceIsolation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	other, err := store.CreateWorkspace(ctx, "other")
	if err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-15", 100, "Visible")

	if accounts, err := store.ListAccounts(ctx, other.ID); err != nil || len(accounts) != 0 {
		t.Errorf("Expected no accounts in other workspace, got %d (err %v)", len(accounts), err)
	}
	if details, err := store.ListTransactionDetails(ctx, other.ID); err != nil || len(details) != 0 {
		t.Errorf("Expected no transactions in other workspace, got %d (err %v)", len(details), err)
	}

	// Cross-workspace lookups by id miss rather than leak.
	if _, err := store.GetAccountByName(ctx, other.ID, "Checking"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound across workspaces, got %v", err)
	}
}

func TestTransactionInterface(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	// Rolled-back work is invisible.
	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if _, err := tx.CreateTransaction(ctx, &model.Transaction{
		WorkspaceID: ledger.ws.ID,
		AccountID:   ledger.checking.ID,
		CategoryID:  ledger.salary.ID,
		Date:        mustDate(t, "2025-02-01"),
		Amount:      50,
	}); err != nil {
		t.Fatalf("CreateTransaction in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	details, err := store.ListTransactionDetails(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTransactionDetails failed: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("Expected rollback to discard transaction, found %d rows", len(details))
	}

	// Committed work persists.
	tx, err = store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if _, err := tx.CreateTransaction(ctx, &model.Transaction{
		WorkspaceID: ledger.ws.ID,
		AccountID:   ledger.checking.ID,
		CategoryID:  ledger.salary.ID,
		Date:        mustDate(t, "2025-02-01"),
		Amount:      50,
	}); err != nil {
		t.Fatalf("CreateTransaction in tx failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	details, err = store.ListTransactionDetails(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTransactionDetails failed: %v", err)
	}
	if len(details) != 1 {
		t.Errorf("Expected committed transaction, found %d rows", len(details))
	}

	// Nested transactions and in-tx migrations are refused.
	tx, err = store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.BeginTx(ctx); err == nil {
		t.Error("Expected nested BeginTx to fail")
	}
	if err := tx.Migrate(ctx); err == nil {
		t.Error("Expected in-transaction Migrate to fail")
	}
}
