package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func TestUpsertBudgetReplacesExisting(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	budget := &model.Budget{
		WorkspaceID: ledger.ws.ID,
		Year:        2025,
		Month:       time.March,
		CategoryID:  ledger.rent.ID,
		Amount:      800,
	}
	if err := store.UpsertBudget(ctx, budget); err != nil {
		t.Fatalf("UpsertBudget failed: %v", err)
	}

	// Same slot again updates in place instead of adding a row. The
	// all-accounts slot stores NULL, which UNIQUE alone would not catch.
	budget.Amount = 850
	if err := store.UpsertBudget(ctx, budget); err != nil {
		t.Fatalf("UpsertBudget update failed: %v", err)
	}

	details, err := store.ListBudgetsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil {
		t.Fatalf("ListBudgetsByYear failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("Expected 1 budget row, got %d", len(details))
	}
	if details[0].Budget.Amount != 850 {
		t.Errorf("Expected updated amount 850, got %v", details[0].Budget.Amount)
	}
	if details[0].AccountName != "" {
		t.Errorf("Expected empty account name for all-accounts budget, got %q", details[0].AccountName)
	}

	// A per-account budget for the same category and month is a separate slot.
	perAccount := &model.Budget{
		WorkspaceID: ledger.ws.ID,
		Year:        2025,
		Month:       time.March,
		CategoryID:  ledger.rent.ID,
		AccountID:   ledger.checking.ID,
		Amount:      500,
	}
	if err := store.UpsertBudget(ctx, perAccount); err != nil {
		t.Fatalf("UpsertBudget per-account failed: %v", err)
	}
	perAccount.Amount = 520
	if err := store.UpsertBudget(ctx, perAccount); err != nil {
		t.Fatalf("UpsertBudget per-account update failed: %v", err)
	}

	details, err = store.ListBudgetsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil {
		t.Fatalf("ListBudgetsByYear failed: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("Expected 2 budget rows, got %d", len(details))
	}

	// Other years stay out of the listing.
	if err := store.UpsertBudget(ctx, &model.Budget{
		WorkspaceID: ledger.ws.ID,
		Year:        2024,
		Month:       time.March,
		CategoryID:  ledger.rent.ID,
		Amount:      700,
	}); err != nil {
		t.Fatalf("UpsertBudget for prior year failed: %v", err)
	}
	details, err = store.ListBudgetsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil {
		t.Fatalf("ListBudgetsByYear failed: %v", err)
	}
	if len(details) != 2 {
		t.Errorf("Expected prior-year budget to be excluded, got %d rows", len(details))
	}
}

func TestBudgetActualsByYear(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-01", -800, "Rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-03-15", -50, "Storage unit")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-04-01", -800, "Rent")
	// Income and other years never count as spending.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-03-31", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2024-03-01", -750, "Old rent")

	actuals, err := store.BudgetActualsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil {
		t.Fatalf("BudgetActualsByYear failed: %v", err)
	}

	tests := []struct {
		name string
		key  service.BudgetActualKey
		want float64
	}{
		{"march rollup", service.BudgetActualKey{CategoryName: "Rent", Month: time.March}, 850},
		{"march checking", service.BudgetActualKey{CategoryName: "Rent", AccountName: "Checking", Month: time.March}, 800},
		{"march card", service.BudgetActualKey{CategoryName: "Rent", AccountName: "Visa", Month: time.March}, 50},
		{"april rollup", service.BudgetActualKey{CategoryName: "Rent", Month: time.April}, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := actuals[tt.key]; got != tt.want {
				t.Errorf("Expected %v for %+v, got %v", tt.want, tt.key, got)
			}
		})
	}

	if _, ok := actuals[service.BudgetActualKey{CategoryName: "Salary", Month: time.March}]; ok {
		t.Error("Income must not appear in spending actuals")
	}
}

func TestDeleteBudget(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	if err := store.UpsertBudget(ctx, &model.Budget{
		WorkspaceID: ledger.ws.ID,
		Year:        2025,
		Month:       time.May,
		CategoryID:  ledger.rent.ID,
		Amount:      100,
	}); err != nil {
		t.Fatalf("UpsertBudget failed: %v", err)
	}
	details, err := store.ListBudgetsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil || len(details) != 1 {
		t.Fatalf("Expected 1 budget, got %d (err %v)", len(details), err)
	}

	if err := store.DeleteBudget(ctx, ledger.ws.ID, details[0].Budget.ID); err != nil {
		t.Fatalf("DeleteBudget failed: %v", err)
	}
	details, err = store.ListBudgetsByYear(ctx, ledger.ws.ID, 2025)
	if err != nil {
		t.Fatalf("ListBudgetsByYear failed: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("Expected no budgets after delete, got %d", len(details))
	}
}
