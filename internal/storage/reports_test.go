package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ebbcash/ebb/internal/model"
)

func TestGetMonthlySummary(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-31", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-05", -800, "Rent")
	// A refund lands on an expense category with a positive sign and
	// shrinks the month's spending rather than counting as income.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-20", 50, "Deposit refund")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-02-28", 2500, "Salary")

	// Transfers move money between accounts and belong in neither column.
	transfer, err := store.GetCategoryByName(ctx, ledger.ws.ID, model.CategoryNameTransfer)
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, transfer.ID, "2025-01-15", -200, "To savings")

	flows, err := store.GetMonthlySummary(ctx, ledger.ws.ID,
		mustDate(t, "2025-01-01"), mustDate(t, "2025-12-31"), 0)
	if err != nil {
		t.Fatalf("GetMonthlySummary failed: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("Expected 2 months, got %d", len(flows))
	}

	january := flows[0]
	if january.Year != 2025 || january.Month != time.January {
		t.Fatalf("Expected January 2025 first, got %+v", january)
	}
	if january.Income != 2500 {
		t.Errorf("Expected January income 2500, got %v", january.Income)
	}
	if january.Expenses != -750 {
		t.Errorf("Expected January expenses -750 after refund, got %v", january.Expenses)
	}

	february := flows[1]
	if february.Month != time.February || february.Income != 2500 || february.Expenses != 0 {
		t.Errorf("Unexpected February row: %+v", february)
	}
}

func TestGetCategorySummaryAndTrend(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	groceries, err := store.GetCategoryByName(ctx, ledger.ws.ID, "Groceries")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-05", -800, "Rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, groceries.ID, "2025-01-10", -120, "Groceries")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, groceries.ID, "2025-02-12", -80, "Groceries")
	// Income and refunds stay out of the spending board.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-31", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, groceries.ID, "2025-01-15", 30, "Bottle return")

	totals, err := store.GetCategorySummary(ctx, ledger.ws.ID,
		mustDate(t, "2025-01-01"), mustDate(t, "2025-12-31"), 0)
	if err != nil {
		t.Fatalf("GetCategorySummary failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("Expected 2 spending categories, got %d", len(totals))
	}
	if totals[0].Category != "Rent" || totals[0].Total != 800 {
		t.Errorf("Expected Rent 800 first, got %+v", totals[0])
	}
	if totals[1].Category != "Groceries" || totals[1].Total != 200 {
		t.Errorf("Expected Groceries 200 second, got %+v", totals[1])
	}

	trend, err := store.GetCategoryTrend(ctx, ledger.ws.ID, groceries.ID,
		mustDate(t, "2025-01-01"), mustDate(t, "2025-12-31"))
	if err != nil {
		t.Fatalf("GetCategoryTrend failed: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("Expected 2 trend points, got %d", len(trend))
	}
	if trend[0].Month != time.January || trend[0].Total != 120 {
		t.Errorf("Unexpected January point: %+v", trend[0])
	}
	if trend[1].Month != time.February || trend[1].Total != 80 {
		t.Errorf("Unexpected February point: %+v", trend[1])
	}
}

func TestGetNetWorth(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-31", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-05", -800, "Rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-01-10", -150, "Card spend")

	if _, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID, Person: "Carol", Amount: 120, Type: model.DebtTypeBorrowed,
	}); err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}
	// Money lent out is not counted until it comes back.
	if _, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID, Person: "Alice", Amount: 200, Type: model.DebtTypeLent,
	}); err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}

	worth, err := store.GetNetWorth(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("GetNetWorth failed: %v", err)
	}
	if worth.Liquidity != 2700 {
		t.Errorf("Expected liquidity 2700, got %v", worth.Liquidity)
	}
	if worth.CardDebt != -150 {
		t.Errorf("Expected card debt -150, got %v", worth.CardDebt)
	}
	if worth.Borrowed != 120 {
		t.Errorf("Expected borrowed 120, got %v", worth.Borrowed)
	}
	if want := 2700.0 - 150 - 120; worth.Total != want {
		t.Errorf("Expected total %v, got %v", want, worth.Total)
	}
}
