package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func TestTransactionCRUD(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	txn := addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-31", 2500, "January salary")
	if txn.ID <= 0 {
		t.Fatalf("Expected positive transaction ID, got %d", txn.ID)
	}

	got, err := store.GetTransactionByID(ctx, ledger.ws.ID, txn.ID)
	if err != nil {
		t.Fatalf("GetTransactionByID failed: %v", err)
	}
	if !got.Date.Equal(mustDate(t, "2025-01-31")) || got.Amount != 2500 {
		t.Errorf("Round-trip mismatch: %+v", got)
	}

	got.Amount = 2600
	got.Description = "January salary, corrected"
	if err := store.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	updated, err := store.GetTransactionByID(ctx, ledger.ws.ID, txn.ID)
	if err != nil {
		t.Fatalf("GetTransactionByID after update failed: %v", err)
	}
	if updated.Amount != 2600 || updated.Description != "January salary, corrected" {
		t.Errorf("Update not persisted: %+v", updated)
	}

	if err := store.DeleteTransaction(ctx, ledger.ws.ID, txn.ID); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if _, err := store.GetTransactionByID(ctx, ledger.ws.ID, txn.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteTransaction(ctx, ledger.ws.ID, txn.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCreateTransactionMissingReferences(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	_, err := store.CreateTransaction(ctx, &model.Transaction{
		WorkspaceID: ledger.ws.ID,
		AccountID:   99999,
		CategoryID:  ledger.salary.ID,
		Date:        mustDate(t, "2025-01-01"),
		Amount:      10,
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing account, got %v", err)
	}

	_, err = store.CreateTransaction(ctx, &model.Transaction{
		WorkspaceID: ledger.ws.ID,
		AccountID:   ledger.checking.ID,
		CategoryID:  99999,
		Date:        mustDate(t, "2025-01-01"),
		Amount:      10,
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing category, got %v", err)
	}
}

func TestCategoryDeleteRestrictedByTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-05", -700, "Rent")

	if err := store.DeleteCategory(ctx, ledger.ws.ID, ledger.rent.ID); !errors.Is(err, common.ErrInUse) {
		t.Errorf("Expected ErrInUse for referenced category, got %v", err)
	}

	// Unreferenced categories delete cleanly.
	spare, err := store.CreateCategory(ctx, ledger.ws.ID, "Hobbies", model.CategoryKindExpense)
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if err := store.DeleteCategory(ctx, ledger.ws.ID, spare.ID); err != nil {
		t.Errorf("DeleteCategory failed: %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-31", 2500, "January salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-02-01", -800, "February rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-02-10", -60, "Office supplies")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-02-28", 2500, "February salary")

	start := mustDate(t, "2025-02-01")
	end := mustDate(t, "2025-02-28")

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   int
	}{
		{"no filter", service.TransactionFilter{}, 4},
		{"date range", service.TransactionFilter{StartDate: &start, EndDate: &end}, 3},
		{"account", service.TransactionFilter{AccountID: ledger.card.ID}, 1},
		{"category", service.TransactionFilter{CategoryID: ledger.salary.ID}, 2},
		{"search", service.TransactionFilter{Search: "salary"}, 2},
		{"limit", service.TransactionFilter{Limit: 2}, 2},
		{"combined", service.TransactionFilter{StartDate: &start, CategoryID: ledger.rent.ID, AccountID: ledger.checking.ID}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details, err := store.ListTransactions(ctx, ledger.ws.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions failed: %v", err)
			}
			if len(details) != tt.want {
				t.Errorf("Expected %d transactions, got %d", tt.want, len(details))
			}
		})
	}

	// Newest first.
	details, err := store.ListTransactions(ctx, ledger.ws.ID, service.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	for i := 1; i < len(details); i++ {
		if details[i].Date.After(details[i-1].Date) {
			t.Errorf("Expected descending date order at index %d", i)
		}
	}
	if details[0].CategoryKind != model.CategoryKindIncome {
		t.Errorf("Expected joined category kind, got %q", details[0].CategoryKind)
	}
}

func TestBulkDeleteAndReassign(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	first := addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-01", -10, "Coffee")
	second := addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-02", -12, "Coffee")
	third := addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-03-03", -9, "Coffee")

	dining, err := store.GetCategoryByName(ctx, ledger.ws.ID, "Dining Out")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}

	if err := store.ReassignTransactions(ctx, ledger.ws.ID, []int64{first.ID, second.ID}, dining.ID, 0); err != nil {
		t.Fatalf("ReassignTransactions failed: %v", err)
	}
	moved, err := store.ListTransactions(ctx, ledger.ws.ID, service.TransactionFilter{CategoryID: dining.ID})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(moved) != 2 {
		t.Errorf("Expected 2 reassigned transactions, got %d", len(moved))
	}

	// Unknown ids are skipped, not errors.
	deleted, err := store.DeleteTransactions(ctx, ledger.ws.ID, []int64{second.ID, third.ID, 99999})
	if err != nil {
		t.Fatalf("DeleteTransactions failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deletions, got %d", deleted)
	}

	if count, err := store.DeleteTransactions(ctx, ledger.ws.ID, nil); err != nil || count != 0 {
		t.Errorf("Expected empty batch to be a no-op, got count=%d err=%v", count, err)
	}
}

func TestTransactionEventsInRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-04-01", 2500, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-04-05", -800, "Rent")
	// Card spending must never enter the forecast timeline.
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-04-06", -100, "Card spend")
	// Outside the window.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-05-02", -50, "Next month")

	events, err := store.TransactionEventsInRange(ctx, ledger.ws.ID,
		mustDate(t, "2025-04-01"), mustDate(t, "2025-04-30"), 0)
	if err != nil {
		t.Fatalf("TransactionEventsInRange failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	for _, event := range events {
		if event.Source != model.EventSourceActual {
			t.Errorf("Expected actual source, got %q", event.Source)
		}
		if event.AccountID == ledger.card.ID {
			t.Error("Card transaction leaked into forecast events")
		}
	}
	if !events[0].Date.Before(events[1].Date) {
		t.Error("Expected ascending date order")
	}

	// Account filter narrows to one account.
	events, err = store.TransactionEventsInRange(ctx, ledger.ws.ID,
		mustDate(t, "2025-04-01"), mustDate(t, "2025-05-31"), ledger.checking.ID)
	if err != nil {
		t.Fatalf("TransactionEventsInRange failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Expected 3 checking events, got %d", len(events))
	}
}

func TestBalanceSums(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-10", 2000, "Salary")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-20", -700, "Rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-02-01", -100, "On the cutoff")
	addTestTransaction(t, store, ledger.ws.ID, ledger.card.ID, ledger.rent.ID, "2025-01-15", -300, "Card spend")

	// Strictly before: the cutoff day itself is excluded.
	sum, err := store.SumTransactionsBefore(ctx, ledger.ws.ID, mustDate(t, "2025-02-01"), 0)
	if err != nil {
		t.Fatalf("SumTransactionsBefore failed: %v", err)
	}
	if sum != 2000-700 {
		t.Errorf("Expected 1300, got %v", sum)
	}

	opening, err := store.SumOpeningBalances(ctx, ledger.ws.ID, 0)
	if err != nil {
		t.Fatalf("SumOpeningBalances failed: %v", err)
	}
	if opening != 1000 {
		t.Errorf("Expected opening sum 1000 (card excluded), got %v", opening)
	}

	opening, err = store.SumOpeningBalances(ctx, ledger.ws.ID, ledger.checking.ID)
	if err != nil {
		t.Fatalf("SumOpeningBalances failed: %v", err)
	}
	if opening != 1000 {
		t.Errorf("Expected checking opening 1000, got %v", opening)
	}
}

func TestListTrainingSamples(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-01", -700, "Monthly rent")
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.salary.ID, "2025-01-02", 2500, "Acme payroll")
	// Blank descriptions carry no signal.
	addTestTransaction(t, store, ledger.ws.ID, ledger.checking.ID, ledger.rent.ID, "2025-01-03", -5, "")

	samples, err := store.ListTrainingSamples(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTrainingSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].Description != "Monthly rent" || samples[0].Category != "Rent" {
		t.Errorf("Unexpected first sample: %+v", samples[0])
	}
}

func TestLegacyDateParsing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	// Hand-entered rows sometimes carry day-first dates; lists must still
	// surface them instead of failing the whole query.
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, '31/01/2025', -42, 'legacy row')`,
		ledger.ws.ID, ledger.checking.ID, ledger.rent.ID); err != nil {
		t.Fatalf("Failed to insert legacy row: %v", err)
	}
	// A row with a hopeless date is skipped, not fatal.
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO transactions (workspace_id, account_id, category_id, tx_date, amount, description)
		 VALUES (?, ?, ?, 'not-a-date', -1, 'broken row')`,
		ledger.ws.ID, ledger.checking.ID, ledger.rent.ID); err != nil {
		t.Fatalf("Failed to insert broken row: %v", err)
	}

	details, err := store.ListTransactionDetails(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListTransactionDetails failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("Expected 1 parseable row, got %d", len(details))
	}
	want := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	if !details[0].Date.Equal(want) {
		t.Errorf("Expected legacy date %v, got %v", want, details[0].Date)
	}
}
