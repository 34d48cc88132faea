package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

func addTestPlanned(t *testing.T, store *SQLiteStorage, ledger *testLedger, date string, amount float64, description string) *model.PlannedTransaction {
	t.Helper()
	planned, err := store.CreatePlannedTransaction(context.Background(), &model.PlannedTransaction{
		WorkspaceID: ledger.ws.ID,
		AccountID:   ledger.checking.ID,
		CategoryID:  ledger.salary.ID,
		Date:        mustDate(t, date),
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		t.Fatalf("Failed to create planned transaction: %v", err)
	}
	return planned
}

func TestPlannedTransactionLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	planned := addTestPlanned(t, store, ledger, "2025-06-15", 2000, "Invoice #42")

	got, err := store.GetPlannedTransactionByID(ctx, ledger.ws.ID, planned.ID)
	if err != nil {
		t.Fatalf("GetPlannedTransactionByID failed: %v", err)
	}
	if got.Amount != 2000 || got.Description != "Invoice #42" {
		t.Errorf("Round-trip mismatch: %+v", got)
	}

	addTestPlanned(t, store, ledger, "2025-06-01", -300, "Insurance")
	details, err := store.ListPlannedTransactions(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListPlannedTransactions failed: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("Expected 2 planned transactions, got %d", len(details))
	}
	if !details[0].Planned.Date.Before(details[1].Planned.Date) {
		t.Error("Expected soonest-first order")
	}
	if details[0].AccountName != "Checking" {
		t.Errorf("Expected joined account name, got %q", details[0].AccountName)
	}

	if err := store.DeletePlannedTransaction(ctx, ledger.ws.ID, planned.ID); err != nil {
		t.Fatalf("DeletePlannedTransaction failed: %v", err)
	}
	if _, err := store.GetPlannedTransactionByID(ctx, ledger.ws.ID, planned.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestFindBestPlannedMatchTolerances(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	planned := addTestPlanned(t, store, ledger, "2025-06-15", 100, "Expected deposit")

	tests := []struct {
		name      string
		date      string
		amount    float64
		wantMatch bool
	}{
		{"exact", "2025-06-15", 100, true},
		{"amount at 15 percent edge", "2025-06-15", 115, true},
		{"amount just inside", "2025-06-15", 114, true},
		{"amount outside", "2025-06-15", 116, false},
		{"amount low edge", "2025-06-15", 85, true},
		{"amount below", "2025-06-15", 84, false},
		{"date at 7 day edge", "2025-06-22", 100, true},
		{"date before window", "2025-06-07", 100, false},
		{"date after window", "2025-06-23", 100, false},
		{"opposite sign", "2025-06-15", -100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := store.FindBestPlannedMatch(ctx, ledger.ws.ID, mustDate(t, tt.date), tt.amount, 7, 0.15)
			if err != nil {
				t.Fatalf("FindBestPlannedMatch failed: %v", err)
			}
			if tt.wantMatch && match == nil {
				t.Error("Expected a match, got none")
			}
			if !tt.wantMatch && match != nil {
				t.Errorf("Expected no match, got planned %d", match.ID)
			}
			if tt.wantMatch && match != nil && match.ID != planned.ID {
				t.Errorf("Expected planned %d, got %d", planned.ID, match.ID)
			}
		})
	}
}

func TestFindBestPlannedMatchPicksClosest(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	// Amount proximity wins over date proximity.
	farAmount := addTestPlanned(t, store, ledger, "2025-06-15", 110, "Further amount, same day")
	nearAmount := addTestPlanned(t, store, ledger, "2025-06-18", 101, "Closer amount, later day")

	match, err := store.FindBestPlannedMatch(ctx, ledger.ws.ID, mustDate(t, "2025-06-15"), 100, 7, 0.15)
	if err != nil {
		t.Fatalf("FindBestPlannedMatch failed: %v", err)
	}
	if match == nil || match.ID != nearAmount.ID {
		t.Fatalf("Expected closest-amount candidate %d, got %+v", nearAmount.ID, match)
	}

	// With amounts tied, the nearer date breaks the tie.
	if err := store.DeletePlannedTransaction(ctx, ledger.ws.ID, nearAmount.ID); err != nil {
		t.Fatalf("DeletePlannedTransaction failed: %v", err)
	}
	addTestPlanned(t, store, ledger, "2025-06-16", 110, "Same amount, next day")

	match, err = store.FindBestPlannedMatch(ctx, ledger.ws.ID, mustDate(t, "2025-06-15"), 110, 7, 0.15)
	if err != nil {
		t.Fatalf("FindBestPlannedMatch failed: %v", err)
	}
	if match == nil {
		t.Fatal("Expected a match")
	}
	if match.ID != farAmount.ID {
		t.Errorf("Expected same-day candidate %d, got %d", farAmount.ID, match.ID)
	}
}

func TestFindBestPlannedMatchValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	if _, err := store.FindBestPlannedMatch(ctx, ledger.ws.ID, mustDate(t, "2025-06-15"), 100, -1, 0.15); err == nil {
		t.Error("Expected error for negative day tolerance")
	}
	if _, err := store.FindBestPlannedMatch(ctx, ledger.ws.ID, mustDate(t, "2025-06-15"), 100, 7, -0.1); err == nil {
		t.Error("Expected error for negative amount tolerance")
	}
}
