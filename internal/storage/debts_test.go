package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func TestDebtLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	lent, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID,
		Person:      "Alice",
		Amount:      200,
		Type:        model.DebtTypeLent,
		DueDate:     mustDate(t, "2025-07-01"),
	})
	if err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}
	if lent.Status != model.DebtStatusOutstanding {
		t.Errorf("Expected outstanding status, got %q", lent.Status)
	}

	// No due date is allowed.
	open, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID,
		Person:      "Bob",
		Amount:      50,
		Type:        model.DebtTypeBorrowed,
	})
	if err != nil {
		t.Fatalf("CreateDebt without due date failed: %v", err)
	}

	debts, err := store.ListDebts(ctx, ledger.ws.ID, "")
	if err != nil {
		t.Fatalf("ListDebts failed: %v", err)
	}
	if len(debts) != 2 {
		t.Fatalf("Expected 2 debts, got %d", len(debts))
	}
	// Dated debts come first, undated last.
	if debts[0].ID != lent.ID || debts[1].ID != open.ID {
		t.Errorf("Expected due-date ordering, got %d then %d", debts[0].ID, debts[1].ID)
	}
	if !debts[1].DueDate.IsZero() {
		t.Errorf("Expected zero due date for undated debt, got %v", debts[1].DueDate)
	}

	if err := store.DeleteDebt(ctx, ledger.ws.ID, open.ID); err != nil {
		t.Fatalf("DeleteDebt failed: %v", err)
	}
	if err := store.DeleteDebt(ctx, ledger.ws.ID, open.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSettleDebtLent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	debt, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID,
		Person:      "Alice",
		Amount:      200,
		Type:        model.DebtTypeLent,
	})
	if err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}

	settledOn := mustDate(t, "2025-07-10")
	if err := store.SettleDebt(ctx, ledger.ws.ID, debt.ID, ledger.checking.ID, settledOn); err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}

	// Settlement of money lent comes back as income.
	details, err := store.ListTransactions(ctx, ledger.ws.ID, service.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("Expected 1 settlement transaction, got %d", len(details))
	}
	txn := details[0]
	if txn.Amount != 200 {
		t.Errorf("Expected +200 settlement, got %v", txn.Amount)
	}
	if txn.CategoryName != "Loan Repayment" {
		t.Errorf("Expected Loan Repayment category, got %q", txn.CategoryName)
	}
	if txn.Description != "Repayment from Alice" {
		t.Errorf("Unexpected description %q", txn.Description)
	}
	if !txn.Date.Equal(settledOn) {
		t.Errorf("Expected settlement date %v, got %v", settledOn, txn.Date)
	}

	outstanding, err := store.ListDebts(ctx, ledger.ws.ID, model.DebtStatusOutstanding)
	if err != nil {
		t.Fatalf("ListDebts failed: %v", err)
	}
	if len(outstanding) != 0 {
		t.Errorf("Expected no outstanding debts, got %d", len(outstanding))
	}
	settled, err := store.ListDebts(ctx, ledger.ws.ID, model.DebtStatusSettled)
	if err != nil {
		t.Fatalf("ListDebts failed: %v", err)
	}
	if len(settled) != 1 {
		t.Errorf("Expected 1 settled debt, got %d", len(settled))
	}

	// A settled debt cannot be settled again.
	if err := store.SettleDebt(ctx, ledger.ws.ID, debt.ID, ledger.checking.ID, settledOn); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for double settle, got %v", err)
	}
	if details, err := store.ListTransactions(ctx, ledger.ws.ID, service.TransactionFilter{}); err != nil || len(details) != 1 {
		t.Errorf("Double settle must not add transactions: len=%d err=%v", len(details), err)
	}
}

func TestSettleDebtBorrowed(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	debt, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID,
		Person:      "Carol",
		Amount:      120,
		Type:        model.DebtTypeBorrowed,
	})
	if err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}

	if err := store.SettleDebt(ctx, ledger.ws.ID, debt.ID, ledger.checking.ID, mustDate(t, "2025-07-11")); err != nil {
		t.Fatalf("SettleDebt failed: %v", err)
	}

	details, err := store.ListTransactions(ctx, ledger.ws.ID, service.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("Expected 1 settlement transaction, got %d", len(details))
	}
	txn := details[0]
	if txn.Amount != -120 {
		t.Errorf("Expected -120 settlement, got %v", txn.Amount)
	}
	if txn.CategoryName != "Debt Payment" {
		t.Errorf("Expected Debt Payment category, got %q", txn.CategoryName)
	}
	if txn.Description != "Payment to Carol" {
		t.Errorf("Unexpected description %q", txn.Description)
	}
}

func TestSettleDebtUnknownAccount(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	debt, err := store.CreateDebt(ctx, &model.Debt{
		WorkspaceID: ledger.ws.ID,
		Person:      "Dave",
		Amount:      30,
		Type:        model.DebtTypeLent,
	})
	if err != nil {
		t.Fatalf("CreateDebt failed: %v", err)
	}

	if err := store.SettleDebt(ctx, ledger.ws.ID, debt.ID, 99999, mustDate(t, "2025-07-12")); err == nil {
		t.Error("Expected error for unknown account")
	}

	// The failed settle must leave the debt open.
	outstanding, err := store.ListDebts(ctx, ledger.ws.ID, model.DebtStatusOutstanding)
	if err != nil {
		t.Fatalf("ListDebts failed: %v", err)
	}
	if len(outstanding) != 1 {
		t.Errorf("Expected debt to stay outstanding, got %d open", len(outstanding))
	}
}
