package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
)

func TestRuleUpsertAndPrecedence(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ledger := seedTestLedger(t, store)

	groceries, err := store.GetCategoryByName(ctx, ledger.ws.ID, "Groceries")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}

	// Keywords are folded to lowercase on write.
	if err := store.UpsertRule(ctx, &model.Rule{
		WorkspaceID: ledger.ws.ID,
		Keyword:     "  TESCO ",
		CategoryID:  groceries.ID,
	}); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if err := store.UpsertRule(ctx, &model.Rule{
		WorkspaceID: ledger.ws.ID,
		Keyword:     "tesco express",
		CategoryID:  groceries.ID,
	}); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}

	rules, err := store.ListRules(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(rules))
	}
	// Longest keyword first, so the most specific rule wins a scan.
	if rules[0].Rule.Keyword != "tesco express" || rules[1].Rule.Keyword != "tesco" {
		t.Errorf("Expected longest-first order, got %q then %q", rules[0].Rule.Keyword, rules[1].Rule.Keyword)
	}
	if rules[0].CategoryName != "Groceries" {
		t.Errorf("Expected joined category name, got %q", rules[0].CategoryName)
	}

	// Re-mapping an existing keyword swaps the category, no new row.
	dining, err := store.GetCategoryByName(ctx, ledger.ws.ID, "Dining Out")
	if err != nil {
		t.Fatalf("GetCategoryByName failed: %v", err)
	}
	if err := store.UpsertRule(ctx, &model.Rule{
		WorkspaceID: ledger.ws.ID,
		Keyword:     "Tesco",
		CategoryID:  dining.ID,
	}); err != nil {
		t.Fatalf("UpsertRule remap failed: %v", err)
	}
	rules, err = store.ListRules(ctx, ledger.ws.ID)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Expected 2 rules after remap, got %d", len(rules))
	}
	if rules[1].CategoryName != "Dining Out" {
		t.Errorf("Expected remapped category, got %q", rules[1].CategoryName)
	}

	if err := store.DeleteRule(ctx, ledger.ws.ID, rules[0].Rule.ID); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}
	if err := store.DeleteRule(ctx, ledger.ws.ID, rules[0].Rule.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}
