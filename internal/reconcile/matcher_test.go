package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
	"github.com/ebbcash/ebb/internal/storage"
)

type reconcileFixture struct {
	store    *storage.SQLiteStorage
	ws       *model.Workspace
	checking *model.Account
	salary   *model.Category
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	ws, err := store.CreateWorkspace(ctx, "home")
	require.NoError(t, err)
	checking, err := store.CreateAccount(ctx, &model.Account{
		WorkspaceID: ws.ID, Name: "Checking", Type: model.AccountTypeStandard,
	})
	require.NoError(t, err)
	salary, err := store.GetCategoryByName(ctx, ws.ID, "Salary")
	require.NoError(t, err)

	return &reconcileFixture{store: store, ws: ws, checking: checking, salary: salary}
}

func (f *reconcileFixture) plan(t *testing.T, day string, amount float64) *model.PlannedTransaction {
	t.Helper()
	parsed, err := model.ParseDate(day)
	require.NoError(t, err)
	planned, err := f.store.CreatePlannedTransaction(context.Background(), &model.PlannedTransaction{
		WorkspaceID: f.ws.ID,
		AccountID:   f.checking.ID,
		CategoryID:  f.salary.ID,
		Date:        parsed,
		Amount:      amount,
		Description: "Expected payment",
	})
	require.NoError(t, err)
	return planned
}

func mustParse(t *testing.T, day string) time.Time {
	t.Helper()
	parsed, err := model.ParseDate(day)
	require.NoError(t, err)
	return parsed
}

func TestFindBestUsesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	planned := f.plan(t, "2025-06-15", 100)

	matcher := NewMatcher(f.store, Config{})

	match, err := matcher.FindBest(ctx, f.ws.ID, mustParse(t, "2025-06-20"), 114)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, planned.ID, match.ID)

	// Just past the 15 percent amount band.
	match, err = matcher.FindBest(ctx, f.ws.ID, mustParse(t, "2025-06-20"), 116)
	require.NoError(t, err)
	assert.Nil(t, match)

	// Just past the seven day window.
	match, err = matcher.FindBest(ctx, f.ws.ID, mustParse(t, "2025-06-23"), 100)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestReconcileReplacesPlan(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	planned := f.plan(t, "2025-06-15", 100)

	matcher := NewMatcher(f.store, Config{})
	created, err := matcher.Reconcile(ctx, f.ws.ID, planned.ID, &model.Transaction{
		AccountID:   f.checking.ID,
		CategoryID:  f.salary.ID,
		Date:        mustParse(t, "2025-06-16"),
		Amount:      102.5,
		Description: "Actual payment",
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))

	// The plan is gone, the movement is on the ledger.
	_, err = f.store.GetPlannedTransactionByID(ctx, f.ws.ID, planned.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	details, err := f.store.ListTransactions(ctx, f.ws.ID, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, 102.5, details[0].Amount)
}

func TestReconcileRace(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	planned := f.plan(t, "2025-06-15", 100)

	// Someone else settles the plan between match and reconcile.
	require.NoError(t, f.store.DeletePlannedTransaction(ctx, f.ws.ID, planned.ID))

	matcher := NewMatcher(f.store, Config{})
	_, err := matcher.Reconcile(ctx, f.ws.ID, planned.ID, &model.Transaction{
		AccountID:  f.checking.ID,
		CategoryID: f.salary.ID,
		Date:       mustParse(t, "2025-06-16"),
		Amount:     100,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Nothing was inserted.
	details, err := f.store.ListTransactions(ctx, f.ws.ID, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, details)
}
