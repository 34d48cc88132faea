package recurrence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/storage"
)

func TestSuggestAndAccept(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	ws, err := store.CreateWorkspace(ctx, "home")
	require.NoError(t, err)
	account, err := store.CreateAccount(ctx, &model.Account{
		WorkspaceID: ws.ID, Name: "Checking", Type: model.AccountTypeStandard,
	})
	require.NoError(t, err)
	rent, err := store.GetCategoryByName(ctx, ws.ID, "Rent")
	require.NoError(t, err)

	for _, spec := range []struct {
		date   string
		amount float64
	}{
		{"2025-01-01", -10.333},
		{"2025-02-01", -10.333},
		{"2025-03-01", -10.334},
	} {
		date, err := model.ParseDate(spec.date)
		require.NoError(t, err)
		_, err = store.CreateTransaction(ctx, &model.Transaction{
			WorkspaceID: ws.ID,
			AccountID:   account.ID,
			CategoryID:  rent.ID,
			Date:        date,
			Amount:      spec.amount,
			Description: "flat 4b rent",
		})
		require.NoError(t, err)
	}

	suggestions, err := Suggest(ctx, store, ws.ID, Config{})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	suggestion := suggestions[0]
	assert.Equal(t, "Flat 4b rent", suggestion.Name)
	assert.Equal(t, model.IntervalMonthly, suggestion.Interval)
	assert.Equal(t, 3, suggestion.Occurrences)

	rule, err := Accept(ctx, store, ws.ID, suggestion)
	require.NoError(t, err)
	// Stored amounts are money, rounded to cents.
	assert.InDelta(t, -10.33, rule.Amount, 1e-9)
	assert.Equal(t, suggestion.FirstDate, rule.StartDate)

	// The accepted rule now masks its own suggestion.
	suggestions, err = Suggest(ctx, store, ws.ID, Config{})
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	// Accepting again hits the in-transaction duplicate check.
	_, err = Accept(ctx, store, ws.ID, suggestion)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}
