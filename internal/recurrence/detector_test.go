package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/model"
)

func day(t *testing.T, value string) model.TransactionDetail {
	t.Helper()
	date, err := model.ParseDate(value)
	require.NoError(t, err)
	return model.TransactionDetail{Date: date}
}

// expenseSeries builds one transaction per date, all in the same category,
// account and description.
func expenseSeries(t *testing.T, description string, amount float64, dates ...string) []model.TransactionDetail {
	t.Helper()
	entries := make([]model.TransactionDetail, 0, len(dates))
	for _, value := range dates {
		entry := day(t, value)
		entry.Description = description
		entry.CategoryName = "Subscriptions"
		entry.CategoryKind = model.CategoryKindExpense
		entry.CategoryID = 10
		entry.AccountName = "Checking"
		entry.AccountID = 1
		entry.Amount = amount
		entries = append(entries, entry)
	}
	return entries
}

func TestDetectorCadence(t *testing.T) {
	tests := []struct {
		name         string
		dates        []string
		wantInterval model.RecurrenceInterval
		wantNone     bool
	}{
		{
			name:         "monthly with drift",
			dates:        []string{"2025-01-01", "2025-01-31", "2025-03-02", "2025-04-02"},
			wantInterval: model.IntervalMonthly,
		},
		{
			name:     "irregular gaps rejected",
			dates:    []string{"2025-01-01", "2025-01-06", "2025-02-15", "2025-02-17"},
			wantNone: true,
		},
		{
			name:         "weekly",
			dates:        []string{"2025-01-06", "2025-01-13", "2025-01-20", "2025-01-27"},
			wantInterval: model.IntervalWeekly,
		},
		{
			name:         "one outlier gap at exactly 80 percent",
			dates:        []string{"2025-01-01", "2025-01-31", "2025-03-02", "2025-04-01", "2025-05-01", "2025-05-06"},
			wantInterval: model.IntervalMonthly,
		},
		{
			name:     "outlier share just below the bar",
			dates:    []string{"2025-01-01", "2025-01-31", "2025-03-02", "2025-04-01", "2025-04-06"},
			wantNone: true,
		},
		{
			name:     "too few occurrences",
			dates:    []string{"2025-01-01", "2025-02-01"},
			wantNone: true,
		},
	}

	detector := NewDetector(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := expenseSeries(t, "gym membership", -30, tt.dates...)
			suggestions := detector.Detect(entries, nil)
			if tt.wantNone {
				assert.Empty(t, suggestions)
				return
			}
			require.Len(t, suggestions, 1)
			assert.Equal(t, tt.wantInterval, suggestions[0].Interval)
			assert.Equal(t, len(tt.dates), suggestions[0].Occurrences)
		})
	}
}

func TestDetectorIncomeGroupsByCategory(t *testing.T) {
	// Payslip descriptions vary month to month; the category carries the
	// signal for income, so they must land in one group.
	var entries []model.TransactionDetail
	for _, spec := range []struct {
		date   string
		desc   string
		amount float64
	}{
		{"2025-01-28", "acme payroll jan", 2480},
		{"2025-02-27", "acme payroll feb", 2510},
		{"2025-03-30", "ACME PAYROLL MAR", 2490},
	} {
		entry := day(t, spec.date)
		entry.Description = spec.desc
		entry.CategoryName = "Salary"
		entry.CategoryKind = model.CategoryKindIncome
		entry.CategoryID = 3
		entry.AccountName = "Checking"
		entry.AccountID = 1
		entry.Amount = spec.amount
		entries = append(entries, entry)
	}

	suggestions := NewDetector(Config{}).Detect(entries, nil)
	require.Len(t, suggestions, 1)
	got := suggestions[0]
	assert.Equal(t, "Salary", got.Name)
	assert.Equal(t, model.IntervalMonthly, got.Interval)
	assert.InDelta(t, 2493.33, got.Amount, 0.01)
	assert.Equal(t, day(t, "2025-01-28").Date, got.FirstDate)
}

func TestDetectorExpenseGroupsByDescription(t *testing.T) {
	entries := expenseSeries(t, "netflix plan ", -15, "2025-01-05", "2025-02-05", "2025-03-05")
	entries = append(entries, expenseSeries(t, "spotify", -10, "2025-01-09", "2025-02-09", "2025-03-09")...)

	suggestions := NewDetector(Config{}).Detect(entries, nil)
	require.Len(t, suggestions, 2)
	// Output order follows the group key, so "netflix plan" sorts first.
	assert.Equal(t, "Netflix plan", suggestions[0].Name)
	assert.Equal(t, "Spotify", suggestions[1].Name)
}

func TestDetectorAmountBucketSplitsGroups(t *testing.T) {
	// Same description, but the amounts are far apart: two patterns.
	entries := expenseSeries(t, "insurance", -40, "2025-01-03", "2025-02-03", "2025-03-03")
	entries = append(entries, expenseSeries(t, "insurance", -120, "2025-01-15", "2025-02-15", "2025-03-15")...)

	suggestions := NewDetector(Config{}).Detect(entries, nil)
	assert.Len(t, suggestions, 2)
}

func TestDetectorSkipsExistingRules(t *testing.T) {
	entries := expenseSeries(t, "netflix", -15, "2025-01-05", "2025-02-05", "2025-03-05")

	existing := []model.RecurringRule{{
		Name:       "NETFLIX",
		Interval:   model.IntervalMonthly,
		CategoryID: 10,
		AccountID:  1,
	}}
	suggestions := NewDetector(Config{}).Detect(entries, existing)
	assert.Empty(t, suggestions, "case-insensitive duplicate should be dropped")

	// A rule on another account does not block the suggestion.
	existing[0].AccountID = 2
	suggestions = NewDetector(Config{}).Detect(entries, existing)
	assert.Len(t, suggestions, 1)
}

func TestDetectorIgnoresZeroAmounts(t *testing.T) {
	entries := expenseSeries(t, "placeholder", 0, "2025-01-05", "2025-02-05", "2025-03-05")
	suggestions := NewDetector(Config{}).Detect(entries, nil)
	assert.Empty(t, suggestions)
}

func TestDetectorUnsortedInput(t *testing.T) {
	// Dates arrive in ledger order, not calendar order.
	entries := expenseSeries(t, "rent", -800, "2025-03-01", "2025-01-01", "2025-02-01")
	suggestions := NewDetector(Config{}).Detect(entries, nil)
	require.Len(t, suggestions, 1)
	assert.Equal(t, day(t, "2025-01-01").Date, suggestions[0].FirstDate)
	assert.Equal(t, model.IntervalMonthly, suggestions[0].Interval)
}
