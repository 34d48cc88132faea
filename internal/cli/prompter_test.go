package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/model"
)

func suggestion(name string, amount float64) model.RecurringSuggestion {
	return model.RecurringSuggestion{
		FirstDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Name:         name,
		CategoryName: "Subscriptions",
		AccountName:  "Checking",
		Interval:     model.IntervalMonthly,
		CategoryID:   3,
		AccountID:    1,
		Amount:       amount,
		Occurrences:  4,
	}
}

func TestReviewDecisions(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("a\ns\na\n"), output)

	suggestions := []model.RecurringSuggestion{
		suggestion("Netflix plan", -15.99),
		suggestion("Gym membership", -40),
		suggestion("Salary", 2500),
	}

	outcome, err := prompter.Review(context.Background(), suggestions, nil)
	require.NoError(t, err)

	require.Len(t, outcome.Accepted, 2)
	assert.Equal(t, "Netflix plan", outcome.Accepted[0].Name)
	assert.Equal(t, "Salary", outcome.Accepted[1].Name)
	assert.Equal(t, 1, outcome.Skipped)
	assert.False(t, outcome.Quit)

	text := output.String()
	assert.Contains(t, text, "Netflix plan")
	assert.Contains(t, text, "Gym membership")
	assert.Contains(t, text, "Review Complete")
}

func TestReviewQuitKeepsEarlierDecisions(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("a\nq\n"), output)

	suggestions := []model.RecurringSuggestion{
		suggestion("Rent", -800),
		suggestion("Netflix plan", -15.99),
		suggestion("Salary", 2500),
	}

	outcome, err := prompter.Review(context.Background(), suggestions, nil)
	require.NoError(t, err)

	require.Len(t, outcome.Accepted, 1)
	assert.Equal(t, "Rent", outcome.Accepted[0].Name)
	assert.True(t, outcome.Quit)
	assert.Equal(t, 0, outcome.Skipped)
}

func TestReviewRetriesInvalidChoice(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("x\n\na\n"), output)

	outcome, err := prompter.Review(context.Background(), []model.RecurringSuggestion{
		suggestion("Rent", -800),
	}, nil)
	require.NoError(t, err)

	assert.Len(t, outcome.Accepted, 1)
	assert.Contains(t, output.String(), "Invalid choice")
}

func TestReviewCancelledContext(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader(""), output)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := prompter.Review(ctx, []model.RecurringSuggestion{
		suggestion("Rent", -800),
	}, nil)
	require.NoError(t, err, "cancellation is a graceful stop, not an error")
	assert.Empty(t, outcome.Accepted)
}

func TestReviewEmptySuggestions(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader(""), output)

	outcome, err := prompter.Review(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, outcome.Accepted)
	assert.Zero(t, outcome.Skipped)
	assert.Empty(t, output.String(), "nothing to review prints nothing")
}

func TestReviewEOFIsAnError(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("a\n"), output)

	// Input dries up before the second decision.
	_, err := prompter.Review(context.Background(), []model.RecurringSuggestion{
		suggestion("Rent", -800),
		suggestion("Salary", 2500),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input terminated")
}

func TestReviewAcceptCallbackRunsPerDecision(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("a\ns\na\n"), output)

	var persisted []string
	outcome, err := prompter.Review(context.Background(), []model.RecurringSuggestion{
		suggestion("Rent", -800),
		suggestion("Netflix plan", -15.99),
		suggestion("Salary", 2500),
	}, func(s model.RecurringSuggestion) error {
		persisted = append(persisted, s.Name)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Rent", "Salary"}, persisted)
	assert.Len(t, outcome.Accepted, 2)
}

func TestReviewAcceptCallbackErrorStopsSession(t *testing.T) {
	output := &bytes.Buffer{}
	prompter := NewReviewPrompter(strings.NewReader("a\na\n"), output)

	calls := 0
	outcome, err := prompter.Review(context.Background(), []model.RecurringSuggestion{
		suggestion("Rent", -800),
		suggestion("Salary", 2500),
	}, func(model.RecurringSuggestion) error {
		calls++
		if calls == 2 {
			return assert.AnError
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Salary")

	// The first acceptance went through before the failure.
	require.Len(t, outcome.Accepted, 1)
	assert.Equal(t, "Rent", outcome.Accepted[0].Name)
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "yes word", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty defaults to no", input: "\n", want: false},
		{name: "garbage defaults to no", input: "maybe\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			got, err := ConfirmAction(context.Background(), strings.NewReader(tt.input), output, "Restore this snapshot?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, output.String(), "Restore this snapshot?")
		})
	}
}

func TestConfirmActionEOF(t *testing.T) {
	got, err := ConfirmAction(context.Background(), strings.NewReader(""), &bytes.Buffer{}, "Delete everything?")
	require.NoError(t, err)
	assert.False(t, got, "closed input counts as no")
}
