package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

func rule(keyword, categoryName string) service.RuleDetail {
	return service.RuleDetail{
		Rule:         model.Rule{Keyword: keyword},
		CategoryName: categoryName,
	}
}

func TestSuggestCategory(t *testing.T) {
	// ListRules returns keywords longest first, so the fixture does too.
	rules := []service.RuleDetail{
		rule("tesco express", "Dining Out"),
		rule("netflix", "Subscriptions"),
		rule("tesco", "Groceries"),
	}

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{name: "longest keyword wins", description: "TESCO EXPRESS LONDON", want: "Dining Out"},
		{name: "shorter keyword still matches", description: "Tesco store 42", want: "Groceries"},
		{name: "case insensitive", description: "NETFLIX.COM renewal", want: "Subscriptions"},
		{name: "no match falls back", description: "unknown merchant", want: model.CategoryNameUncategorized},
		{name: "blank falls back", description: "   ", want: model.CategoryNameUncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestCategory(tt.description, rules))
		})
	}
}

func TestSuggestCategoryNoRules(t *testing.T) {
	assert.Equal(t, model.CategoryNameUncategorized, SuggestCategory("anything at all", nil))
}

func labeled(description, category string) service.LabeledDescription {
	return service.LabeledDescription{Description: description, Category: category}
}

func trainingSamples() []service.LabeledDescription {
	return []service.LabeledDescription{
		labeled("tesco metro groceries", "Groceries"),
		labeled("weekly tesco shop", "Groceries"),
		labeled("tesco superstore", "Groceries"),
		labeled("corner market vegetables", "Groceries"),
		labeled("netflix monthly plan", "Subscriptions"),
		labeled("netflix renewal", "Subscriptions"),
		labeled("spotify family plan", "Subscriptions"),
		labeled("spotify premium", "Subscriptions"),
		labeled("monthly rent flat 4b", "Housing"),
		labeled("rent payment april", "Housing"),
		labeled("rent payment may", "Housing"),
		labeled("landlord rent transfer", "Housing"),
	}
}

func TestRegistryTrainAndPredict(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	count, err := registry.Train(7, trainingSamples())
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.True(t, registry.Trained(7))

	tests := []struct {
		description string
		want        string
	}{
		{description: "netflix plan june", want: "Subscriptions"},
		{description: "rent for june", want: "Housing"},
		{description: "TESCO city centre", want: "Groceries"},
	}
	for _, tt := range tests {
		got, ok := registry.Predict(7, tt.description)
		require.True(t, ok, "expected a prediction for %q", tt.description)
		assert.Equal(t, tt.want, got)
	}
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := NewRegistry(dir)
	_, err := first.Train(3, trainingSamples())
	require.NoError(t, err)

	// A fresh registry simulates a new process reading the saved model.
	second := NewRegistry(dir)
	require.True(t, second.Trained(3))

	got, ok := second.Predict(3, "spotify renewal")
	require.True(t, ok)
	assert.Equal(t, "Subscriptions", got)

	_, ok = second.Predict(99, "spotify renewal")
	assert.False(t, ok, "workspace 99 has no model")
}

func TestRegistryInsufficientData(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	// Blank descriptions and categories do not count toward the minimum.
	samples := trainingSamples()[:8]
	samples = append(samples,
		labeled("   ", "Groceries"),
		labeled("late night taxi", ""),
		labeled("coffee", "Dining Out"),
	)

	_, err := registry.Train(1, samples)
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, registry.Trained(1))
}

func TestRegistryRetrainReplacesModel(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	_, err := registry.Train(5, trainingSamples())
	require.NoError(t, err)

	// Relabel everything so the same words now point elsewhere.
	relabeled := make([]service.LabeledDescription, 0, 12)
	for _, sample := range trainingSamples() {
		relabeled = append(relabeled, labeled(sample.Description, "Miscellaneous"))
	}
	count, err := registry.Train(5, relabeled)
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	got, ok := registry.Predict(5, "netflix plan")
	require.True(t, ok)
	assert.Equal(t, "Miscellaneous", got)
}

func TestPredictWithoutUsableWords(t *testing.T) {
	registry := NewRegistry(t.TempDir())
	_, err := registry.Train(2, trainingSamples())
	require.NoError(t, err)

	_, ok := registry.Predict(2, "!! a 1 ?")
	assert.False(t, ok, "single-rune tokens carry no signal")
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{name: "splits on punctuation", description: "NETFLIX.COM/renewal", want: []string{"netflix", "com", "renewal"}},
		{name: "drops single runes", description: "a b flat 4b", want: []string{"flat", "4b"}},
		{name: "empty", description: "  ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.description))
		})
	}
}
