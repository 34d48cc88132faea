package classify

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/ebbcash/ebb/internal/service"
)

// minTrainingSamples is the smallest history a workspace model trains on.
// Below this the posterior is dominated by the priors and predictions are
// noise.
const minTrainingSamples = 10

// bayesModel is a multinomial naive Bayes classifier over description
// bag-of-words. Counts are enough to score at predict time, so only the
// counts are persisted.
type bayesModel struct {
	TrainedAt   time.Time                 `json:"trained_at"`
	WordCounts  map[string]map[string]int `json:"word_counts"`
	ClassCounts map[string]int            `json:"class_counts"`
	Samples     int                       `json:"samples"`
}

// trainBayes builds a model from labeled descriptions. Samples with a
// blank description or category contribute nothing. The caller checks the
// minimum sample count; this stays a pure fold.
func trainBayes(samples []service.LabeledDescription) *bayesModel {
	m := &bayesModel{
		TrainedAt:   time.Now().UTC(),
		WordCounts:  make(map[string]map[string]int),
		ClassCounts: make(map[string]int),
	}

	for _, sample := range samples {
		words := tokenize(sample.Description)
		category := strings.TrimSpace(sample.Category)
		if len(words) == 0 || category == "" {
			continue
		}

		m.ClassCounts[category]++
		m.Samples++

		counts, ok := m.WordCounts[category]
		if !ok {
			counts = make(map[string]int)
			m.WordCounts[category] = counts
		}
		for _, word := range words {
			counts[word]++
		}
	}

	return m
}

// predict scores every class for the description and returns the best one.
// The second result is false when the description tokenizes to nothing or
// the model is empty.
func (m *bayesModel) predict(description string) (string, bool) {
	words := tokenize(description)
	if len(words) == 0 || m.Samples == 0 {
		return "", false
	}

	vocabulary := make(map[string]struct{})
	classTotals := make(map[string]int, len(m.WordCounts))
	for category, counts := range m.WordCounts {
		for word, count := range counts {
			vocabulary[word] = struct{}{}
			classTotals[category] += count
		}
	}

	var best string
	bestScore := math.Inf(-1)
	for category, classCount := range m.ClassCounts {
		// Log prior plus Laplace-smoothed log likelihood per word.
		score := math.Log(float64(classCount) / float64(m.Samples))
		counts := m.WordCounts[category]
		denominator := float64(classTotals[category] + len(vocabulary))
		for _, word := range words {
			score += math.Log(float64(counts[word]+1) / denominator)
		}

		if score > bestScore || (score == bestScore && category < best) {
			best = category
			bestScore = score
		}
	}

	return best, best != ""
}

// tokenize lowercases a description and splits it into word tokens.
// Single-rune tokens carry no signal and are dropped.
func tokenize(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < 2 {
			continue
		}
		words = append(words, field)
	}
	return words
}
