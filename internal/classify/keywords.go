// Package classify suggests categories for transaction descriptions. Two
// mechanisms feed the suggestion: user-defined keyword rules, checked
// first, and a per-workspace naive Bayes model trained on labeled history.
// Suggestions only pre-fill; nothing downstream depends on them being right.
package classify

import (
	"strings"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// SuggestCategory applies keyword rules to a description and returns the
// matched category name. Rules must arrive longest keyword first, the
// order ListRules returns them, so more specific keywords win. Blank
// descriptions and misses fall back to the catch-all category.
func SuggestCategory(description string, rules []service.RuleDetail) string {
	lowered := strings.ToLower(strings.TrimSpace(description))
	if lowered == "" {
		return model.CategoryNameUncategorized
	}
	for _, rule := range rules {
		if strings.Contains(lowered, rule.Rule.Keyword) {
			return rule.CategoryName
		}
	}
	return model.CategoryNameUncategorized
}
