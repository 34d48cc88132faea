// Package recurrence infers repeating cash movements from recorded history.
// Detection is heuristic: transactions are grouped by category, account,
// normalized description and a coarse amount bucket, and a group whose day
// gaps cluster around a monthly or weekly cadence becomes a rule suggestion.
package recurrence

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ebbcash/ebb/internal/model"
)

// incomeGroup is the synthetic description shared by all income movements
// of one category, so salaries group together whatever the payslip text says.
const incomeGroup = "---income---"

// unlabeledName names suggestions built from transactions with no description.
const unlabeledName = "Unlabeled movement"

// Config tunes how aggressively repeating movements are detected.
type Config struct {
	// IncomeBucketSize is the amount granularity for income groups. Salaries
	// drift between months, so the bucket is wide.
	IncomeBucketSize float64
	// ExpenseBucketSize is the amount granularity for expense groups.
	ExpenseBucketSize float64
	// MinGroupLen is the smallest run of movements worth calling a pattern.
	MinGroupLen int
	// MonthlyGapLow and MonthlyGapHigh bound the day gaps accepted as a
	// monthly cadence.
	MonthlyGapLow  int
	MonthlyGapHigh int
	// WeeklyGapLow and WeeklyGapHigh bound the day gaps accepted as a
	// weekly cadence.
	WeeklyGapLow  int
	WeeklyGapHigh int
	// MinGapShare is the fraction of gaps that must fall inside a band
	// before the group counts as recurring.
	MinGapShare float64
}

// DefaultConfig returns the stock detection thresholds.
func DefaultConfig() Config {
	return Config{
		IncomeBucketSize:  50,
		ExpenseBucketSize: 5,
		MinGroupLen:       3,
		MonthlyGapLow:     28,
		MonthlyGapHigh:    32,
		WeeklyGapLow:      6,
		WeeklyGapHigh:     8,
		MinGapShare:       0.8,
	}
}

// Detector finds transaction groups that repeat on a stable cadence.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector. Unset config fields fall back to the
// defaults, so a zero Config is usable.
func NewDetector(cfg Config) *Detector {
	defaults := DefaultConfig()
	if cfg.IncomeBucketSize <= 0 {
		cfg.IncomeBucketSize = defaults.IncomeBucketSize
	}
	if cfg.ExpenseBucketSize <= 0 {
		cfg.ExpenseBucketSize = defaults.ExpenseBucketSize
	}
	if cfg.MinGroupLen <= 0 {
		cfg.MinGroupLen = defaults.MinGroupLen
	}
	if cfg.MonthlyGapLow <= 0 {
		cfg.MonthlyGapLow = defaults.MonthlyGapLow
	}
	if cfg.MonthlyGapHigh <= 0 {
		cfg.MonthlyGapHigh = defaults.MonthlyGapHigh
	}
	if cfg.WeeklyGapLow <= 0 {
		cfg.WeeklyGapLow = defaults.WeeklyGapLow
	}
	if cfg.WeeklyGapHigh <= 0 {
		cfg.WeeklyGapHigh = defaults.WeeklyGapHigh
	}
	if cfg.MinGapShare <= 0 {
		cfg.MinGapShare = defaults.MinGapShare
	}
	return &Detector{cfg: cfg}
}

// groupKey identifies one candidate pattern. Category and account names are
// unique per workspace, so keying by name keeps the output order readable.
type groupKey struct {
	categoryName string
	accountName  string
	description  string
	bucket       int
}

// ruleKey is the identity under which a suggestion counts as already known.
type ruleKey struct {
	name       string
	interval   model.RecurrenceInterval
	categoryID int64
	accountID  int64
}

// Detect scans recorded history for repeating movements and returns rule
// candidates not already covered by an existing rule. The scan is pure: the
// same inputs always yield the same suggestions in the same order.
func (d *Detector) Detect(entries []model.TransactionDetail, existing []model.RecurringRule) []model.RecurringSuggestion {
	groups := make(map[groupKey][]model.TransactionDetail)
	for _, entry := range entries {
		if entry.Amount == 0 {
			continue
		}
		key := d.keyFor(entry)
		groups[key] = append(groups[key], entry)
	}

	known := make(map[ruleKey]struct{}, len(existing))
	for _, rule := range existing {
		known[ruleKey{
			name:       strings.ToLower(strings.TrimSpace(rule.Name)),
			interval:   rule.Interval,
			categoryID: rule.CategoryID,
			accountID:  rule.AccountID,
		}] = struct{}{}
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.categoryName != b.categoryName {
			return a.categoryName < b.categoryName
		}
		if a.accountName != b.accountName {
			return a.accountName < b.accountName
		}
		if a.description != b.description {
			return a.description < b.description
		}
		return a.bucket < b.bucket
	})

	var suggestions []model.RecurringSuggestion
	for _, key := range keys {
		members := groups[key]
		if len(members) < d.cfg.MinGroupLen {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Date.Before(members[j].Date)
		})

		interval, ok := d.cadence(members)
		if !ok {
			continue
		}

		suggestion := buildSuggestion(key, members, interval)
		dupKey := ruleKey{
			name:       strings.ToLower(strings.TrimSpace(suggestion.Name)),
			interval:   interval,
			categoryID: suggestion.CategoryID,
			accountID:  suggestion.AccountID,
		}
		if _, dup := known[dupKey]; dup {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions
}

func (d *Detector) keyFor(entry model.TransactionDetail) groupKey {
	divisor := d.cfg.ExpenseBucketSize
	description := normalizeDescription(entry.Description)
	if entry.CategoryKind == model.CategoryKindIncome {
		divisor = d.cfg.IncomeBucketSize
		description = incomeGroup
	}
	return groupKey{
		categoryName: entry.CategoryName,
		accountName:  entry.AccountName,
		description:  description,
		bucket:       int(math.Round(entry.Amount / divisor)),
	}
}

// cadence decides whether the date-sorted members repeat monthly or weekly.
func (d *Detector) cadence(members []model.TransactionDetail) (model.RecurrenceInterval, bool) {
	gaps := make([]int, 0, len(members)-1)
	for i := 1; i < len(members); i++ {
		gaps = append(gaps, model.DaysBetween(members[i-1].Date, members[i].Date))
	}
	if gapShare(gaps, d.cfg.MonthlyGapLow, d.cfg.MonthlyGapHigh) >= d.cfg.MinGapShare {
		return model.IntervalMonthly, true
	}
	if gapShare(gaps, d.cfg.WeeklyGapLow, d.cfg.WeeklyGapHigh) >= d.cfg.MinGapShare {
		return model.IntervalWeekly, true
	}
	return "", false
}

func gapShare(gaps []int, low, high int) float64 {
	if len(gaps) == 0 {
		return 0
	}
	inBand := 0
	for _, gap := range gaps {
		if gap >= low && gap <= high {
			inBand++
		}
	}
	return float64(inBand) / float64(len(gaps))
}

func buildSuggestion(key groupKey, members []model.TransactionDetail, interval model.RecurrenceInterval) model.RecurringSuggestion {
	var sum float64
	for _, member := range members {
		sum += member.Amount
	}

	name := key.categoryName
	if key.description != incomeGroup {
		name = capitalize(key.description)
	}

	first := members[0]
	return model.RecurringSuggestion{
		Name:         name,
		Amount:       sum / float64(len(members)),
		Interval:     interval,
		CategoryID:   first.CategoryID,
		CategoryName: first.CategoryName,
		AccountID:    first.AccountID,
		AccountName:  first.AccountName,
		FirstDate:    first.Date,
		Occurrences:  len(members),
	}
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// capitalize upper-cases the first rune only; "netflix plan" becomes
// "Netflix plan", not "Netflix Plan".
func capitalize(s string) string {
	if s == "" {
		return unlabeledName
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
