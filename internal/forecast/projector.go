// Package forecast projects future cash movement onto a single timeline and
// simulates the balances that follow from it. Projection folds three layers,
// actual transactions, planned one-offs and recurring rule expansions, with
// actual and planned entries suppressing recurring occurrences that would
// double-count the same (date, category).
package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// Projector builds the unified future timeline for a workspace. It is
// stateless: every call recomputes from current store contents.
type Projector struct {
	store service.Storage
}

// NewProjector creates a projector backed by the given store.
func NewProjector(store service.Storage) *Projector {
	return &Projector{store: store}
}

// suppressKey marks a (date, category) slot already occupied by an actual
// or planned entry.
type suppressKey struct {
	date       string
	categoryID int64
}

// Project returns every cash event in [start, end] inclusive, ascending by
// date. Ties keep actual before planned before recurring. Only standard
// accounts take part; accountID narrows to one account, zero means all.
// Projecting twice over unchanged state yields identical sequences.
func (p *Projector) Project(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64) ([]model.CashEvent, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, nil
	}

	actual, err := p.store.TransactionEventsInRange(ctx, workspaceID, start, end, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actual events: %w", err)
	}
	planned, err := p.store.PlannedEventsInRange(ctx, workspaceID, start, end, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load planned events: %w", err)
	}

	suppressed := make(map[suppressKey]struct{}, len(actual)+len(planned))
	for _, event := range actual {
		suppressed[suppressKey{event.Date.Format(model.DateLayout), event.CategoryID}] = struct{}{}
	}
	for _, event := range planned {
		suppressed[suppressKey{event.Date.Format(model.DateLayout), event.CategoryID}] = struct{}{}
	}

	recurring, err := p.expandRules(ctx, workspaceID, start, end, accountID, suppressed)
	if err != nil {
		return nil, err
	}

	// Concatenation order is the tie-break order; the stable sort by date
	// preserves it for same-day events.
	events := make([]model.CashEvent, 0, len(actual)+len(planned)+len(recurring))
	events = append(events, actual...)
	events = append(events, planned...)
	events = append(events, recurring...)
	sortEventsByDate(events)
	return events, nil
}

// expandRules emits recurring occurrences inside [start, end] that are not
// suppressed by an actual or planned entry on the same date and category.
func (p *Projector) expandRules(ctx context.Context, workspaceID int64, start, end time.Time, accountID int64, suppressed map[suppressKey]struct{}) ([]model.CashEvent, error) {
	rules, err := p.store.ListProjectableRules(ctx, workspaceID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	categories, err := p.store.ListCategories(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, category := range categories {
		categoryNames[category.ID] = category.Name
	}

	var events []model.CashEvent
	for _, rule := range rules {
		for date := firstOccurrence(rule, start); !date.After(end); date = nextOccurrence(rule, date) {
			key := suppressKey{date.Format(model.DateLayout), rule.CategoryID}
			if _, taken := suppressed[key]; taken {
				continue
			}
			events = append(events, model.CashEvent{
				Date:         date,
				Description:  rule.Name,
				CategoryName: categoryNames[rule.CategoryID],
				Source:       model.EventSourceRecurring,
				CategoryID:   rule.CategoryID,
				AccountID:    rule.AccountID,
				Amount:       rule.Amount,
			})
		}
	}
	return events, nil
}

// firstOccurrence aligns a rule to its first due date on or after start.
// Rules starting in the future begin on their own start date.
func firstOccurrence(rule model.RecurringRule, start time.Time) time.Time {
	anchor := model.Day(rule.StartDate)
	if !anchor.Before(start) {
		return anchor
	}
	switch rule.Interval {
	case model.IntervalDaily:
		return start
	case model.IntervalWeekly:
		days := model.DaysBetween(anchor, start)
		candidate := anchor.AddDate(0, 0, (days/7)*7)
		if candidate.Before(start) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate
	case model.IntervalMonthly:
		candidate := clampToMonth(start.Year(), start.Month(), anchor.Day())
		if candidate.Before(start) {
			candidate = clampToMonth(monthAfter(start.Year(), start.Month(), anchor.Day()))
		}
		return candidate
	default:
		return start
	}
}

// nextOccurrence advances one interval. Monthly rules re-derive each month
// from the anchor day, so a day-31 rule lands on Feb 28 and returns to
// Mar 31 instead of drifting to the shortest month seen so far.
func nextOccurrence(rule model.RecurringRule, current time.Time) time.Time {
	switch rule.Interval {
	case model.IntervalDaily:
		return current.AddDate(0, 0, 1)
	case model.IntervalWeekly:
		return current.AddDate(0, 0, 7)
	case model.IntervalMonthly:
		return clampToMonth(monthAfter(current.Year(), current.Month(), rule.StartDate.Day()))
	default:
		return current.AddDate(0, 0, 1)
	}
}

// monthAfter returns the following calendar month with the anchor day.
func monthAfter(year int, month time.Month, anchorDay int) (int, time.Month, int) {
	next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return next.Year(), next.Month(), anchorDay
}

// clampToMonth pins day into the month's valid range: a day-31 anchor lands
// on the 28th, 29th or 30th when the month is shorter.
func clampToMonth(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// sortEventsByDate stable-sorts by date only, keeping insertion order for
// same-day events.
func sortEventsByDate(events []model.CashEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}
