package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// InitialBalance computes the liquid position at the start of a horizon:
// the opening balances of standard accounts plus every recorded movement
// strictly before start. accountID narrows to one account, zero means all.
func InitialBalance(ctx context.Context, store service.Storage, workspaceID int64, start time.Time, accountID int64) (float64, error) {
	opening, err := store.SumOpeningBalances(ctx, workspaceID, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum opening balances: %w", err)
	}
	recorded, err := store.SumTransactionsBefore(ctx, workspaceID, start, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum recorded history: %w", err)
	}
	return opening + recorded, nil
}

// BalancePoint pairs a cash event with the balance after it lands.
type BalancePoint struct {
	Event   model.CashEvent
	Balance float64
}

// Run folds a date-ordered event sequence into per-event running balances.
// The input must already be sorted; Run never re-sorts.
func Run(initial float64, events []model.CashEvent) []BalancePoint {
	points := make([]BalancePoint, 0, len(events))
	balance := initial
	for _, event := range events {
		balance += event.Amount
		points = append(points, BalancePoint{Event: event, Balance: balance})
	}
	return points
}

// DayBalance is the projected balance at the end of one day.
type DayBalance struct {
	Date    time.Time
	Balance float64
}

// DailyCurve expands events into one balance per day over [start, end]
// inclusive. Events outside the range are ignored. The curve is what the
// goal scheduler scans, so every day appears even when nothing moves.
func DailyCurve(initial float64, events []model.CashEvent, start, end time.Time) []DayBalance {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil
	}

	days := model.DaysBetween(start, end) + 1
	deltas := make([]float64, days)
	for _, event := range events {
		offset := model.DaysBetween(start, event.Date)
		if offset < 0 || offset >= days {
			continue
		}
		deltas[offset] += event.Amount
	}

	curve := make([]DayBalance, days)
	balance := initial
	for i := 0; i < days; i++ {
		balance += deltas[i]
		curve[i] = DayBalance{Date: start.AddDate(0, 0, i), Balance: balance}
	}
	return curve
}

// MonthRow summarizes one projected month: expected income, expected
// spending (as a positive number), their net and the running balance at
// month end.
type MonthRow struct {
	Month    time.Time
	Income   float64
	Expenses float64
	Net      float64
	Balance  float64
}

// MonthlyOutlook aggregates events into per-month flows for the given
// number of months starting at start's month. Events beyond the last month
// are ignored; the running balance begins at initial.
func MonthlyOutlook(initial float64, events []model.CashEvent, start time.Time, months int) []MonthRow {
	type flow struct {
		income  float64
		expense float64
	}
	flows := make(map[string]*flow)
	for _, event := range events {
		key := event.Date.Format("2006-01")
		f := flows[key]
		if f == nil {
			f = &flow{}
			flows[key] = f
		}
		if event.Amount > 0 {
			f.income += event.Amount
		} else {
			f.expense += -event.Amount
		}
	}

	rows := make([]MonthRow, 0, months)
	running := initial
	for i := 0; i < months; i++ {
		month := time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		var income, expenses float64
		if f := flows[month.Format("2006-01")]; f != nil {
			income, expenses = f.income, f.expense
		}
		net := income - expenses
		running += net
		rows = append(rows, MonthRow{
			Month:    month,
			Income:   income,
			Expenses: expenses,
			Net:      net,
			Balance:  running,
		})
	}
	return rows
}
