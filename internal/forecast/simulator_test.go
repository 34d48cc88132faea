package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebbcash/ebb/internal/model"
)

func event(t *testing.T, day string, amount float64) model.CashEvent {
	t.Helper()
	return model.CashEvent{Date: date(t, day), Amount: amount, Source: model.EventSourcePlanned}
}

func TestRunComposesBalances(t *testing.T) {
	events := []model.CashEvent{
		event(t, "2025-01-02", -300),
		event(t, "2025-01-05", 1200),
		event(t, "2025-01-05", -50),
	}

	points := Run(1000, events)
	require.Len(t, points, 3)
	assert.Equal(t, 700.0, points[0].Balance)
	assert.Equal(t, 1900.0, points[1].Balance)
	assert.Equal(t, 1850.0, points[2].Balance)

	// balance(n) = initial + sum of amounts through n.
	var sum float64
	for i, point := range points {
		sum += events[i].Amount
		assert.Equal(t, 1000+sum, point.Balance)
	}
}

func TestDailyCurve(t *testing.T) {
	events := []model.CashEvent{
		event(t, "2025-01-02", -300),
		event(t, "2025-01-04", 100),
		event(t, "2025-01-04", 50),
		// Out of range, ignored.
		event(t, "2025-02-01", -999),
		event(t, "2024-12-31", -999),
	}

	curve := DailyCurve(1000, events, date(t, "2025-01-01"), date(t, "2025-01-05"))
	require.Len(t, curve, 5)

	wantBalances := []float64{1000, 700, 700, 850, 850}
	for i, day := range curve {
		assert.Equal(t, date(t, "2025-01-01").AddDate(0, 0, i), day.Date)
		assert.Equal(t, wantBalances[i], day.Balance, "day %d", i)
	}

	assert.Nil(t, DailyCurve(1000, nil, date(t, "2025-01-05"), date(t, "2025-01-01")))
}

func TestMonthlyOutlook(t *testing.T) {
	events := []model.CashEvent{
		event(t, "2025-01-20", 2500),
		event(t, "2025-01-25", -800),
		event(t, "2025-02-20", 2500),
		event(t, "2025-02-25", -800),
		event(t, "2025-02-27", -100),
	}

	rows := MonthlyOutlook(1000, events, date(t, "2025-01-15"), 3)
	require.Len(t, rows, 3)

	january := rows[0]
	assert.Equal(t, time.January, january.Month.Month())
	assert.Equal(t, 2500.0, january.Income)
	assert.Equal(t, 800.0, january.Expenses)
	assert.Equal(t, 1700.0, january.Net)
	assert.Equal(t, 2700.0, january.Balance)

	february := rows[1]
	assert.Equal(t, 1600.0, february.Net)
	assert.Equal(t, 4300.0, february.Balance)

	// Nothing lands in March; the balance carries over.
	march := rows[2]
	assert.Equal(t, 0.0, march.Income)
	assert.Equal(t, 0.0, march.Expenses)
	assert.Equal(t, 4300.0, march.Balance)
}

func TestInitialBalance(t *testing.T) {
	ctx := context.Background()
	f := newForecastFixture(t, 1000)

	f.addActual(t, "2025-01-10", 2000, f.salary.ID, "Salary")
	f.addActual(t, "2025-01-20", -700, f.rent.ID, "Rent")
	// On the cutoff day: excluded, the projection will carry it instead.
	f.addActual(t, "2025-02-01", -100, f.rent.ID, "Cutoff day")

	initial, err := InitialBalance(ctx, f.store, f.ws.ID, date(t, "2025-02-01"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2300.0, initial)

	initial, err = InitialBalance(ctx, f.store, f.ws.ID, date(t, "2025-02-01"), f.checking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2300.0, initial)
}
