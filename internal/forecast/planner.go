package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/ebbcash/ebb/internal/model"
	"github.com/ebbcash/ebb/internal/service"
)

// ScheduleStatus reports the outcome for one goal.
type ScheduleStatus string

const (
	// StatusScheduled means a date was found that keeps the balance safe.
	StatusScheduled ScheduleStatus = "scheduled"
	// StatusInfeasible means no day in the horizon can absorb the goal.
	// It is an outcome, not an error.
	StatusInfeasible ScheduleStatus = "infeasible"
)

// ScheduledGoal is one goal with its suggested spend date.
type ScheduledGoal struct {
	ScheduledDate time.Time
	Goal          model.Goal
	Status        ScheduleStatus
}

// Planner finds spend dates for pending goals that keep the projected
// balance above a safety floor.
type Planner struct {
	store     service.Storage
	projector *Projector
}

// NewPlanner creates a planner backed by the given store.
func NewPlanner(store service.Storage) *Planner {
	return &Planner{store: store, projector: NewProjector(store)}
}

// Schedule projects the balance over [today, today+horizonMonths] and walks
// pending goals smallest magnitude first, assigning each the earliest day
// that keeps the whole remaining curve at or above safety. Accepted goals
// reshape the curve later goals are tested against, so the order is part of
// the policy. Goals that fit nowhere come back with StatusInfeasible.
func (p *Planner) Schedule(ctx context.Context, workspaceID int64, safety float64, horizonMonths int, accountID int64) ([]ScheduledGoal, error) {
	today := model.Day(time.Now())
	end := today.AddDate(0, horizonMonths, 0)

	initial, err := InitialBalance(ctx, p.store, workspaceID, today, accountID)
	if err != nil {
		return nil, err
	}
	events, err := p.projector.Project(ctx, workspaceID, today, end, accountID)
	if err != nil {
		return nil, err
	}
	goals, err := p.store.ListGoals(ctx, workspaceID, model.GoalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending goals: %w", err)
	}

	curve := DailyCurve(initial, events, today, end)
	return ScheduleOnCurve(curve, goals, safety), nil
}

// ScheduleOnCurve is the pure core of Schedule. Goals are taken in the
// given order; the store already lists them smallest magnitude first.
func ScheduleOnCurve(curve []DayBalance, goals []model.Goal, safety float64) []ScheduledGoal {
	working := make([]float64, len(curve))
	for i, day := range curve {
		working[i] = day.Balance
	}

	suffixMin := make([]float64, len(curve))
	results := make([]ScheduledGoal, 0, len(goals))
	for _, goal := range goals {
		// A goal applied from day d shifts the whole suffix by its amount,
		// so min(curve[d:]) + amount >= safety decides d in one lookup.
		for i := len(working) - 1; i >= 0; i-- {
			suffixMin[i] = working[i]
			if i+1 < len(working) && suffixMin[i+1] < suffixMin[i] {
				suffixMin[i] = suffixMin[i+1]
			}
		}

		result := ScheduledGoal{Goal: goal, Status: StatusInfeasible}
		for i := range working {
			if suffixMin[i]+goal.Amount < safety {
				continue
			}
			result.ScheduledDate = curve[i].Date
			result.Status = StatusScheduled
			for j := i; j < len(working); j++ {
				working[j] += goal.Amount
			}
			break
		}
		results = append(results, result)
	}
	return results
}
