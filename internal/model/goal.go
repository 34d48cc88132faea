package model

import (
	"math"
	"time"
)

// GoalStatus tracks whether a spending goal has been funded.
type GoalStatus string

const (
	// GoalStatusPending marks goals still waiting to be scheduled.
	GoalStatusPending GoalStatus = "pending"
	// GoalStatusSatisfied marks goals the user has marked as done.
	GoalStatusSatisfied GoalStatus = "satisfied"
)

// Goal is a discretionary outflow the user wants to fit into the forecast
// without breaching their safety balance. Amounts are stored negative.
type Goal struct {
	CreatedAt   time.Time
	Description string
	Status      GoalStatus
	ID          int64
	WorkspaceID int64
	Priority    int
	Amount      float64
}

// Normalize forces the stored amount negative regardless of input sign.
func (g *Goal) Normalize() {
	g.Amount = -math.Abs(g.Amount)
}
