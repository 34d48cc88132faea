package model

import "time"

// EventSource tells which ledger layer produced a cash event.
type EventSource string

const (
	// EventSourceActual marks recorded history.
	EventSourceActual EventSource = "actual"
	// EventSourcePlanned marks one-off expected movements.
	EventSourcePlanned EventSource = "planned"
	// EventSourceRecurring marks occurrences expanded from recurring rules.
	EventSourceRecurring EventSource = "recurring"
)

// CashEvent is one dated, signed movement on the unified future timeline.
// Events are derived on demand from the ledger and never persisted.
type CashEvent struct {
	Date         time.Time
	Description  string
	CategoryName string
	Source       EventSource
	CategoryID   int64
	AccountID    int64
	Amount       float64
}
