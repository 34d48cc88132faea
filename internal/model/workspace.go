package model

import "time"

// Workspace is an isolated ledger. Every persisted entity belongs to exactly
// one workspace and no query crosses workspace boundaries.
type Workspace struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}
