package model

import "time"

// Rule maps a description keyword to a category for data-entry suggestions.
// When several rules match a description the longest keyword wins.
type Rule struct {
	CreatedAt   time.Time
	Keyword     string
	ID          int64
	WorkspaceID int64
	CategoryID  int64
}
