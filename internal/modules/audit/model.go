package audit

import (
	"time"
)

// Entry is an immutable record of one state-changing action against the
// workspace. The audit log is the system's only durable causal trail, so
// every mutating service writes exactly one entry per mutation.
type Entry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	TargetID   string    `json:"target_id"`
	TargetType string    `json:"target_type"` // request, catalog_item, settings, member
	Summary    string    `json:"summary"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter narrows the audit viewer's result set. Zero values match everything.
type Filter struct {
	Action     string `json:"action"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	ActorID    string `json:"actor_id"`
	Search     string `json:"search"` // case-insensitive substring over summary
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// Page is one page of the viewer, newest entries first.
type Page struct {
	Entries  []*Entry `json:"entries"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}
