// Package activity exposes the append-only audit trail written by every
// mutating service call. Listing is gated by the reports module.
package activity

import (
	"encoding/json"
	"time"
)

// Entry is one audit trail record.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	Module     string          `json:"module"`
	EntityID   string          `json:"entity_id"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ListEntriesRequest carries listing filters.
type ListEntriesRequest struct {
	ActorID *string
	Module  *string
	Action  *string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// ModuleCount aggregates activity volume per module over a window, used
// by the daily digest job.
type ModuleCount struct {
	Module string `json:"module"`
	Count  int64  `json:"count"`
}
