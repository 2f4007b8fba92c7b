package domain

import "time"

// WorkItemStatus enumerates work item states. Terminal via status
// transition only; work items are never deleted.
type WorkItemStatus string

const (
	WorkItemStatusPending WorkItemStatus = "PENDING"
	WorkItemStatusDone    WorkItemStatus = "DONE"
)

// WorkItem is a single actionable assignment to one participant.
type WorkItem struct {
	ID              string
	ActivityID      string
	ParticipantID   string
	ParticipantType ParticipantType
	Status          WorkItemStatus
	Deadline        time.Time
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Open reports whether the item still awaits action.
func (w *WorkItem) Open() bool {
	return w.Status == WorkItemStatusPending
}
