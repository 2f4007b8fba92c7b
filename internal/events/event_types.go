package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProcessCreated     EventType = "process_created"
	EventWorkItemCompleted  EventType = "workitem_completed"
	EventProcessEscalated   EventType = "process_escalated"
	EventProcessTimedOut    EventType = "process_timed_out"
	EventWorkItemReassigned EventType = "workitem_reassigned"
	EventSyncCompleted      EventType = "sync_completed"
	EventPushFailed         EventType = "push_failed"
)

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ProcessID string      `json:"process_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ProcessCreatedPayload payload.
type ProcessCreatedPayload struct {
	ExternalReference string `json:"external_reference"`
	Priority          int    `json:"priority"`
	ParticipantID     string `json:"participant_id"`
}

// WorkItemCompletedPayload payload.
type WorkItemCompletedPayload struct {
	WorkItemID string `json:"workitem_id"`
	Comment    string `json:"comment,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// ProcessEscalatedPayload payload.
type ProcessEscalatedPayload struct {
	FromLevel     int    `json:"from_level"`
	ToLevel       int    `json:"to_level"`
	ParticipantID string `json:"participant_id"`
	Automatic     bool   `json:"automatic"`
}

// WorkItemReassignedPayload payload.
type WorkItemReassignedPayload struct {
	WorkItemID       string `json:"workitem_id"`
	OldParticipantID string `json:"old_participant_id"`
	NewParticipantID string `json:"new_participant_id"`
}

// SyncCompletedPayload payload.
type SyncCompletedPayload struct {
	Mode             string `json:"mode"`
	Seen             int    `json:"seen"`
	Created          int    `json:"created"`
	Updated          int    `json:"updated"`
	ClosedExternally int    `json:"closed_externally"`
}

// PushFailedPayload payload.
type PushFailedPayload struct {
	Kind     string `json:"kind"`
	Ref      string `json:"ref"`
	Attempts int    `json:"attempts"`
}
