package domain

import "time"

// AuditAction enumerates recorded mutations.
type AuditAction string

const (
	AuditProcessCreated     AuditAction = "process_created"
	AuditProcessUpdated     AuditAction = "process_updated"
	AuditActivityAppended   AuditAction = "activity_appended"
	AuditWorkItemOpened     AuditAction = "workitem_opened"
	AuditWorkItemCompleted  AuditAction = "workitem_completed"
	AuditWorkItemEscalated  AuditAction = "workitem_escalated"
	AuditWorkItemReassigned AuditAction = "workitem_reassigned"
	AuditProcessTimedOut    AuditAction = "process_timed_out"
)

// AuditEntityType identifies which aggregate an entry belongs to.
type AuditEntityType string

const (
	AuditEntityProcess  AuditEntityType = "process"
	AuditEntityActivity AuditEntityType = "activity"
	AuditEntityWorkItem AuditEntityType = "workitem"
)

// SystemActor marks mutations applied by schedulers and the sync
// reconciler rather than a person.
const SystemActor = "system"

// AuditEntry is one record in the traceable mutation history.
type AuditEntry struct {
	ID         string
	EntityType AuditEntityType
	EntityID   string
	Actor      string
	Action     AuditAction
	Comment    string
	CreatedAt  time.Time
}
