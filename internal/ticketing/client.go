// Package ticketing is the boundary to the external ticketing system.
// The external system is authoritative for ticket existence and
// closure; the local store is authoritative for escalation state.
package ticketing

import (
	"context"
	"time"
)

// TicketStatus values as the external system reports them.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusClosed     = "CLOSED"
)

// Ticket is the external system's view of one ticket.
type Ticket struct {
	Ref          string `json:"ref"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	ClientName   string `json:"client_name"`
	Subject      string `json:"subject"`
	Neighborhood string `json:"neighborhood"`
	Priority     int    `json:"priority"`
	Status       string `json:"status"`
	// AssigneeRef is inconsistent upstream: sometimes an id, sometimes
	// a display name or email. Normalized at the sync boundary.
	AssigneeRef string            `json:"assignee"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty"`
}

// Closed reports whether the external system considers the ticket done.
func (t Ticket) Closed() bool {
	return t.Status == StatusClosed || t.ClosedAt != nil
}

// Comment is one entry of a ticket's thread.
type Comment struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter selects tickets for a pull.
type Filter struct {
	Statuses []string
	From     *time.Time
	To       *time.Time
	PageSize int
}

// ProgressFunc reports (current, total) while a paginated pull runs.
type ProgressFunc func(current, total int)

// Client is the read/write contract with the ticketing system. All
// methods take a context; implementations must not block indefinitely.
type Client interface {
	ListTickets(ctx context.Context, filter Filter, progress ProgressFunc) ([]Ticket, error)
	GetTicket(ctx context.Context, ref string) (*Ticket, error)
	ListComments(ctx context.Context, ref string) ([]Comment, error)
	AddComment(ctx context.Context, ref, body string) error
	ChangeAssignee(ctx context.Context, ref, assigneeRef string) error
	ChangePriority(ctx context.Context, ref string, priority int) error
}
