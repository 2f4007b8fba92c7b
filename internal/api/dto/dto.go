package dto

import (
	"time"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// CompleteWorkItemRequest payload.
type CompleteWorkItemRequest struct {
	Comment  string `json:"comment"`
	Evidence string `json:"evidence,omitempty"`
}

// EscalateWorkItemRequest payload.
type EscalateWorkItemRequest struct {
	Comment          string `json:"comment"`
	Target           string `json:"target"`
	PriorityOverride *int   `json:"priority_override,omitempty"`
}

// ReassignWorkItemRequest payload.
type ReassignWorkItemRequest struct {
	Participant string `json:"participant"`
}

// RunSyncRequest payload.
type RunSyncRequest struct {
	Mode string `json:"mode"`
}

// RouteInput names a technician and the tickets routed to them.
type RouteInput struct {
	Technician string   `json:"technician"`
	Tickets    []string `json:"tickets"`
}

// PublishRoutesRequest payload.
type PublishRoutesRequest struct {
	Routes []RouteInput `json:"routes"`
}

// WorkItemResponse response.
type WorkItemResponse struct {
	ID              string                 `json:"id"`
	ActivityID      string                 `json:"activity_id"`
	ParticipantID   string                 `json:"participant_id"`
	ParticipantType domain.ParticipantType `json:"participant_type"`
	Status          domain.WorkItemStatus  `json:"status"`
	Deadline        time.Time              `json:"deadline"`
	CreatedAt       time.Time              `json:"created_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// ProcessResponse response.
type ProcessResponse struct {
	ID                string                 `json:"id"`
	ExternalReference string                 `json:"external_reference"`
	Title             string                 `json:"title"`
	ProcessType       string                 `json:"process_type"`
	Priority          int                    `json:"priority"`
	Status            domain.ProcessStatus   `json:"status"`
	Metadata          domain.ProcessMetadata `json:"metadata"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// DispatchTicketResponse response.
type DispatchTicketResponse struct {
	Ref          string         `json:"ref"`
	Title        string         `json:"title"`
	ClientName   string         `json:"client_name"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	Priority     int            `json:"priority"`
	HoursOpen    int            `json:"hours_open"`
	Band         domain.SLABand `json:"band"`
	Recurrence   int            `json:"recurrence"`
	Score        int            `json:"score"`
	Lat          *float64       `json:"lat,omitempty"`
	Lng          *float64       `json:"lng,omitempty"`
}

// FromWorkItem maps a work item to its response shape.
func FromWorkItem(item *domain.WorkItem) WorkItemResponse {
	return WorkItemResponse{
		ID:              item.ID,
		ActivityID:      item.ActivityID,
		ParticipantID:   item.ParticipantID,
		ParticipantType: item.ParticipantType,
		Status:          item.Status,
		Deadline:        item.Deadline,
		CreatedAt:       item.CreatedAt,
		CompletedAt:     item.CompletedAt,
	}
}

// FromProcess maps a process to its response shape.
func FromProcess(process *domain.Process) ProcessResponse {
	return ProcessResponse{
		ID:                process.ID,
		ExternalReference: process.ExternalReference,
		Title:             process.Title,
		ProcessType:       process.ProcessType,
		Priority:          process.Priority,
		Status:            process.Status,
		Metadata:          process.Metadata,
		CreatedAt:         process.CreatedAt,
		UpdatedAt:         process.UpdatedAt,
	}
}

// FromDispatchTicket maps a dispatch ticket to its response shape.
func FromDispatchTicket(ticket domain.DispatchTicket) DispatchTicketResponse {
	return DispatchTicketResponse{
		Ref:          ticket.Ref,
		Title:        ticket.Title,
		ClientName:   ticket.ClientName,
		Neighborhood: ticket.Neighborhood,
		Priority:     ticket.Priority,
		HoursOpen:    ticket.HoursOpen,
		Band:         ticket.Band,
		Recurrence:   ticket.Recurrence,
		Score:        ticket.Score,
		Lat:          ticket.Lat,
		Lng:          ticket.Lng,
	}
}
