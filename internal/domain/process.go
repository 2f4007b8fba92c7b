package domain

import "time"

// ProcessStatus enumerates lifecycle states for escalation processes.
type ProcessStatus string

const (
	ProcessStatusPending   ProcessStatus = "PENDING"
	ProcessStatusSuccess   ProcessStatus = "SUCCESS"
	ProcessStatusEscalated ProcessStatus = "ESCALATED"
	ProcessStatusTimedOut  ProcessStatus = "TIMED_OUT"
)

// SLABand classifies a ticket's age against its response window.
type SLABand string

const (
	BandOnTime  SLABand = "ON_TIME"
	BandAtRisk  SLABand = "AT_RISK"
	BandOverdue SLABand = "OVERDUE"
)

// SLASnapshot freezes the SLA view of a process at its last transition.
type SLASnapshot struct {
	Priority int       `json:"priority"`
	Deadline time.Time `json:"deadline"`
	Band     SLABand   `json:"band"`
}

// ProcessMetadata is the typed value object attached to every process.
// Extra carries ticketing-system attributes the core does not interpret.
type ProcessMetadata struct {
	ClientName   string            `json:"client_name"`
	Subject      string            `json:"subject"`
	Neighborhood string            `json:"neighborhood,omitempty"`
	CurrentLevel int               `json:"current_level"`
	SLA          SLASnapshot       `json:"sla"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Process is one escalation lifecycle anchored to one external ticket.
// Exactly one process exists per external reference.
type Process struct {
	ID                string
	ExternalReference string
	Title             string
	ProcessType       string
	Priority          int
	Status            ProcessStatus
	Metadata          ProcessMetadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
