package domain

import "time"

// DispatchTicket is the derived read model ranked by the dispatch
// planner. Recomputed every planning cycle; never persisted and never a
// source of truth.
type DispatchTicket struct {
	Ref          string
	Title        string
	ClientName   string
	Neighborhood string
	Priority     int
	OpenedAt     time.Time
	HoursOpen    int
	Band         SLABand
	Recurrence   int
	Score        int
	Lat          *float64
	Lng          *float64
}
