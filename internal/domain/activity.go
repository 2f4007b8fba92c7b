package domain

import "time"

// Activity is one escalation-level step inside a process. Levels are
// strictly increasing and append-only; an activity is never mutated
// once created.
type Activity struct {
	ID        string
	ProcessID string
	Name      string
	Level     int
	CreatedAt time.Time
}
