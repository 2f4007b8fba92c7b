// Package score computes the deterministic dispatch ranking value.
package score

import "github.com/spec-kit/escalation-service/internal/domain"

// Calculator holds the scoring weights. No randomness anywhere: equal
// inputs always produce equal scores so planning snapshots reproduce.
type Calculator struct {
	// PriorityWeight maps priority 1..5 to its base weight. Priority 1
	// is the most urgent and carries the largest weight.
	PriorityWeight map[int]int
	// Per-hour multipliers by SLA band. Overdue hours must weigh more
	// than at-risk hours, which weigh more than on-time hours.
	OnTimeMultiplier  int
	AtRiskMultiplier  int
	OverdueMultiplier int
	// RecurrenceWeight scales the count of repeat visits for the same
	// client in the trailing month, a proxy for an unresolved root cause.
	RecurrenceWeight int
}

// DefaultCalculator returns the stock weights.
func DefaultCalculator() Calculator {
	return Calculator{
		PriorityWeight: map[int]int{
			1: 500,
			2: 400,
			3: 300,
			4: 200,
			5: 100,
		},
		OnTimeMultiplier:  1,
		AtRiskMultiplier:  3,
		OverdueMultiplier: 6,
		RecurrenceWeight:  50,
	}
}

// BandMultiplier returns the per-hour weight for a band.
func (c Calculator) BandMultiplier(band domain.SLABand) int {
	switch band {
	case domain.BandOverdue:
		return c.OverdueMultiplier
	case domain.BandAtRisk:
		return c.AtRiskMultiplier
	default:
		return c.OnTimeMultiplier
	}
}

// Score ranks a ticket for dispatch. Monotonic in priority urgency,
// band-weighted age, and same-client recurrence.
func (c Calculator) Score(priority, hoursOpen int, band domain.SLABand, recurrence int) int {
	if hoursOpen < 0 {
		hoursOpen = 0
	}
	if recurrence < 0 {
		recurrence = 0
	}
	return c.PriorityWeight[priority] + hoursOpen*c.BandMultiplier(band) + recurrence*c.RecurrenceWeight
}
