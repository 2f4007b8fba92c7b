// Package sla implements the deadline clock: priority-driven response
// windows and elapsed-hours band classification. All thresholds are
// product policy supplied through configuration.
package sla

import (
	"time"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// Policy holds the priority→window table and the band thresholds.
type Policy struct {
	// Windows maps priority 1..5 to the response window granted to the
	// participant holding the current work item.
	Windows map[int]time.Duration
	// AtRiskAfter and OverdueAfter classify elapsed time since the
	// ticket opened.
	AtRiskAfter  time.Duration
	OverdueAfter time.Duration
}

// Default returns the documented band policy: 24h at-risk, 48h overdue,
// windows from 4h (P1) to 72h (P5).
func Default() Policy {
	return Policy{
		Windows: map[int]time.Duration{
			1: 4 * time.Hour,
			2: 8 * time.Hour,
			3: 24 * time.Hour,
			4: 48 * time.Hour,
			5: 72 * time.Hour,
		},
		AtRiskAfter:  24 * time.Hour,
		OverdueAfter: 48 * time.Hour,
	}
}

// Window returns the response window for a priority, clamping unknown
// priorities to the widest configured window.
func (p Policy) Window(priority int) time.Duration {
	if w, ok := p.Windows[priority]; ok {
		return w
	}
	widest := time.Duration(0)
	for _, w := range p.Windows {
		if w > widest {
			widest = w
		}
	}
	return widest
}

// Deadline computes the absolute deadline for a work item opened now.
func (p Policy) Deadline(priority int, now time.Time) time.Time {
	return now.Add(p.Window(priority))
}

// Band classifies a ticket opened at openedAt as of now.
func (p Policy) Band(openedAt, now time.Time) domain.SLABand {
	elapsed := now.Sub(openedAt)
	switch {
	case elapsed >= p.OverdueAfter:
		return domain.BandOverdue
	case elapsed >= p.AtRiskAfter:
		return domain.BandAtRisk
	default:
		return domain.BandOnTime
	}
}

// BandForHours classifies by whole elapsed hours.
func (p Policy) BandForHours(hours int) domain.SLABand {
	elapsed := time.Duration(hours) * time.Hour
	switch {
	case elapsed >= p.OverdueAfter:
		return domain.BandOverdue
	case elapsed >= p.AtRiskAfter:
		return domain.BandAtRisk
	default:
		return domain.BandOnTime
	}
}
