package score

import (
	"testing"

	"github.com/spec-kit/escalation-service/internal/domain"
)

func TestScoreIsDeterministic(t *testing.T) {
	c := DefaultCalculator()
	a := c.Score(2, 30, domain.BandAtRisk, 1)
	b := c.Score(2, 30, domain.BandAtRisk, 1)
	if a != b {
		t.Fatalf("equal inputs produced different scores: %d vs %d", a, b)
	}
}

func TestScoreComponents(t *testing.T) {
	c := DefaultCalculator()
	// priority 2 weight 400, 30h at-risk at x3, one repeat visit.
	got := c.Score(2, 30, domain.BandAtRisk, 1)
	want := 400 + 30*3 + 1*50
	if got != want {
		t.Fatalf("Score = %d, want %d", got, want)
	}
}

func TestOverdueHoursOutweighAtRiskHours(t *testing.T) {
	c := DefaultCalculator()
	atRisk := c.Score(2, 30, domain.BandAtRisk, 0)
	overdue := c.Score(2, 50, domain.BandOverdue, 0)
	if overdue <= atRisk {
		t.Fatalf("overdue score %d not above at-risk score %d", overdue, atRisk)
	}
}

func TestScoreMonotonicInRecurrence(t *testing.T) {
	c := DefaultCalculator()
	prev := c.Score(3, 10, domain.BandOnTime, 0)
	for recurrence := 1; recurrence <= 4; recurrence++ {
		next := c.Score(3, 10, domain.BandOnTime, recurrence)
		if next <= prev {
			t.Fatalf("score did not grow with recurrence %d: %d <= %d", recurrence, next, prev)
		}
		prev = next
	}
}

func TestScoreMonotonicInPriorityUrgency(t *testing.T) {
	c := DefaultCalculator()
	for priority := 1; priority < 5; priority++ {
		higher := c.Score(priority, 10, domain.BandOnTime, 0)
		lower := c.Score(priority+1, 10, domain.BandOnTime, 0)
		if higher <= lower {
			t.Fatalf("priority %d scored %d, not above priority %d scoring %d", priority, higher, priority+1, lower)
		}
	}
}

func TestScoreClampsNegativeInputs(t *testing.T) {
	c := DefaultCalculator()
	if got := c.Score(1, -5, domain.BandOnTime, -2); got != c.PriorityWeight[1] {
		t.Fatalf("Score with negative inputs = %d, want bare priority weight %d", got, c.PriorityWeight[1])
	}
}

func TestBandMultiplierOrdering(t *testing.T) {
	c := DefaultCalculator()
	onTime := c.BandMultiplier(domain.BandOnTime)
	atRisk := c.BandMultiplier(domain.BandAtRisk)
	overdue := c.BandMultiplier(domain.BandOverdue)
	if !(onTime < atRisk && atRisk < overdue) {
		t.Fatalf("multipliers not strictly increasing: %d, %d, %d", onTime, atRisk, overdue)
	}
}
