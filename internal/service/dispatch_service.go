package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/geo"
	"github.com/spec-kit/escalation-service/internal/score"
	"github.com/spec-kit/escalation-service/internal/sla"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// PoolName addresses the unassigned pool in plan moves.
const PoolName = "pool"

// Route is a named per-technician ticket list.
type Route struct {
	Technician string                  `json:"technician"`
	Tickets    []domain.DispatchTicket `json:"tickets"`
}

// Plan is one planning cycle's working state: the scored unassigned
// pool plus manual routes. Manual placements are authoritative; the
// planner never re-sorts a list after a move.
type Plan struct {
	Pool   []domain.DispatchTicket `json:"pool"`
	Routes []Route                 `json:"routes"`
}

// PublishOutcome reports one ticket's reassignment push. There is no
// multi-item transaction externally, so outcomes are per item.
type PublishOutcome struct {
	Ref        string `json:"ref"`
	Technician string `json:"technician"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// DispatchService builds the prioritized unassigned pool and publishes
// final technician assignments.
type DispatchService struct {
	client         ticketing.Client
	calc           score.Calculator
	policy         sla.Policy
	resolver       *geo.Resolver
	recurrenceDays int
	logger         *zap.Logger
	now            func() time.Time
}

// DispatchDependencies bundles collaborators for the planner.
type DispatchDependencies struct {
	Client         ticketing.Client
	Calculator     score.Calculator
	Policy         sla.Policy
	Resolver       *geo.Resolver
	RecurrenceDays int
	Logger         *zap.Logger
	Now            func() time.Time
}

// NewDispatchService constructs the planner.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	recurrenceDays := deps.RecurrenceDays
	if recurrenceDays <= 0 {
		recurrenceDays = 30
	}
	return &DispatchService{
		client:         deps.Client,
		calc:           deps.Calculator,
		policy:         deps.Policy,
		resolver:       deps.Resolver,
		recurrenceDays: recurrenceDays,
		logger:         logger,
		now:            now,
	}
}

// BuildPool recomputes the dispatch read model: every open unassigned
// ticket scored and sorted descending. Ties break on the ticket
// reference so cycles reproduce. Geocoding misses leave coordinates nil
// and never drop a ticket.
func (s *DispatchService) BuildPool(ctx context.Context) ([]domain.DispatchTicket, error) {
	now := s.now()
	from := now.AddDate(0, 0, -s.recurrenceDays)
	tickets, err := s.client.ListTickets(ctx, ticketing.Filter{
		Statuses: []string{ticketing.StatusOpen, ticketing.StatusInProgress},
		From:     &from,
	}, nil)
	if err != nil {
		return nil, apperrors.NewExternalSyncError("dispatch pull failed", err)
	}

	visits := make(map[string]int)
	for _, t := range tickets {
		if t.ClientName != "" {
			visits[t.ClientName]++
		}
	}

	var pool []domain.DispatchTicket
	for _, t := range tickets {
		if t.AssigneeRef != "" {
			continue
		}
		hoursOpen := int(now.Sub(t.CreatedAt).Hours())
		if hoursOpen < 0 {
			hoursOpen = 0
		}
		// Band and score read the same whole-hour age, so the two never
		// disagree around a threshold.
		band := s.policy.BandForHours(hoursOpen)
		recurrence := 0
		if t.ClientName != "" {
			// Repeat visits beyond the ticket itself.
			recurrence = visits[t.ClientName] - 1
		}

		item := domain.DispatchTicket{
			Ref:          t.Ref,
			Title:        t.Title,
			ClientName:   t.ClientName,
			Neighborhood: t.Neighborhood,
			Priority:     t.Priority,
			OpenedAt:     t.CreatedAt,
			HoursOpen:    hoursOpen,
			Band:         band,
			Recurrence:   recurrence,
			Score:        s.calc.Score(t.Priority, hoursOpen, band, recurrence),
		}
		if s.resolver != nil {
			if coords, ok := s.resolver.Resolve(ctx, t.Neighborhood); ok {
				lat, lng := coords.Lat, coords.Lng
				item.Lat, item.Lng = &lat, &lng
			}
		}
		pool = append(pool, item)
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].Ref < pool[j].Ref
	})
	return pool, nil
}

// NewPlan wraps a freshly built pool.
func NewPlan(pool []domain.DispatchTicket) *Plan {
	return &Plan{Pool: pool}
}

// Move splices a ticket from one list to another at the given position.
// Destination order is preserved exactly as placed; an unknown target
// route is created. from and to are PoolName or a technician name.
func (s *DispatchService) Move(plan *Plan, ref, from, to string, position int) error {
	if from == to {
		return apperrors.NewValidationError("source and destination are the same list", nil)
	}

	ticket, ok := removeTicket(plan, from, ref)
	if !ok {
		return apperrors.NewNotFound("dispatch ticket", map[string]any{"ref": ref, "list": from})
	}

	dest := destList(plan, to)
	if position < 0 {
		position = 0
	}
	if position > len(*dest) {
		position = len(*dest)
	}
	*dest = append(*dest, domain.DispatchTicket{})
	copy((*dest)[position+1:], (*dest)[position:])
	(*dest)[position] = ticket
	return nil
}

func removeTicket(plan *Plan, list, ref string) (domain.DispatchTicket, bool) {
	src := findList(plan, list)
	if src == nil {
		return domain.DispatchTicket{}, false
	}
	for i, t := range *src {
		if t.Ref == ref {
			*src = append((*src)[:i], (*src)[i+1:]...)
			return t, true
		}
	}
	return domain.DispatchTicket{}, false
}

func findList(plan *Plan, name string) *[]domain.DispatchTicket {
	if name == PoolName {
		return &plan.Pool
	}
	for i := range plan.Routes {
		if plan.Routes[i].Technician == name {
			return &plan.Routes[i].Tickets
		}
	}
	return nil
}

func destList(plan *Plan, name string) *[]domain.DispatchTicket {
	if list := findList(plan, name); list != nil {
		return list
	}
	plan.Routes = append(plan.Routes, Route{Technician: name})
	return &plan.Routes[len(plan.Routes)-1].Tickets
}

// Publish pushes one technician reassignment per routed ticket.
// Failures are independent: the returned outcomes tell the caller which
// subset to retry.
func (s *DispatchService) Publish(ctx context.Context, routes []Route) []PublishOutcome {
	var outcomes []PublishOutcome
	for _, route := range routes {
		for _, ticket := range route.Tickets {
			outcome := PublishOutcome{Ref: ticket.Ref, Technician: route.Technician}
			if err := s.client.ChangeAssignee(ctx, ticket.Ref, route.Technician); err != nil {
				outcome.Error = err.Error()
				s.logger.Warn("route publish failed",
					zap.String("ref", ticket.Ref),
					zap.String("technician", route.Technician),
					zap.Error(err))
			} else {
				outcome.OK = true
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}
