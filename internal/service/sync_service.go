package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// SyncMode selects the reconciliation window.
type SyncMode string

const (
	// SyncShallow is the bounded lookback used for personal refresh.
	SyncShallow SyncMode = "shallow"
	// SyncDeep covers the audit window, possibly unbounded.
	SyncDeep SyncMode = "deep"
)

// ClosedExternallyComment is the system comment recorded when a ticket
// was closed upstream while its process was still pending locally.
const ClosedExternallyComment = "Closed externally"

// SyncReport captures the outcome and progress of one reconciliation.
type SyncReport struct {
	Mode             SyncMode   `json:"mode"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Current          int        `json:"current"`
	Total            int        `json:"total"`
	Seen             int        `json:"seen"`
	Created          int        `json:"created"`
	Updated          int        `json:"updated"`
	ClosedExternally int        `json:"closed_externally"`
	Failed           int        `json:"failed"`
	Cancelled        bool       `json:"cancelled"`
}

// SyncService reconciles local process state against the external
// ticketing system. The external system is authoritative for ticket
// existence and closure; local state is authoritative for escalation
// level and assignment once a process exists. Pure upsert: re-running
// never duplicates and never deletes processes.
type SyncService struct {
	client     ticketing.Client
	store      *ProcessStore
	escalation *EscalationService
	dispatcher events.Dispatcher
	cfg        config.SyncConfig
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	last    *SyncReport
	running bool
}

// SyncDependencies bundles collaborators for the reconciler.
type SyncDependencies struct {
	Client     ticketing.Client
	Store      *ProcessStore
	Escalation *EscalationService
	Dispatcher events.Dispatcher
	Config     config.SyncConfig
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSyncService constructs the reconciler.
func NewSyncService(deps SyncDependencies) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		client:     deps.Client,
		store:      deps.Store,
		escalation: deps.Escalation,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
		logger:     logger,
		now:        now,
	}
}

// Run pulls tickets in the mode's window and reconciles them one by
// one. Cancellation through ctx stops the run; processes already
// upserted stay committed. A pull failure yields an ExternalSyncError
// and leaves local state untouched.
func (s *SyncService) Run(ctx context.Context, mode SyncMode) (*SyncReport, error) {
	report := &SyncReport{Mode: mode, StartedAt: s.now()}
	s.setRunning(report)
	defer s.finish(report)

	filter := ticketing.Filter{
		Statuses: []string{ticketing.StatusOpen, ticketing.StatusInProgress, ticketing.StatusClosed},
	}
	if from := s.windowStart(mode); from != nil {
		filter.From = from
	}

	tickets, err := s.client.ListTickets(ctx, filter, func(current, total int) {
		s.mu.Lock()
		report.Current = current
		report.Total = total
		s.mu.Unlock()
	})
	if err != nil {
		if ctx.Err() != nil {
			s.markCancelled(report)
		}
		if len(tickets) == 0 {
			return report, apperrors.NewExternalSyncError("ticket pull failed", err)
		}
		// Keep the pages that arrived before the failure.
		s.logger.Warn("partial ticket pull", zap.Int("tickets", len(tickets)), zap.Error(err))
	}

	for i := range tickets {
		if err := ctx.Err(); err != nil {
			s.markCancelled(report)
			return report, err
		}
		outcome, err := s.reconcile(ctx, tickets[i])
		s.mu.Lock()
		report.Seen++
		switch {
		case err != nil:
			report.Failed++
		case outcome.created:
			report.Created++
		case outcome.updated:
			report.Updated++
		}
		if outcome.closedExternally {
			report.ClosedExternally++
		}
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("ticket reconcile failed",
				zap.String("ref", tickets[i].Ref),
				zap.Error(err))
		}
	}

	s.publish(ctx, report)
	s.logger.Info("sync finished",
		zap.String("mode", string(mode)),
		zap.Int("seen", report.Seen),
		zap.Int("created", report.Created),
		zap.Int("closed_externally", report.ClosedExternally),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Status returns the last (possibly in-flight) report.
func (s *SyncService) Status() (*SyncReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	snapshot := *s.last
	return &snapshot, s.running
}

type reconcileOutcome struct {
	created          bool
	updated          bool
	closedExternally bool
}

func (s *SyncService) reconcile(ctx context.Context, ticket ticketing.Ticket) (reconcileOutcome, error) {
	var outcome reconcileOutcome

	process, err := s.store.ProcessByExternalReference(ctx, ticket.Ref)
	if err != nil {
		return outcome, err
	}

	if process == nil {
		// Tickets closed before we ever saw them carry no escalation
		// obligation.
		if ticket.Closed() {
			return outcome, nil
		}
		if _, err := s.escalation.TrackTicket(ctx, ticket); err != nil {
			return outcome, err
		}
		outcome.created = true
		return outcome, nil
	}

	// Refresh ticket-owned fields; escalation state stays local. The
	// refreshed process is the one handed on, so a forced completion
	// below never writes the pre-refresh snapshot back.
	refreshed, _, err := s.store.UpsertProcess(ctx, ticket.Ref, UpsertProcessInput{
		Title:        ticket.Title,
		ProcessType:  ticket.Type,
		Priority:     ticket.Priority,
		ClientName:   ticket.ClientName,
		Subject:      ticket.Subject,
		Neighborhood: ticket.Neighborhood,
		Extra:        ticket.Extra,
		Actor:        domain.SystemActor,
	})
	if err != nil {
		return outcome, err
	}
	outcome.updated = true

	if ticket.Closed() && refreshed.Status == domain.ProcessStatusPending {
		if err := s.escalation.ForceComplete(ctx, refreshed, ClosedExternallyComment); err != nil {
			return outcome, err
		}
		outcome.closedExternally = true
	}
	return outcome, nil
}

func (s *SyncService) windowStart(mode SyncMode) *time.Time {
	days := s.cfg.ShallowLookbackDays
	if mode == SyncDeep {
		days = s.cfg.DeepLookbackDays
	}
	if days <= 0 {
		return nil
	}
	from := s.now().AddDate(0, 0, -days)
	return &from
}

func (s *SyncService) markCancelled(report *SyncReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.Cancelled = true
}

func (s *SyncService) setRunning(report *SyncReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = report
	s.running = true
}

func (s *SyncService) finish(report *SyncReport) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	report.FinishedAt = &now
	s.running = false
}

func (s *SyncService) publish(ctx context.Context, report *SyncReport) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventSyncCompleted,
		Actor:     domain.SystemActor,
		Timestamp: s.now(),
		Payload: events.SyncCompletedPayload{
			Mode:             string(report.Mode),
			Seen:             report.Seen,
			Created:          report.Created,
			Updated:          report.Updated,
			ClosedExternally: report.ClosedExternally,
		},
	})
}
