package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/directory"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
	"github.com/spec-kit/escalation-service/internal/sla"
	"github.com/spec-kit/escalation-service/internal/ticketing"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// TimeoutComment is the audit comment the sweep records when a deadline
// lapses before human action.
const TimeoutComment = "Auto-escalated: SLA breached"

// EscalationService drives the per-process state machine: create,
// complete, escalate, reassign, and the timeout sweep. Local state is
// applied first; external pushes are queued and retried independently.
type EscalationService struct {
	store      *ProcessStore
	directory  directory.Directory
	pusher     ticketing.Pusher
	dispatcher events.Dispatcher
	policy     sla.Policy
	defaults   config.EscalationConfig
	logger     *zap.Logger
	now        func() time.Time
}

// EscalationDependencies bundles collaborators for the engine.
type EscalationDependencies struct {
	Store      *ProcessStore
	Directory  directory.Directory
	Pusher     ticketing.Pusher
	Dispatcher events.Dispatcher
	Policy     sla.Policy
	Defaults   config.EscalationConfig
	Logger     *zap.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewEscalationService constructs the engine.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &EscalationService{
		store:      deps.Store,
		directory:  deps.Directory,
		pusher:     deps.Pusher,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		defaults:   deps.Defaults,
		logger:     logger,
		now:        now,
	}
}

// TrackTicket starts an escalation lifecycle for an open external
// ticket on first sight: process at level 1 with a single pending work
// item whose deadline follows the priority's response window. Already
// tracked tickets are returned unchanged.
func (s *EscalationService) TrackTicket(ctx context.Context, ticket ticketing.Ticket) (*domain.Process, error) {
	existing, err := s.store.ProcessByExternalReference(ctx, ticket.Ref)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	deadline := s.policy.Deadline(ticket.Priority, now)
	process, created, err := s.store.UpsertProcess(ctx, ticket.Ref, UpsertProcessInput{
		Title:        ticket.Title,
		ProcessType:  ticket.Type,
		Priority:     ticket.Priority,
		ClientName:   ticket.ClientName,
		Subject:      ticket.Subject,
		Neighborhood: ticket.Neighborhood,
		Extra:        ticket.Extra,
		SLA: &domain.SLASnapshot{
			Priority: ticket.Priority,
			Deadline: deadline,
			Band:     s.policy.Band(ticket.CreatedAt, now),
		},
		Actor: domain.SystemActor,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return process, nil
	}

	activity, err := s.store.AppendActivity(ctx, process.ID, "Initial response", domain.SystemActor)
	if err != nil {
		return nil, err
	}

	participant := s.resolveOrPoolOwner(ctx, ticket.AssigneeRef)
	if _, err := s.store.OpenWorkItem(ctx, activity.ID, participant.ID, participant.Type, deadline, domain.SystemActor); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventProcessCreated,
		ProcessID: process.ID,
		Actor:     domain.SystemActor,
		Payload: events.ProcessCreatedPayload{
			ExternalReference: process.ExternalReference,
			Priority:          process.Priority,
			ParticipantID:     participant.ID,
		},
	})
	s.logger.Info("process created",
		zap.String("external_reference", process.ExternalReference),
		zap.Int("priority", process.Priority),
		zap.String("participant", participant.ID))
	return process, nil
}

// Complete marks a work item done. The comment is mandatory; when the
// item was the process's only open assignment the process resolves and
// the comment is forwarded to the external system.
func (s *EscalationService) Complete(ctx context.Context, workItemID, actor, comment string) (*domain.WorkItem, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, apperrors.NewValidationError("completion comment required", nil)
	}
	item, err := s.store.WorkItemByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == domain.WorkItemStatusDone {
		return item, nil
	}

	item, err = s.store.CompleteWorkItem(ctx, workItemID, actor, comment, domain.AuditWorkItemCompleted)
	if err != nil {
		return nil, err
	}

	activity, err := s.store.ActivityByID(ctx, item.ActivityID)
	if err != nil {
		return nil, err
	}
	process, err := s.store.ProcessByID(ctx, activity.ProcessID)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.PendingWorkItem(ctx, process.ID)
	if err != nil {
		return nil, err
	}
	resolved := pending == nil
	if resolved {
		process.Status = domain.ProcessStatusSuccess
		if err := s.store.SaveProcess(ctx, process, actor, domain.AuditProcessUpdated, "resolved"); err != nil {
			return nil, err
		}
		s.enqueuePush(ctx, ticketing.PushJob{
			Kind: ticketing.PushComment,
			Ref:  process.ExternalReference,
			Body: comment,
		})
	}

	s.publish(ctx, events.Event{
		Type:      events.EventWorkItemCompleted,
		ProcessID: process.ID,
		Actor:     actor,
		Payload: events.WorkItemCompletedPayload{
			WorkItemID: item.ID,
			Comment:    comment,
			Resolved:   resolved,
		},
	})
	return item, nil
}

// Escalate closes a pending work item and hands the process to the next
// responsibility tier. Level 1 always escalates to 2; level N to N+1.
// The target must be supplied explicitly and hold the next tier.
func (s *EscalationService) Escalate(ctx context.Context, workItemID, actor, comment, targetRef string, priorityOverride *int) (*domain.Process, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, apperrors.NewValidationError("escalation comment required", nil)
	}
	if strings.TrimSpace(targetRef) == "" {
		return nil, apperrors.NewValidationError("escalation target required", nil)
	}

	item, err := s.store.WorkItemByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.WorkItemStatusPending {
		return nil, apperrors.NewConflict("work item is no longer pending", map[string]any{"workitem_id": workItemID})
	}
	activity, err := s.store.ActivityByID(ctx, item.ActivityID)
	if err != nil {
		return nil, err
	}
	process, err := s.store.ProcessByID(ctx, activity.ProcessID)
	if err != nil {
		return nil, err
	}

	nextLevel := NextLevel(activity.Level)
	target, err := s.directory.Resolve(ctx, targetRef)
	if err != nil {
		return nil, apperrors.NewValidationError("escalation target not found", map[string]any{"target": targetRef})
	}
	if !domain.CanHoldLevel(target.Type, nextLevel) {
		return nil, apperrors.NewValidationError("escalation target cannot hold the next level", map[string]any{
			"target": target.ID,
			"level":  nextLevel,
		})
	}

	priority := process.Priority
	if priorityOverride != nil {
		if *priorityOverride < 1 || *priorityOverride > 5 {
			return nil, apperrors.NewValidationError("priority must be between 1 and 5", nil)
		}
		priority = *priorityOverride
	}

	if _, err := s.store.CompleteWorkItem(ctx, item.ID, actor, comment, domain.AuditWorkItemEscalated); err != nil {
		return nil, err
	}
	return s.advance(ctx, process, activity.Level, nextLevel, *target, priority, actor, comment, false)
}

// Reassign swaps the participant on a pending work item without
// changing the escalation level.
func (s *EscalationService) Reassign(ctx context.Context, workItemID, newParticipantRef, actor string) (*domain.WorkItem, error) {
	participant, err := s.directory.Resolve(ctx, newParticipantRef)
	if err != nil {
		return nil, apperrors.NewValidationError("participant not found", map[string]any{"participant": newParticipantRef})
	}
	item, err := s.store.WorkItemByID(ctx, workItemID)
	if err != nil {
		return nil, err
	}
	activity, err := s.store.ActivityByID(ctx, item.ActivityID)
	if err != nil {
		return nil, err
	}
	if !domain.CanHoldLevel(participant.Type, activity.Level) {
		return nil, apperrors.NewValidationError("participant cannot hold the work item's level", map[string]any{
			"participant": participant.ID,
			"level":       activity.Level,
		})
	}

	oldParticipant := item.ParticipantID
	item, err = s.store.ReassignWorkItem(ctx, workItemID, *participant, actor)
	if err != nil {
		return nil, err
	}

	process, err := s.store.ProcessByID(ctx, activity.ProcessID)
	if err != nil {
		return nil, err
	}
	s.enqueuePush(ctx, ticketing.PushJob{
		Kind:     ticketing.PushAssignee,
		Ref:      process.ExternalReference,
		Assignee: participant.ID,
	})
	s.publish(ctx, events.Event{
		Type:      events.EventWorkItemReassigned,
		ProcessID: process.ID,
		Actor:     actor,
		Payload: events.WorkItemReassignedPayload{
			WorkItemID:       item.ID,
			OldParticipantID: oldParticipant,
			NewParticipantID: participant.ID,
		},
	})
	return item, nil
}

// Sweep escalates every pending process whose current deadline lapsed.
// Idempotent: once swept, a process carries a fresh deadline at the
// next level, so a second pass finds nothing to do. Safe under
// overlapping invocations through the single-pending-item invariant.
func (s *EscalationService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	processes, err := s.store.ListProcessesByStatus(ctx, domain.ProcessStatusPending)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range processes {
		process := processes[i]
		item, err := s.store.PendingWorkItem(ctx, process.ID)
		if err != nil {
			s.logger.Error("sweep: pending lookup failed", zap.String("process_id", process.ID), zap.Error(err))
			continue
		}
		if item == nil || !item.Deadline.Before(now) {
			continue
		}
		if err := s.sweepOne(ctx, &process, item); err != nil {
			// A concurrent sweep or operator action got there first.
			if apperrors.IsConflict(err) {
				continue
			}
			s.logger.Error("sweep: escalation failed", zap.String("process_id", process.ID), zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info("timeout sweep finished", zap.Int("escalated", swept))
	}
	return swept, nil
}

func (s *EscalationService) sweepOne(ctx context.Context, process *domain.Process, item *domain.WorkItem) error {
	activity, err := s.store.ActivityByID(ctx, item.ActivityID)
	if err != nil {
		return err
	}
	if _, err := s.store.CompleteWorkItem(ctx, item.ID, domain.SystemActor, TimeoutComment, domain.AuditWorkItemEscalated); err != nil {
		return err
	}

	process.Status = domain.ProcessStatusTimedOut
	if err := s.store.SaveProcess(ctx, process, domain.SystemActor, domain.AuditProcessTimedOut, TimeoutComment); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProcessTimedOut,
		ProcessID: process.ID,
		Actor:     domain.SystemActor,
		Payload: events.WorkItemCompletedPayload{
			WorkItemID: item.ID,
			Comment:    TimeoutComment,
		},
	})

	nextLevel := NextLevel(activity.Level)
	target := s.defaultParticipant(ctx, nextLevel)
	_, err = s.advance(ctx, process, activity.Level, nextLevel, target, process.Priority, domain.SystemActor, TimeoutComment, true)
	return err
}

// advance opens the next escalation level: new activity, new work item
// with a fresh deadline, process cycled through ESCALATED back to
// PENDING. The previous work item must already be done.
func (s *EscalationService) advance(ctx context.Context, process *domain.Process, fromLevel, nextLevel int, target domain.Participant, priority int, actor, comment string, automatic bool) (*domain.Process, error) {
	process.Status = domain.ProcessStatusEscalated
	if err := s.store.SaveProcess(ctx, process, actor, domain.AuditProcessUpdated, comment); err != nil {
		return nil, err
	}

	activity, err := s.store.AppendActivity(ctx, process.ID, fmt.Sprintf("Escalation level %d", nextLevel), actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := s.policy.Deadline(priority, now)
	if _, err := s.store.OpenWorkItem(ctx, activity.ID, target.ID, target.Type, deadline, actor); err != nil {
		return nil, err
	}

	process.Status = domain.ProcessStatusPending
	process.Priority = priority
	process.Metadata.CurrentLevel = nextLevel
	process.Metadata.SLA = domain.SLASnapshot{
		Priority: priority,
		Deadline: deadline,
		Band:     domain.BandOnTime,
	}
	if err := s.store.SaveProcess(ctx, process, actor, domain.AuditProcessUpdated, fmt.Sprintf("level %d -> %d", fromLevel, nextLevel)); err != nil {
		return nil, err
	}

	s.enqueuePush(ctx, ticketing.PushJob{
		Kind:     ticketing.PushAssignee,
		Ref:      process.ExternalReference,
		Assignee: target.ID,
	})
	s.enqueuePush(ctx, ticketing.PushJob{
		Kind:     ticketing.PushPriority,
		Ref:      process.ExternalReference,
		Priority: priority,
	})
	s.publish(ctx, events.Event{
		Type:      events.EventProcessEscalated,
		ProcessID: process.ID,
		Actor:     actor,
		Payload: events.ProcessEscalatedPayload{
			FromLevel:     fromLevel,
			ToLevel:       nextLevel,
			ParticipantID: target.ID,
			Automatic:     automatic,
		},
	})
	s.logger.Info("process escalated",
		zap.String("external_reference", process.ExternalReference),
		zap.Int("from_level", fromLevel),
		zap.Int("to_level", nextLevel),
		zap.Bool("automatic", automatic))
	return process, nil
}

// ForceComplete closes a process on the sync reconciler's behalf when
// the external system already closed the ticket. Bypasses the human
// comment requirement with a system comment.
func (s *EscalationService) ForceComplete(ctx context.Context, process *domain.Process, comment string) error {
	item, err := s.store.PendingWorkItem(ctx, process.ID)
	if err != nil {
		return err
	}
	if item != nil {
		if _, err := s.store.CompleteWorkItem(ctx, item.ID, domain.SystemActor, comment, domain.AuditWorkItemCompleted); err != nil {
			return err
		}
	}
	process.Status = domain.ProcessStatusSuccess
	if err := s.store.SaveProcess(ctx, process, domain.SystemActor, domain.AuditProcessUpdated, comment); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:      events.EventWorkItemCompleted,
		ProcessID: process.ID,
		Actor:     domain.SystemActor,
		Payload: events.WorkItemCompletedPayload{
			Comment:  comment,
			Resolved: true,
		},
	})
	return nil
}

// NextLevel returns the level an escalation hands off to. Level 1
// always yields 2; tiers are never skipped.
func NextLevel(current int) int {
	if current <= 1 {
		return 2
	}
	return current + 1
}

func (s *EscalationService) resolveOrPoolOwner(ctx context.Context, ref string) domain.Participant {
	if strings.TrimSpace(ref) != "" {
		if participant, err := s.directory.Resolve(ctx, ref); err == nil {
			return *participant
		}
	}
	return s.defaultParticipant(ctx, 1)
}

func (s *EscalationService) defaultParticipant(ctx context.Context, level int) domain.Participant {
	id := s.defaults.DefaultPoolOwner
	if level > 1 {
		if configured, ok := s.defaults.DefaultByLevel[level]; ok {
			id = configured
		} else if configured, ok := s.defaults.DefaultByLevel[3]; ok {
			// Levels beyond the configured table fall through to the
			// management default.
			id = configured
		}
	}
	if participant, err := s.directory.Get(ctx, id); err == nil {
		return *participant
	}
	return domain.Participant{ID: id, Type: domain.TypeForLevel(level)}
}

func (s *EscalationService) enqueuePush(ctx context.Context, job ticketing.PushJob) {
	if s.pusher == nil {
		return
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if err := s.pusher.Enqueue(ctx, job); err != nil {
		// Local state stays applied; the push worker retries later.
		s.logger.Warn("external push enqueue failed",
			zap.String("kind", string(job.Kind)),
			zap.String("ref", job.Ref),
			zap.Error(err))
	}
}

func (s *EscalationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
