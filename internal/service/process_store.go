package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/repository"
	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// ProcessStore is the single write path to process state. Every other
// component mutates processes, activities, and work items through this
// contract; every mutation appends an audit record.
type ProcessStore struct {
	processes  repository.ProcessRepository
	activities repository.ActivityRepository
	workItems  repository.WorkItemRepository
	audit      repository.AuditRepository
	logger     *zap.Logger
}

// StoreDependencies bundles repositories for the process store.
type StoreDependencies struct {
	ProcessRepo  repository.ProcessRepository
	ActivityRepo repository.ActivityRepository
	WorkItemRepo repository.WorkItemRepository
	AuditRepo    repository.AuditRepository
	Logger       *zap.Logger
}

// NewProcessStore constructs the store.
func NewProcessStore(deps StoreDependencies) *ProcessStore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessStore{
		processes:  deps.ProcessRepo,
		activities: deps.ActivityRepo,
		workItems:  deps.WorkItemRepo,
		audit:      deps.AuditRepo,
		logger:     logger,
	}
}

// UpsertProcessInput describes the ticket-owned fields applied on upsert.
// Escalation-owned state (status, current level, SLA snapshot) is never
// overwritten on an existing process.
type UpsertProcessInput struct {
	Title        string
	ProcessType  string
	Priority     int
	ClientName   string
	Subject      string
	Neighborhood string
	Extra        map[string]string
	// SLA seeds the snapshot on create; ignored for existing processes.
	SLA   *domain.SLASnapshot
	Actor string
}

// UpsertProcess creates or refreshes the process anchored to an
// external reference. Idempotent: a second call with the same reference
// never creates a second process. Returns the process and whether it
// was created.
func (s *ProcessStore) UpsertProcess(ctx context.Context, externalRef string, input UpsertProcessInput) (*domain.Process, bool, error) {
	if externalRef == "" {
		return nil, false, apperrors.NewValidationError("external reference required", nil)
	}

	existing, err := s.processes.GetByExternalReference(ctx, externalRef)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, apperrors.MapError(err)
	}

	if existing == nil {
		process := &domain.Process{
			ID:                uuid.NewString(),
			ExternalReference: externalRef,
			Title:             input.Title,
			ProcessType:       input.ProcessType,
			Priority:          input.Priority,
			Status:            domain.ProcessStatusPending,
			Metadata: domain.ProcessMetadata{
				ClientName:   input.ClientName,
				Subject:      input.Subject,
				Neighborhood: input.Neighborhood,
				CurrentLevel: 1,
				Extra:        input.Extra,
			},
		}
		if input.SLA != nil {
			process.Metadata.SLA = *input.SLA
		}
		if err := s.processes.Create(ctx, process); err != nil {
			return nil, false, apperrors.MapError(err)
		}
		s.appendAudit(ctx, domain.AuditEntityProcess, process.ID, input.Actor, domain.AuditProcessCreated, "")
		return process, true, nil
	}

	changed := false
	if input.Title != "" && input.Title != existing.Title {
		existing.Title = input.Title
		changed = true
	}
	if input.ProcessType != "" && input.ProcessType != existing.ProcessType {
		existing.ProcessType = input.ProcessType
		changed = true
	}
	if input.Priority != 0 && input.Priority != existing.Priority {
		existing.Priority = input.Priority
		changed = true
	}
	if input.ClientName != "" && input.ClientName != existing.Metadata.ClientName {
		existing.Metadata.ClientName = input.ClientName
		changed = true
	}
	if input.Subject != "" && input.Subject != existing.Metadata.Subject {
		existing.Metadata.Subject = input.Subject
		changed = true
	}
	if input.Neighborhood != "" && input.Neighborhood != existing.Metadata.Neighborhood {
		existing.Metadata.Neighborhood = input.Neighborhood
		changed = true
	}
	if len(input.Extra) > 0 {
		if existing.Metadata.Extra == nil {
			existing.Metadata.Extra = make(map[string]string, len(input.Extra))
		}
		for k, v := range input.Extra {
			if existing.Metadata.Extra[k] != v {
				existing.Metadata.Extra[k] = v
				changed = true
			}
		}
	}
	if !changed {
		return existing, false, nil
	}
	if err := s.processes.Update(ctx, existing); err != nil {
		return nil, false, apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityProcess, existing.ID, input.Actor, domain.AuditProcessUpdated, "")
	return existing, false, nil
}

// AppendActivity adds the next escalation-level step to a process.
// Level is previous max + 1, starting at 1.
func (s *ProcessStore) AppendActivity(ctx context.Context, processID, name, actor string) (*domain.Activity, error) {
	if _, err := s.processes.GetByID(ctx, processID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("process", map[string]any{"process_id": processID})
		}
		return nil, apperrors.MapError(err)
	}
	maxLevel, err := s.activities.MaxLevel(ctx, processID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	activity := &domain.Activity{
		ID:        uuid.NewString(),
		ProcessID: processID,
		Name:      name,
		Level:     maxLevel + 1,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityActivity, activity.ID, actor, domain.AuditActivityAppended, name)
	return activity, nil
}

// OpenWorkItem opens a pending assignment on an activity. Fails with a
// conflict when the activity already has a pending item, or when any
// other activity of the same process does: a process holds at most one
// pending work item globally.
func (s *ProcessStore) OpenWorkItem(ctx context.Context, activityID, participantID string, participantType domain.ParticipantType, deadline time.Time, actor string) (*domain.WorkItem, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("activity", map[string]any{"activity_id": activityID})
		}
		return nil, apperrors.MapError(err)
	}

	pending, err := s.workItems.PendingByActivity(ctx, activityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if pending != nil {
		return nil, apperrors.NewConflict("activity already has a pending work item", map[string]any{"activity_id": activityID})
	}
	pending, err = s.workItems.PendingByProcess(ctx, activity.ProcessID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if pending != nil {
		return nil, apperrors.NewConflict("process already has a pending work item", map[string]any{"process_id": activity.ProcessID})
	}

	item := &domain.WorkItem{
		ID:              uuid.NewString(),
		ActivityID:      activityID,
		ParticipantID:   participantID,
		ParticipantType: participantType,
		Status:          domain.WorkItemStatusPending,
		Deadline:        deadline,
	}
	if err := s.workItems.Create(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityWorkItem, item.ID, actor, domain.AuditWorkItemOpened, "")
	return item, nil
}

// CompleteWorkItem transitions a work item to DONE. Completing an
// already-done item is a no-op success and records no second audit
// entry. The action distinguishes a plain completion from the implicit
// completion an escalation performs.
func (s *ProcessStore) CompleteWorkItem(ctx context.Context, id, actor, comment string, action domain.AuditAction) (*domain.WorkItem, error) {
	item, err := s.workItems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"workitem_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if item.Status == domain.WorkItemStatusDone {
		return item, nil
	}
	now := time.Now()
	item.Status = domain.WorkItemStatusDone
	item.CompletedAt = &now
	if err := s.workItems.Update(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityWorkItem, item.ID, actor, action, comment)
	return item, nil
}

// ReassignWorkItem swaps the participant on a pending item in place.
func (s *ProcessStore) ReassignWorkItem(ctx context.Context, id string, participant domain.Participant, actor string) (*domain.WorkItem, error) {
	item, err := s.workItems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"workitem_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if item.Status != domain.WorkItemStatusPending {
		return nil, apperrors.NewConflict("work item is no longer pending", map[string]any{"workitem_id": id})
	}
	item.ParticipantID = participant.ID
	item.ParticipantType = participant.Type
	if err := s.workItems.Update(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityWorkItem, item.ID, actor, domain.AuditWorkItemReassigned, "reassigned to "+participant.ID)
	return item, nil
}

// SaveProcess persists escalation-owned process state (status, current
// level, SLA snapshot) with an audit record.
func (s *ProcessStore) SaveProcess(ctx context.Context, process *domain.Process, actor string, action domain.AuditAction, comment string) error {
	if err := s.processes.Update(ctx, process); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("process", map[string]any{"process_id": process.ID})
		}
		return apperrors.MapError(err)
	}
	s.appendAudit(ctx, domain.AuditEntityProcess, process.ID, actor, action, comment)
	return nil
}

// ProcessByID fetches a process.
func (s *ProcessStore) ProcessByID(ctx context.Context, id string) (*domain.Process, error) {
	process, err := s.processes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("process", map[string]any{"process_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return process, nil
}

// ProcessByExternalReference fetches the process tracking a ticket, or
// nil when the ticket is untracked.
func (s *ProcessStore) ProcessByExternalReference(ctx context.Context, ref string) (*domain.Process, error) {
	process, err := s.processes.GetByExternalReference(ctx, ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return process, nil
}

// ListProcessesByStatus returns processes in the given state.
func (s *ProcessStore) ListProcessesByStatus(ctx context.Context, status domain.ProcessStatus) ([]domain.Process, error) {
	result, err := s.processes.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// WorkItemByID fetches a work item.
func (s *ProcessStore) WorkItemByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	item, err := s.workItems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"workitem_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

// ActivityByID fetches an activity.
func (s *ProcessStore) ActivityByID(ctx context.Context, id string) (*domain.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("activity", map[string]any{"activity_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return activity, nil
}

// PendingWorkItem returns the process's current open assignment, or nil.
func (s *ProcessStore) PendingWorkItem(ctx context.Context, processID string) (*domain.WorkItem, error) {
	item, err := s.workItems.PendingByProcess(ctx, processID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

// ListPendingWorkItems returns a participant's open assignments ordered
// by deadline.
func (s *ProcessStore) ListPendingWorkItems(ctx context.Context, participantID string) ([]domain.WorkItem, error) {
	items, err := s.workItems.ListPendingByParticipant(ctx, participantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// AuditTrail returns the mutation history of an entity.
func (s *ProcessStore) AuditTrail(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditEntry, error) {
	entries, err := s.audit.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *ProcessStore) appendAudit(ctx context.Context, entityType domain.AuditEntityType, entityID, actor string, action domain.AuditAction, comment string) {
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		Action:     action,
		Comment:    comment,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("entity_id", entityID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
