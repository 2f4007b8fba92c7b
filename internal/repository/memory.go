package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// Memory-backed implementations of the repository contracts. Used by
// the service tests and as a degraded mode when no DSN is configured.
// They return pgx.ErrNoRows for misses so callers map errors uniformly.

// MemoryProcessRepository is an in-process ProcessRepository.
type MemoryProcessRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Process
	byRef map[string]string
}

// NewMemoryProcessRepository constructs an empty repository.
func NewMemoryProcessRepository() *MemoryProcessRepository {
	return &MemoryProcessRepository{
		items: make(map[string]domain.Process),
		byRef: make(map[string]string),
	}
}

func (r *MemoryProcessRepository) Create(ctx context.Context, process *domain.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	process.CreatedAt = now
	process.UpdatedAt = now
	r.items[process.ID] = *process
	r.byRef[process.ExternalReference] = process.ID
	return nil
}

func (r *MemoryProcessRepository) Update(ctx context.Context, process *domain.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[process.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	process.CreatedAt = stored.CreatedAt
	process.UpdatedAt = time.Now()
	r.items[process.ID] = *process
	return nil
}

func (r *MemoryProcessRepository) GetByID(ctx context.Context, id string) (*domain.Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	process, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &process, nil
}

func (r *MemoryProcessRepository) GetByExternalReference(ctx context.Context, ref string) (*domain.Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRef[ref]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	process := r.items[id]
	return &process, nil
}

func (r *MemoryProcessRepository) ListByStatus(ctx context.Context, status domain.ProcessStatus) ([]domain.Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Process
	for _, process := range r.items {
		if process.Status == status {
			result = append(result, process)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// MemoryActivityRepository is an in-process ActivityRepository.
type MemoryActivityRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Activity
}

// NewMemoryActivityRepository constructs an empty repository.
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{items: make(map[string]domain.Activity)}
}

func (r *MemoryActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.CreatedAt = time.Now()
	r.items[activity.ID] = *activity
	return nil
}

func (r *MemoryActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	activity, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &activity, nil
}

func (r *MemoryActivityRepository) ListByProcess(ctx context.Context, processID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Activity
	for _, activity := range r.items {
		if activity.ProcessID == processID {
			result = append(result, activity)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Level < result[j].Level
	})
	return result, nil
}

func (r *MemoryActivityRepository) MaxLevel(ctx context.Context, processID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	level := 0
	for _, activity := range r.items {
		if activity.ProcessID == processID && activity.Level > level {
			level = activity.Level
		}
	}
	return level, nil
}

// MemoryWorkItemRepository is an in-process WorkItemRepository.
type MemoryWorkItemRepository struct {
	mu         sync.RWMutex
	items      map[string]domain.WorkItem
	activities *MemoryActivityRepository
}

// NewMemoryWorkItemRepository constructs a repository sharing the
// activity repository for process-scoped lookups.
func NewMemoryWorkItemRepository(activities *MemoryActivityRepository) *MemoryWorkItemRepository {
	return &MemoryWorkItemRepository{
		items:      make(map[string]domain.WorkItem),
		activities: activities,
	}
}

func (r *MemoryWorkItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.CreatedAt = time.Now()
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryWorkItemRepository) Update(ctx context.Context, item *domain.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryWorkItemRepository) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (r *MemoryWorkItemRepository) PendingByActivity(ctx context.Context, activityID string) (*domain.WorkItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.ActivityID == activityID && item.Status == domain.WorkItemStatusPending {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r *MemoryWorkItemRepository) PendingByProcess(ctx context.Context, processID string) (*domain.WorkItem, error) {
	activities, err := r.activities.ListByProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	for _, activity := range activities {
		item, err := r.PendingByActivity(ctx, activity.ID)
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}
	return nil, nil
}

func (r *MemoryWorkItemRepository) ListPendingByParticipant(ctx context.Context, participantID string) ([]domain.WorkItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WorkItem
	for _, item := range r.items {
		if item.ParticipantID == participantID && item.Status == domain.WorkItemStatusPending {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Deadline.Before(result[j].Deadline)
	})
	return result, nil
}

// MemoryAuditRepository is an in-process AuditRepository.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewMemoryAuditRepository constructs an empty repository.
func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryAuditRepository) ListByEntity(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// All returns every recorded entry in append order.
func (r *MemoryAuditRepository) All() []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditEntry{}, r.entries...)
}
