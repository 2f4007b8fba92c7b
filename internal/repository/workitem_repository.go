package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// WorkItemRepository encapsulates work item persistence.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) error
	Update(ctx context.Context, item *domain.WorkItem) error
	GetByID(ctx context.Context, id string) (*domain.WorkItem, error)
	// PendingByActivity returns the activity's open item, or nil.
	PendingByActivity(ctx context.Context, activityID string) (*domain.WorkItem, error)
	// PendingByProcess returns the process's single open item across
	// all its activities, or nil.
	PendingByProcess(ctx context.Context, processID string) (*domain.WorkItem, error)
	ListPendingByParticipant(ctx context.Context, participantID string) ([]domain.WorkItem, error)
}

type workItemRepository struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepository instantiates the repository.
func NewWorkItemRepository(pool *pgxpool.Pool) WorkItemRepository {
	return &workItemRepository{pool: pool}
}

const workItemColumns = `id, activity_id, participant_id, participant_type, status, deadline, created_at, completed_at`

func (r *workItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (id, activity_id, participant_id, participant_type, status, deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		item.ID,
		item.ActivityID,
		item.ParticipantID,
		item.ParticipantType,
		item.Status,
		item.Deadline,
	).Scan(&item.CreatedAt)
}

func (r *workItemRepository) Update(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        UPDATE work_items SET participant_id=$1, participant_type=$2, status=$3, deadline=$4, completed_at=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		item.ParticipantID,
		item.ParticipantType,
		item.Status,
		item.Deadline,
		item.CompletedAt,
		item.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workItemRepository) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	const query = `SELECT ` + workItemColumns + ` FROM work_items WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *workItemRepository) PendingByActivity(ctx context.Context, activityID string) (*domain.WorkItem, error) {
	const query = `SELECT ` + workItemColumns + ` FROM work_items WHERE activity_id=$1 AND status='PENDING' LIMIT 1`
	item, err := r.fetchSingle(ctx, query, activityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *workItemRepository) PendingByProcess(ctx context.Context, processID string) (*domain.WorkItem, error) {
	const query = `
        SELECT w.id, w.activity_id, w.participant_id, w.participant_type, w.status, w.deadline, w.created_at, w.completed_at
        FROM work_items w
        JOIN activities a ON a.id = w.activity_id
        WHERE a.process_id=$1 AND w.status='PENDING'
        LIMIT 1`
	item, err := r.fetchSingle(ctx, query, processID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *workItemRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.WorkItem, error) {
	var item domain.WorkItem
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&item.ID,
		&item.ActivityID,
		&item.ParticipantID,
		&item.ParticipantType,
		&item.Status,
		&item.Deadline,
		&item.CreatedAt,
		&item.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *workItemRepository) ListPendingByParticipant(ctx context.Context, participantID string) ([]domain.WorkItem, error) {
	const query = `SELECT ` + workItemColumns + ` FROM work_items WHERE participant_id=$1 AND status='PENDING' ORDER BY deadline ASC`
	rows, err := r.pool.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(
			&item.ID,
			&item.ActivityID,
			&item.ParticipantID,
			&item.ParticipantType,
			&item.Status,
			&item.Deadline,
			&item.CreatedAt,
			&item.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
