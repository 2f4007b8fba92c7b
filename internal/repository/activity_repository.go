package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// ActivityRepository encapsulates activity persistence. Activities are
// append-only; there is no update.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	ListByProcess(ctx context.Context, processID string) ([]domain.Activity, error)
	MaxLevel(ctx context.Context, processID string) (int, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (id, process_id, name, level)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		activity.ID,
		activity.ProcessID,
		activity.Name,
		activity.Level,
	).Scan(&activity.CreatedAt)
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	const query = `SELECT id, process_id, name, level, created_at FROM activities WHERE id=$1`
	var activity domain.Activity
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&activity.ID,
		&activity.ProcessID,
		&activity.Name,
		&activity.Level,
		&activity.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListByProcess(ctx context.Context, processID string) ([]domain.Activity, error) {
	const query = `SELECT id, process_id, name, level, created_at FROM activities WHERE process_id=$1 ORDER BY level ASC`
	rows, err := r.pool.Query(ctx, query, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.ProcessID,
			&activity.Name,
			&activity.Level,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}

func (r *activityRepository) MaxLevel(ctx context.Context, processID string) (int, error) {
	const query = `SELECT COALESCE(MAX(level), 0) FROM activities WHERE process_id=$1`
	var level int
	if err := r.pool.QueryRow(ctx, query, processID).Scan(&level); err != nil {
		return 0, err
	}
	return level, nil
}
