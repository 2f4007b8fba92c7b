package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-service/internal/domain"
)

// ProcessRepository encapsulates process persistence.
type ProcessRepository interface {
	Create(ctx context.Context, process *domain.Process) error
	Update(ctx context.Context, process *domain.Process) error
	GetByID(ctx context.Context, id string) (*domain.Process, error)
	GetByExternalReference(ctx context.Context, ref string) (*domain.Process, error)
	ListByStatus(ctx context.Context, status domain.ProcessStatus) ([]domain.Process, error)
}

type processRepository struct {
	pool *pgxpool.Pool
}

// NewProcessRepository instantiates the repository.
func NewProcessRepository(pool *pgxpool.Pool) ProcessRepository {
	return &processRepository{pool: pool}
}

func (r *processRepository) Create(ctx context.Context, process *domain.Process) error {
	const query = `
        INSERT INTO processes (id, external_reference, title, process_type, priority, status, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`
	metadata, err := json.Marshal(process.Metadata)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query,
		process.ID,
		process.ExternalReference,
		process.Title,
		process.ProcessType,
		process.Priority,
		process.Status,
		metadata,
	).Scan(&process.CreatedAt, &process.UpdatedAt)
}

func (r *processRepository) Update(ctx context.Context, process *domain.Process) error {
	const query = `
        UPDATE processes SET title=$1, process_type=$2, priority=$3, status=$4, metadata=$5, updated_at=NOW()
        WHERE id=$6`
	metadata, err := json.Marshal(process.Metadata)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, query,
		process.Title,
		process.ProcessType,
		process.Priority,
		process.Status,
		metadata,
		process.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const processColumns = `id, external_reference, title, process_type, priority, status, metadata, created_at, updated_at`

func (r *processRepository) GetByID(ctx context.Context, id string) (*domain.Process, error) {
	return r.fetchSingle(ctx, `SELECT `+processColumns+` FROM processes WHERE id=$1`, id)
}

func (r *processRepository) GetByExternalReference(ctx context.Context, ref string) (*domain.Process, error) {
	return r.fetchSingle(ctx, `SELECT `+processColumns+` FROM processes WHERE external_reference=$1`, ref)
}

func (r *processRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Process, error) {
	var process domain.Process
	var metadata []byte
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&process.ID,
		&process.ExternalReference,
		&process.Title,
		&process.ProcessType,
		&process.Priority,
		&process.Status,
		&metadata,
		&process.CreatedAt,
		&process.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &process.Metadata); err != nil {
		return nil, err
	}
	return &process, nil
}

func (r *processRepository) ListByStatus(ctx context.Context, status domain.ProcessStatus) ([]domain.Process, error) {
	const query = `SELECT ` + processColumns + ` FROM processes WHERE status=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Process
	for rows.Next() {
		var process domain.Process
		var metadata []byte
		if err := rows.Scan(
			&process.ID,
			&process.ExternalReference,
			&process.Title,
			&process.ProcessType,
			&process.Priority,
			&process.Status,
			&metadata,
			&process.CreatedAt,
			&process.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &process.Metadata); err != nil {
			return nil, err
		}
		result = append(result, process)
	}
	return result, rows.Err()
}
