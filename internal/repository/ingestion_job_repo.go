package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// IngestionJobRepository handles database operations for ingestion job rows.
type IngestionJobRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionJobRepository creates a new IngestionJobRepository.
func NewIngestionJobRepository(pool *pgxpool.Pool) *IngestionJobRepository {
	return &IngestionJobRepository{pool: pool}
}

// Create inserts a job row already in the running state. The payload is a
// frozen snapshot of the run's parameters.
func (r *IngestionJobRepository) Create(ctx context.Context, job *models.IngestionJob) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	query := `
		INSERT INTO ingestion_jobs (id, source_key, status, started_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query, job.ID, job.SourceKey, job.Status, job.StartedAt, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}
	return nil
}

// Complete transitions a running job to completed with its final counters.
// Returns TerminalJobError if the job already reached a terminal state;
// terminal rows are never rewritten.
func (r *IngestionJobRepository) Complete(ctx context.Context, job *models.IngestionJob) error {
	query := `
		UPDATE ingestion_jobs SET
			status = 'completed',
			completed_at = NOW(),
			sources_attempted = $2,
			sources_succeeded = $3,
			sources_failed = $4,
			discovered = $5,
			rejected = $6,
			duplicates = $7,
			inserted = $8,
			updated = $9,
			skipped = $10
		WHERE id = $1 AND status = 'running'
	`
	tag, err := r.pool.Exec(ctx, query, job.ID,
		job.SourcesAttempted, job.SourcesSucceeded, job.SourcesFailed,
		job.Counters.Discovered, job.Counters.Rejected, job.Counters.Duplicates,
		job.Counters.Inserted, job.Counters.Updated, job.Counters.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to complete ingestion job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &TerminalJobError{JobID: job.ID.String()}
	}
	return nil
}

// Fail transitions a running job to failed with an error message. Returns
// TerminalJobError if the job is already terminal.
func (r *IngestionJobRepository) Fail(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	query := `
		UPDATE ingestion_jobs SET
			status = 'failed',
			completed_at = NOW(),
			error_message = $2
		WHERE id = $1 AND status = 'running'
	`
	tag, err := r.pool.Exec(ctx, query, jobID, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to fail ingestion job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &TerminalJobError{JobID: jobID.String()}
	}
	return nil
}

const jobColumns = `
	id, source_key, status, started_at, completed_at, payload,
	sources_attempted, sources_succeeded, sources_failed,
	discovered, rejected, duplicates, inserted, updated, skipped, error_message
`

// Get returns one job by id, or ErrNotFound.
func (r *IngestionJobRepository) Get(ctx context.Context, jobID uuid.UUID) (*models.IngestionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// List returns the most recent jobs, newest first.
func (r *IngestionJobRepository) List(ctx context.Context, limit int) ([]models.IngestionJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.IngestionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*models.IngestionJob, error) {
	var job models.IngestionJob
	var payloadJSON []byte
	err := row.Scan(
		&job.ID, &job.SourceKey, &job.Status, &job.StartedAt, &job.CompletedAt,
		&payloadJSON, &job.SourcesAttempted, &job.SourcesSucceeded,
		&job.SourcesFailed, &job.Counters.Discovered, &job.Counters.Rejected,
		&job.Counters.Duplicates, &job.Counters.Inserted, &job.Counters.Updated,
		&job.Counters.Skipped, &job.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job payload: %w", err)
		}
	}
	return &job, nil
}
