package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// AuditRunRepository records audit run verdicts so the status API can serve
// the latest pass/fail without re-running the engine.
type AuditRunRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRunRepository creates a new AuditRunRepository.
func NewAuditRunRepository(pool *pgxpool.Pool) *AuditRunRepository {
	return &AuditRunRepository{pool: pool}
}

// Create inserts one audit run record.
func (r *AuditRunRepository) Create(ctx context.Context, run *models.AuditRun) error {
	query := `
		INSERT INTO audit_runs (
			id, ran_at, passed, total_events,
			required_findings, error_findings, warning_findings, relationship_findings
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query, run.ID, run.RanAt, run.Passed,
		run.TotalEvents, run.RequiredFindings, run.ErrorFindings,
		run.WarningFindings, run.RelationshipFindings)
	if err != nil {
		return fmt.Errorf("failed to record audit run: %w", err)
	}
	return nil
}

// Latest returns the most recent audit run, or ErrNotFound when no audit
// has been recorded yet.
func (r *AuditRunRepository) Latest(ctx context.Context) (*models.AuditRun, error) {
	query := `
		SELECT id, ran_at, passed, total_events,
		       required_findings, error_findings, warning_findings, relationship_findings
		FROM audit_runs
		ORDER BY ran_at DESC
		LIMIT 1
	`
	var run models.AuditRun
	err := r.pool.QueryRow(ctx, query).Scan(
		&run.ID, &run.RanAt, &run.Passed, &run.TotalEvents,
		&run.RequiredFindings, &run.ErrorFindings, &run.WarningFindings,
		&run.RelationshipFindings,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
