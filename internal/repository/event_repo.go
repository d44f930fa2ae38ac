package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// EventRepository handles database operations for catalog events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `
	id, slug, name, description, event_type_id, scope, start_date, end_date,
	city, state, region, latitude, longitude, source_url, status, is_free,
	cost_text, image_url, ingestion_job_id, verified_at, created_at, updated_at
`

// ConflictIndex loads the (source_url, start_date) -> id lookup for the
// given source URLs in one round trip. The resolver consults this index for
// every candidate instead of issuing per-candidate existence queries.
func (r *EventRepository) ConflictIndex(ctx context.Context, sourceURLs []string) (map[models.ConflictKey]int64, error) {
	index := make(map[models.ConflictKey]int64, len(sourceURLs))
	if len(sourceURLs) == 0 {
		return index, nil
	}

	query := `
		SELECT id, source_url, to_char(start_date, 'YYYY-MM-DD')
		FROM events
		WHERE source_url = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, sourceURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to load conflict index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var key models.ConflictKey
		if err := rows.Scan(&id, &key.SourceURL, &key.StartDate); err != nil {
			return nil, err
		}
		index[key] = id
	}
	return index, rows.Err()
}

// Upsert writes one event keyed on (source_url, start_date) as a single
// atomic statement. Two concurrent jobs racing on the same listing both
// succeed and converge to one row; the unique constraint is the source of
// truth, not application-level locking. The stored slug and status survive
// updates; provenance fields are refreshed every time.
func (r *EventRepository) Upsert(ctx context.Context, event *models.Event) (int64, bool, error) {
	query := `
		INSERT INTO events (
			slug, name, description, event_type_id, scope, start_date, end_date,
			city, state, region, latitude, longitude, source_url, status,
			is_free, cost_text, image_url, ingestion_job_id, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (source_url, start_date) DO UPDATE SET
			name             = EXCLUDED.name,
			description      = COALESCE(EXCLUDED.description, events.description),
			event_type_id    = COALESCE(EXCLUDED.event_type_id, events.event_type_id),
			scope            = EXCLUDED.scope,
			end_date         = EXCLUDED.end_date,
			city             = EXCLUDED.city,
			state            = COALESCE(EXCLUDED.state, events.state),
			region           = COALESCE(EXCLUDED.region, events.region),
			latitude         = COALESCE(EXCLUDED.latitude, events.latitude),
			longitude        = COALESCE(EXCLUDED.longitude, events.longitude),
			is_free          = EXCLUDED.is_free,
			cost_text        = COALESCE(EXCLUDED.cost_text, events.cost_text),
			image_url        = COALESCE(EXCLUDED.image_url, events.image_url),
			ingestion_job_id = EXCLUDED.ingestion_job_id,
			verified_at      = EXCLUDED.verified_at,
			updated_at       = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`

	var id int64
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		event.Slug, event.Name, event.Description, event.EventTypeID,
		event.Scope, event.StartDate, event.EndDate, event.City, event.State,
		event.Region, event.Latitude, event.Longitude, event.SourceURL,
		event.Status, event.IsFree, event.CostText, event.ImageURL,
		event.IngestionJobID, event.VerifiedAt,
	).Scan(&id, &inserted)
	if err != nil {
		// The conflict-key constraint is absorbed by ON CONFLICT; a unique
		// violation surfacing here is the slug index.
		if isUniqueViolation(err) {
			return 0, false, fmt.Errorf("slug collision on upsert: %w", err)
		}
		return 0, false, fmt.Errorf("failed to upsert event: %w", err)
	}
	return id, inserted, nil
}

// FindByConflictKey returns the event for one conflict key, or ErrNotFound.
func (r *EventRepository) FindByConflictKey(ctx context.Context, key models.ConflictKey) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE source_url = $1 AND start_date = $2`

	var event models.Event
	err := r.pool.QueryRow(ctx, query, key.SourceURL, key.StartDate).Scan(
		&event.ID, &event.Slug, &event.Name, &event.Description,
		&event.EventTypeID, &event.Scope, &event.StartDate, &event.EndDate,
		&event.City, &event.State, &event.Region, &event.Latitude,
		&event.Longitude, &event.SourceURL, &event.Status, &event.IsFree,
		&event.CostText, &event.ImageURL, &event.IngestionJobID,
		&event.VerifiedAt, &event.CreatedAt, &event.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListAll streams the whole catalog, ordered by id. Used by the quality
// audit engine, which is read-only by contract.
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(
			&event.ID, &event.Slug, &event.Name, &event.Description,
			&event.EventTypeID, &event.Scope, &event.StartDate, &event.EndDate,
			&event.City, &event.State, &event.Region, &event.Latitude,
			&event.Longitude, &event.SourceURL, &event.Status, &event.IsFree,
			&event.CostText, &event.ImageURL, &event.IngestionJobID,
			&event.VerifiedAt, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListCarAffinities returns every event-to-car relationship row.
func (r *EventRepository) ListCarAffinities(ctx context.Context) ([]models.EventCarAffinity, error) {
	query := `SELECT id, event_id, car_id, brand FROM event_car_affinities ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list car affinities: %w", err)
	}
	defer rows.Close()

	var affinities []models.EventCarAffinity
	for rows.Next() {
		var aff models.EventCarAffinity
		if err := rows.Scan(&aff.ID, &aff.EventID, &aff.CarID, &aff.Brand); err != nil {
			return nil, err
		}
		affinities = append(affinities, aff)
	}
	return affinities, rows.Err()
}
