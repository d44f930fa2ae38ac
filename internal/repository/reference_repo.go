package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceRepository reads the category and car reference tables. The
// lookups are loaded once per run and passed into the resolver and audit
// engine as plain maps, so neither component touches the database directly.
type ReferenceRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceRepository creates a new ReferenceRepository.
func NewReferenceRepository(pool *pgxpool.Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// EventTypes returns id -> name for every event category.
func (r *ReferenceRepository) EventTypes(ctx context.Context) (map[int64]string, error) {
	return r.loadLookup(ctx, `SELECT id, name FROM event_types`)
}

// Cars returns id -> name for every car identity.
func (r *ReferenceRepository) Cars(ctx context.Context) (map[int64]string, error) {
	return r.loadLookup(ctx, `SELECT id, name FROM cars`)
}

func (r *ReferenceRepository) loadLookup(ctx context.Context, query string) (map[int64]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference table: %w", err)
	}
	defer rows.Close()

	lookup := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		lookup[id] = name
	}
	return lookup, rows.Err()
}
