package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// TerminalJobError is returned when a write targets an ingestion job that
// has already reached a terminal state. Terminal jobs are never updated.
type TerminalJobError struct {
	JobID string
}

func (e *TerminalJobError) Error() string {
	return fmt.Sprintf("ingestion job '%s' is already terminal", e.JobID)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
