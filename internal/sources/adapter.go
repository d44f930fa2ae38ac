// Package sources contains pluggable event-listing connectors. Adapters are
// deliberately generic: no site-specific endpoints, selectors, or parsing
// rules live here. The pipeline only sees the FetchResult shape.
package sources

import (
	"context"
	"time"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// FetchParams describes one source query: where, when, and how much.
type FetchParams struct {
	Query      string
	Location   string
	RangeStart time.Time
	RangeEnd   time.Time
	Limit      int
}

// FetchResult is what every adapter returns. Partial failures go into
// Errors so one bad listing never aborts a whole source; only a total
// source failure is returned as an error from Fetch.
type FetchResult struct {
	Events []models.RawCandidate
	Errors []string
}

// Adapter abstracts all source-specific fetch logic.
type Adapter interface {
	// Key identifies the source in the registry and on job rows.
	Key() string

	// Fetch returns raw candidate events for the given parameters. It must
	// honor ctx cancellation and bound its own network timeouts.
	Fetch(ctx context.Context, params FetchParams) (FetchResult, error)
}
