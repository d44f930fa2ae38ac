// Package resolver matches batch-unique candidates against the persisted
// catalog by conflict key and builds the upsert plan for a run. It decides;
// the repository persists.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikearonapi/autorev-sub014/internal/canonical"
	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// Update pairs a refreshed event with the id of the row it replaces.
type Update struct {
	Event      models.Event
	ExistingID int64
}

// Skip records a candidate that could not form a conflict key.
type Skip struct {
	Candidate models.CanonicalCandidate
	Reason    string
}

// Plan is the routing decision for one batch: rows to insert, rows to
// update in place, and candidates skipped with a reason.
type Plan struct {
	ToInsert []models.Event
	ToUpdate []Update
	Skipped  []Skip
}

// Resolver builds upsert plans. Trusted sources have their inserts
// auto-approved; everything else lands pending for moderation.
type Resolver struct {
	trusted    map[string]bool
	eventTypes map[string]int64
	now        func() time.Time
}

// New returns a Resolver. trustedSources lists source keys whose listings
// skip the pending moderation queue. eventTypes maps lower-cased category
// names to their reference ids; it is an injected read-only lookup so tests
// can substitute a fixture. nowFn may be nil.
func New(trustedSources []string, eventTypes map[string]int64, nowFn func() time.Time) *Resolver {
	trusted := make(map[string]bool, len(trustedSources))
	for _, key := range trustedSources {
		trusted[key] = true
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Resolver{trusted: trusted, eventTypes: eventTypes, now: nowFn}
}

// Resolve routes each batch-unique candidate by conflict key against
// existingIndex, a (source_url, start_date) -> event id lookup preloaded
// once per run. Candidates already in the catalog become updates that keep
// id and slug; unseen candidates become inserts with a derived slug.
func (r *Resolver) Resolve(
	candidates []models.CanonicalCandidate,
	existingIndex map[models.ConflictKey]int64,
	jobID uuid.UUID,
) Plan {
	plan := Plan{
		ToInsert: []models.Event{},
		ToUpdate: []Update{},
		Skipped:  []Skip{},
	}

	now := r.now().UTC()
	for _, cand := range candidates {
		if cand.StartDate.IsZero() {
			plan.Skipped = append(plan.Skipped, Skip{
				Candidate: cand,
				Reason:    "cannot form conflict key: missing start date",
			})
			continue
		}
		if cand.SourceURL == "" {
			plan.Skipped = append(plan.Skipped, Skip{
				Candidate: cand,
				Reason:    "cannot form conflict key: missing source url",
			})
			continue
		}

		event := r.buildEvent(cand, jobID, now)
		if existingID, ok := existingIndex[cand.ConflictKey()]; ok {
			// The stored id, slug, and status survive updates; the upsert
			// statement never overwrites them.
			plan.ToUpdate = append(plan.ToUpdate, Update{Event: event, ExistingID: existingID})
		} else {
			plan.ToInsert = append(plan.ToInsert, event)
		}
	}
	return plan
}

func (r *Resolver) buildEvent(cand models.CanonicalCandidate, jobID uuid.UUID, now time.Time) models.Event {
	status := models.StatusPending
	if r.trusted[cand.SourceKey] {
		status = models.StatusApproved
	}

	var eventTypeID *int64
	if cand.EventType != nil {
		if id, ok := r.eventTypes[strings.ToLower(*cand.EventType)]; ok {
			eventTypeID = &id
		}
	}

	verifiedAt := now
	return models.Event{
		Slug:           DeriveSlug(cand),
		Name:           cand.Name,
		Description:    cand.Description,
		EventTypeID:    eventTypeID,
		Scope:          cand.Scope,
		StartDate:      cand.StartDate,
		EndDate:        cand.EndDate,
		City:           cand.City,
		State:          cand.State,
		Region:         cand.Region,
		Latitude:       cand.Latitude,
		Longitude:      cand.Longitude,
		SourceURL:      cand.SourceURL,
		Status:         status,
		IsFree:         cand.IsFree,
		CostText:       cand.CostText,
		ImageURL:       cand.ImageURL,
		IngestionJobID: &jobID,
		VerifiedAt:     &verifiedAt,
	}
}

// DeriveSlug builds a stable, human-readable slug from the normalized name,
// city, and date, disambiguated by a short hash of the source URL so two
// listings of the same event on different sites never collide on the slug
// unique index. Re-ingesting the same URL always derives the same slug.
func DeriveSlug(cand models.CanonicalCandidate) string {
	name := strings.ReplaceAll(canonical.NormalizeText(cand.Name), " ", "-")
	city := strings.ReplaceAll(canonical.NormalizeText(cand.City), " ", "-")
	sum := sha256.Sum256([]byte(cand.SourceURL))
	return fmt.Sprintf("%s-%s-%s-%s",
		name, city, cand.StartDate.Format("2006-01-02"), hex.EncodeToString(sum[:3]))
}
