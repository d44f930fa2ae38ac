// Package service orchestrates the ingestion pipeline: fetch, canonicalize,
// dedupe, resolve, persist, all wrapped in one traceable ingestion job.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/canonical"
	"github.com/mikearonapi/autorev-sub014/internal/dedup"
	"github.com/mikearonapi/autorev-sub014/internal/metrics"
	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/resolver"
	"github.com/mikearonapi/autorev-sub014/internal/sources"
)

// EventStore is the catalog surface the pipeline needs: a preloaded
// conflict-key index and an atomic upsert. The pgx repository implements it;
// tests substitute an in-memory fake.
type EventStore interface {
	ConflictIndex(ctx context.Context, sourceURLs []string) (map[models.ConflictKey]int64, error)
	Upsert(ctx context.Context, event *models.Event) (int64, bool, error)
}

// JobStore persists ingestion job rows and their terminal transitions.
type JobStore interface {
	Create(ctx context.Context, job *models.IngestionJob) error
	Complete(ctx context.Context, job *models.IngestionJob) error
	Fail(ctx context.Context, jobID uuid.UUID, errorMessage string) error
}

// RunOptions are the operator-supplied parameters for one pipeline run.
// SourceKey may name a single registered source or "all".
type RunOptions struct {
	SourceKey  string
	Location   string
	RangeStart time.Time
	RangeEnd   time.Time
	Limit      int
	DryRun     bool
}

// RunSummary is the structured result of one job. Logging is a side-effect
// rendering of this object; callers inspect it, not captured stdout.
type RunSummary struct {
	JobID            uuid.UUID          `json:"jobId"`
	SourceKey        string             `json:"sourceKey"`
	Status           models.JobStatus   `json:"status"`
	DryRun           bool               `json:"dryRun"`
	SourcesAttempted int                `json:"sourcesAttempted"`
	SourcesSucceeded int                `json:"sourcesSucceeded"`
	SourcesFailed    int                `json:"sourcesFailed"`
	SourceErrors     []string           `json:"sourceErrors,omitempty"`
	Counters         models.RunCounters `json:"counters"`
	Rejections       []models.Rejection `json:"rejections,omitempty"`
	SkipReasons      []string           `json:"skipReasons,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// Failed reports whether the job reached the failed terminal state.
func (s *RunSummary) Failed() bool {
	return s.Status == models.JobFailed
}

// IngestionService runs ingestion jobs end to end. One call to Run is one
// job; independent jobs share nothing but the datastore.
type IngestionService struct {
	events       EventStore
	jobs         JobStore
	registry     *sources.Registry
	resolver     *resolver.Resolver
	metrics      *metrics.Metrics
	logger       *zap.Logger
	fetchWorkers int
	dbTimeout    time.Duration
}

// NewIngestionService wires the pipeline together.
func NewIngestionService(
	events EventStore,
	jobs JobStore,
	registry *sources.Registry,
	res *resolver.Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
	fetchWorkers int,
	dbTimeout time.Duration,
) *IngestionService {
	if fetchWorkers <= 0 {
		fetchWorkers = 4
	}
	if dbTimeout <= 0 {
		dbTimeout = 15 * time.Second
	}
	return &IngestionService{
		events:       events,
		jobs:         jobs,
		registry:     registry,
		resolver:     res,
		metrics:      m,
		logger:       logger,
		fetchWorkers: fetchWorkers,
		dbTimeout:    dbTimeout,
	}
}

// Run executes one ingestion job. It returns an error only when the job
// could not even be recorded; everything after that point is reported
// through the summary, with the job row left in a terminal state.
func (s *IngestionService) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	adapters, err := s.selectAdapters(opts.SourceKey)
	if err != nil {
		return nil, err
	}

	job := &models.IngestionJob{
		ID:        uuid.New(),
		SourceKey: opts.SourceKey,
		Status:    models.JobRunning,
		StartedAt: time.Now().UTC(),
		Payload: models.JobPayload{
			Location:   opts.Location,
			RangeStart: formatDate(opts.RangeStart),
			RangeEnd:   formatDate(opts.RangeEnd),
			Limit:      opts.Limit,
			DryRun:     opts.DryRun,
		},
	}
	summary := &RunSummary{
		JobID:     job.ID,
		SourceKey: opts.SourceKey,
		Status:    models.JobRunning,
		DryRun:    opts.DryRun,
	}

	if !opts.DryRun {
		if err := s.createJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to record ingestion job: %w", err)
		}
	}

	s.logger.Info("ingestion job started",
		zap.String("job_id", job.ID.String()),
		zap.String("source", opts.SourceKey),
		zap.Bool("dry_run", opts.DryRun),
	)

	// Fetch from every selected source; the batch is closed before any
	// canonicalization starts.
	params := sources.FetchParams{
		Location:   opts.Location,
		RangeStart: opts.RangeStart,
		RangeEnd:   opts.RangeEnd,
		Limit:      opts.Limit,
	}
	outcomes := sources.FetchAll(ctx, adapters, params, s.fetchWorkers)

	var raws []rawWithSource
	for _, outcome := range outcomes {
		summary.SourcesAttempted++
		if outcome.Err != nil {
			summary.SourcesFailed++
			summary.SourceErrors = append(summary.SourceErrors,
				fmt.Sprintf("%s: %v", outcome.Key, outcome.Err))
			s.logger.Warn("source fetch failed",
				zap.String("job_id", job.ID.String()),
				zap.String("source", outcome.Key),
				zap.Error(outcome.Err),
			)
			continue
		}
		summary.SourcesSucceeded++
		summary.SourceErrors = append(summary.SourceErrors, prefixEach(outcome.Key, outcome.Result.Errors)...)
		for _, raw := range outcome.Result.Events {
			raws = append(raws, rawWithSource{raw: raw, sourceKey: outcome.Key})
		}
		s.metrics.CandidatesDiscovered.WithLabelValues(outcome.Key).Add(float64(len(outcome.Result.Events)))
	}
	summary.Counters.Discovered = len(raws)

	if err := ctx.Err(); err != nil {
		return s.failJob(ctx, job, summary, "run cancelled: "+err.Error()), nil
	}
	if summary.SourcesAttempted > 0 && summary.SourcesSucceeded == 0 {
		return s.failJob(ctx, job, summary, "every source fetch failed"), nil
	}

	// Canonicalize, then dedupe the closed batch.
	var candidates []models.CanonicalCandidate
	for _, item := range raws {
		cand, rejection := canonical.Canonicalize(item.raw, item.sourceKey)
		if rejection != nil {
			summary.Rejections = append(summary.Rejections, *rejection)
			s.metrics.CandidatesRejected.WithLabelValues(item.sourceKey).Inc()
			continue
		}
		candidates = append(candidates, *cand)
	}
	summary.Counters.Rejected = len(summary.Rejections)

	batch := dedup.DedupeBatch(candidates)
	summary.Counters.Duplicates = len(batch.Dropped)
	for _, dropped := range batch.Dropped {
		s.metrics.CandidatesDuplicate.WithLabelValues(dropped.SourceKey).Inc()
	}

	// One round trip for all existence checks, then route.
	index, err := s.loadConflictIndex(ctx, batch.Unique)
	if err != nil {
		return s.failJob(ctx, job, summary, "failed to load conflict index: "+err.Error()), nil
	}
	plan := s.resolver.Resolve(batch.Unique, index, job.ID)

	for _, skip := range plan.Skipped {
		summary.SkipReasons = append(summary.SkipReasons, skip.Reason)
		s.metrics.CandidatesSkipped.WithLabelValues(skip.Candidate.SourceKey).Inc()
	}
	summary.Counters.Skipped = len(plan.Skipped)

	if opts.DryRun {
		summary.Counters.Inserted = len(plan.ToInsert)
		summary.Counters.Updated = len(plan.ToUpdate)
		summary.Status = models.JobCompleted
		s.logSummary(summary)
		return summary, nil
	}

	// Upserts apply incrementally: a failure fails the job but does not
	// roll back rows already written, partial ingestion beats none.
	if err := s.persistPlan(ctx, job, summary, plan); err != nil {
		return s.failJob(ctx, job, summary, "persistence failure: "+err.Error()), nil
	}

	job.SourcesAttempted = summary.SourcesAttempted
	job.SourcesSucceeded = summary.SourcesSucceeded
	job.SourcesFailed = summary.SourcesFailed
	job.Counters = summary.Counters
	if err := s.completeJob(ctx, job); err != nil {
		// The row must not linger as running; fall back to the failed
		// transition, which runs on a fresh context.
		return s.failJob(ctx, job, summary, "failed to finalize job: "+err.Error()), nil
	}

	summary.Status = models.JobCompleted
	s.metrics.JobsFinished.WithLabelValues(string(models.JobCompleted)).Inc()
	s.logSummary(summary)
	return summary, nil
}

type rawWithSource struct {
	raw       models.RawCandidate
	sourceKey string
}

func (s *IngestionService) selectAdapters(sourceKey string) ([]sources.Adapter, error) {
	if sourceKey == "all" {
		var adapters []sources.Adapter
		for _, key := range s.registry.Keys() {
			adapter, _ := s.registry.Get(key)
			adapters = append(adapters, adapter)
		}
		if len(adapters) == 0 {
			return nil, errors.New("no sources registered")
		}
		return adapters, nil
	}
	adapter, ok := s.registry.Get(sourceKey)
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", sourceKey)
	}
	return []sources.Adapter{adapter}, nil
}

func (s *IngestionService) loadConflictIndex(ctx context.Context, candidates []models.CanonicalCandidate) (map[models.ConflictKey]int64, error) {
	urlSet := make(map[string]struct{}, len(candidates))
	urls := make([]string, 0, len(candidates))
	for i := range candidates {
		if _, seen := urlSet[candidates[i].SourceURL]; seen {
			continue
		}
		urlSet[candidates[i].SourceURL] = struct{}{}
		urls = append(urls, candidates[i].SourceURL)
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.events.ConflictIndex(dbCtx, urls)
}

func (s *IngestionService) persistPlan(ctx context.Context, job *models.IngestionJob, summary *RunSummary, plan resolver.Plan) error {
	upsert := func(event *models.Event) (bool, error) {
		dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
		defer cancel()
		_, inserted, err := s.events.Upsert(dbCtx, event)
		return inserted, err
	}

	for i := range plan.ToInsert {
		inserted, err := upsert(&plan.ToInsert[i])
		if err != nil {
			return err
		}
		// A concurrent job may have won the insert race; the upsert then
		// converged on its row and this write counts as an update.
		s.countWrite(summary, inserted)
	}
	for i := range plan.ToUpdate {
		inserted, err := upsert(&plan.ToUpdate[i].Event)
		if err != nil {
			return err
		}
		s.countWrite(summary, inserted)
	}
	return nil
}

func (s *IngestionService) countWrite(summary *RunSummary, inserted bool) {
	if inserted {
		summary.Counters.Inserted++
		s.metrics.EventsInserted.WithLabelValues(summary.SourceKey).Inc()
	} else {
		summary.Counters.Updated++
		s.metrics.EventsUpdated.WithLabelValues(summary.SourceKey).Inc()
	}
}

func (s *IngestionService) createJob(ctx context.Context, job *models.IngestionJob) error {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.jobs.Create(dbCtx, job)
}

func (s *IngestionService) completeJob(ctx context.Context, job *models.IngestionJob) error {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.jobs.Complete(dbCtx, job)
}

// failJob transitions the job to failed and finalizes the summary. The
// transition runs on a fresh context so a cancelled run still lands
// terminal instead of lingering as running.
func (s *IngestionService) failJob(ctx context.Context, job *models.IngestionJob, summary *RunSummary, message string) *RunSummary {
	summary.Status = models.JobFailed
	summary.Error = message

	if !summary.DryRun {
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dbTimeout)
		defer cancel()
		if err := s.jobs.Fail(failCtx, job.ID, message); err != nil {
			s.logger.Error("failed to mark job failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.metrics.JobsFinished.WithLabelValues(string(models.JobFailed)).Inc()
	s.logSummary(summary)
	return summary
}

func (s *IngestionService) logSummary(summary *RunSummary) {
	s.logger.Info("ingestion job finished",
		zap.String("job_id", summary.JobID.String()),
		zap.String("source", summary.SourceKey),
		zap.String("status", string(summary.Status)),
		zap.Bool("dry_run", summary.DryRun),
		zap.Int("sources_attempted", summary.SourcesAttempted),
		zap.Int("sources_succeeded", summary.SourcesSucceeded),
		zap.Int("sources_failed", summary.SourcesFailed),
		zap.Int("discovered", summary.Counters.Discovered),
		zap.Int("rejected", summary.Counters.Rejected),
		zap.Int("duplicates", summary.Counters.Duplicates),
		zap.Int("inserted", summary.Counters.Inserted),
		zap.Int("updated", summary.Counters.Updated),
		zap.Int("skipped", summary.Counters.Skipped),
		zap.String("error", summary.Error),
	)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func prefixEach(prefix string, items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = prefix + ": " + item
	}
	return out
}
