// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and the quality audit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the per-run pipeline counters. Construct with a fresh
// registry in tests to avoid duplicate registration. Audit verdicts are
// exported separately by AuditRunCollector, which reads the persisted
// audit_runs record instead of process-local state.
type Metrics struct {
	CandidatesDiscovered *prometheus.CounterVec
	CandidatesRejected   *prometheus.CounterVec
	CandidatesDuplicate  *prometheus.CounterVec
	EventsInserted       *prometheus.CounterVec
	EventsUpdated        *prometheus.CounterVec
	CandidatesSkipped    *prometheus.CounterVec
	JobsFinished         *prometheus.CounterVec
}

// New registers all pipeline collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CandidatesDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_candidates_discovered_total",
			Help: "Raw candidates returned by source adapters.",
		}, []string{"source"}),
		CandidatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_candidates_rejected_total",
			Help: "Candidates rejected during canonicalization.",
		}, []string{"source"}),
		CandidatesDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_candidates_duplicate_total",
			Help: "Candidates dropped as in-batch duplicates.",
		}, []string{"source"}),
		EventsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_events_inserted_total",
			Help: "Catalog rows inserted by the conflict resolver.",
		}, []string{"source"}),
		EventsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_events_updated_total",
			Help: "Catalog rows updated in place by the conflict resolver.",
		}, []string{"source"}),
		CandidatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_candidates_skipped_total",
			Help: "Candidates that could not form a conflict key.",
		}, []string{"source"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_jobs_finished_total",
			Help: "Ingestion jobs by terminal status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.CandidatesDiscovered, m.CandidatesRejected, m.CandidatesDuplicate,
		m.EventsInserted, m.EventsUpdated, m.CandidatesSkipped,
		m.JobsFinished,
	)
	return m
}
