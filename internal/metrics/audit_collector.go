package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
)

// LatestAuditRunReader provides the most recent recorded audit run.
type LatestAuditRunReader interface {
	Latest(ctx context.Context) (*models.AuditRun, error)
}

var (
	auditPassedDesc = prometheus.NewDesc(
		"audit_last_run_passed",
		"Whether the most recent quality audit passed (1) or failed (0).",
		nil, nil,
	)
	auditEventsDesc = prometheus.NewDesc(
		"audit_last_run_events",
		"Events covered by the most recent quality audit.",
		nil, nil,
	)
	auditFindingsDesc = prometheus.NewDesc(
		"audit_last_run_findings",
		"Findings from the most recent quality audit, by category.",
		[]string{"category"}, nil,
	)
	auditAgeDesc = prometheus.NewDesc(
		"audit_last_run_age_seconds",
		"Seconds since the most recent quality audit ran.",
		nil, nil,
	)
)

// AuditRunCollector exports the latest persisted audit verdict at scrape
// time. The audit command records the run; the collector only reads, so the
// exported values survive audit process restarts. No metrics are emitted
// until the first audit has been recorded.
type AuditRunCollector struct {
	runs    LatestAuditRunReader
	timeout time.Duration
	now     func() time.Time
}

// NewAuditRunCollector returns a collector over runs. nowFn may be nil.
func NewAuditRunCollector(runs LatestAuditRunReader, timeout time.Duration, nowFn func() time.Time) *AuditRunCollector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &AuditRunCollector{runs: runs, timeout: timeout, now: nowFn}
}

func (c *AuditRunCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- auditPassedDesc
	ch <- auditEventsDesc
	ch <- auditFindingsDesc
	ch <- auditAgeDesc
}

func (c *AuditRunCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	run, err := c.runs.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		ch <- prometheus.NewInvalidMetric(auditPassedDesc, err)
		return
	}

	passed := 0.0
	if run.Passed {
		passed = 1.0
	}
	ch <- prometheus.MustNewConstMetric(auditPassedDesc, prometheus.GaugeValue, passed)
	ch <- prometheus.MustNewConstMetric(auditEventsDesc, prometheus.GaugeValue, float64(run.TotalEvents))
	ch <- prometheus.MustNewConstMetric(auditFindingsDesc, prometheus.GaugeValue,
		float64(run.RequiredFindings), "required_fields")
	ch <- prometheus.MustNewConstMetric(auditFindingsDesc, prometheus.GaugeValue,
		float64(run.ErrorFindings), "data_quality_error")
	ch <- prometheus.MustNewConstMetric(auditFindingsDesc, prometheus.GaugeValue,
		float64(run.WarningFindings), "data_quality_warning")
	ch <- prometheus.MustNewConstMetric(auditFindingsDesc, prometheus.GaugeValue,
		float64(run.RelationshipFindings), "relationships")
	ch <- prometheus.MustNewConstMetric(auditAgeDesc, prometheus.GaugeValue,
		c.now().Sub(run.RanAt).Seconds())
}
