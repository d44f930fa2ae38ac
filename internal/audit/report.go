package audit

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// Severity classifies a finding. ERROR findings gate releases; WARNING
// findings are reported but never fail a run.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Category names the rule set a finding came from.
type Category string

const (
	CategoryRequiredFields Category = "required_fields"
	CategoryDataQuality    Category = "data_quality"
	CategoryRelationships  Category = "relationships"
)

// Finding is one defect discovered by the audit engine.
type Finding struct {
	EventID  int64    `json:"eventId"`
	Table    string   `json:"table"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
}

// SummaryStats describes the audited catalog independent of findings.
type SummaryStats struct {
	TotalEvents        int            `json:"totalEvents"`
	ByStatus           map[string]int `json:"byStatus"`
	ByRegion           map[string]int `json:"byRegion"`
	ByScope            map[string]int `json:"byScope"`
	WithCoordinatesPct float64        `json:"withCoordinatesPct"`
	WithImagesPct      float64        `json:"withImagesPct"`
	FreeEvents         int            `json:"freeEvents"`
	PastEvents         int            `json:"pastEvents"`
}

// Report is the merged result of one whole-catalog audit pass.
type Report struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Findings    []Finding    `json:"findings"`
	Stats       SummaryStats `json:"stats"`
}

// CountByCategory returns the number of findings per rule set.
func (r *Report) CountByCategory() map[Category]int {
	counts := make(map[Category]int, 3)
	for _, f := range r.Findings {
		counts[f.Category]++
	}
	return counts
}

// CountBySeverity returns the number of findings per severity.
func (r *Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 2)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// GatingCount is the number of findings that fail the run: every
// required-field finding, every relationship finding, and ERROR-severity
// data-quality findings. WARNING-only catalogs pass.
func (r *Report) GatingCount() int {
	n := 0
	for _, f := range r.Findings {
		switch f.Category {
		case CategoryRequiredFields, CategoryRelationships:
			n++
		case CategoryDataQuality:
			if f.Severity == SeverityError {
				n++
			}
		}
	}
	return n
}

// Passed reports the explicit pass/fail contract CI gates rely on.
func (r *Report) Passed() bool {
	return r.GatingCount() == 0
}

// Run converts the report into its persistable provenance record.
func (r *Report) Run(id uuid.UUID) *models.AuditRun {
	byCat := r.CountByCategory()
	errs, warns := 0, 0
	for _, f := range r.Findings {
		if f.Category != CategoryDataQuality {
			continue
		}
		if f.Severity == SeverityError {
			errs++
		} else {
			warns++
		}
	}
	return &models.AuditRun{
		ID:                   id,
		RanAt:                r.GeneratedAt,
		Passed:               r.Passed(),
		TotalEvents:          r.Stats.TotalEvents,
		RequiredFindings:     byCat[CategoryRequiredFields],
		ErrorFindings:        errs,
		WarningFindings:      warns,
		RelationshipFindings: byCat[CategoryRelationships],
	}
}

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Quality audit — %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Events audited: %d\n\n", r.Stats.TotalEvents)

	byCat := r.CountByCategory()
	bySev := r.CountBySeverity()
	fmt.Fprintf(w, "Findings: %d (required: %d, data quality: %d, relationships: %d)\n",
		len(r.Findings), byCat[CategoryRequiredFields], byCat[CategoryDataQuality], byCat[CategoryRelationships])
	fmt.Fprintf(w, "Severity: %d ERROR, %d WARNING\n\n", bySev[SeverityError], bySev[SeverityWarning])

	for _, f := range r.Findings {
		fmt.Fprintf(w, "  [%s] %s #%d %s: %s\n", f.Severity, f.Table, f.EventID, f.Field, f.Message)
	}
	if len(r.Findings) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "By status: %s\n", formatCounts(r.Stats.ByStatus))
	fmt.Fprintf(w, "By region: %s\n", formatCounts(r.Stats.ByRegion))
	fmt.Fprintf(w, "By scope:  %s\n", formatCounts(r.Stats.ByScope))
	fmt.Fprintf(w, "Coordinates: %.1f%%  Images: %.1f%%  Free: %d  Past: %d\n\n",
		r.Stats.WithCoordinatesPct, r.Stats.WithImagesPct, r.Stats.FreeEvents, r.Stats.PastEvents)

	if r.Passed() {
		fmt.Fprintln(w, "Verdict: PASS")
	} else {
		fmt.Fprintf(w, "Verdict: FAIL (%d gating findings)\n", r.GatingCount())
	}
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "  "
		}
		out += fmt.Sprintf("%s=%d", k, counts[k])
	}
	return out
}
