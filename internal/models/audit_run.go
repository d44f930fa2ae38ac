package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRun is the persisted provenance record of one quality audit pass:
// the verdict and severity-bucketed counts, not the findings themselves.
// The audit engine stays read-only over the catalog; this row is written by
// the audit command the same way ingestion jobs record their runs.
type AuditRun struct {
	ID                   uuid.UUID `json:"id"`
	RanAt                time.Time `json:"ranAt"`
	Passed               bool      `json:"passed"`
	TotalEvents          int       `json:"totalEvents"`
	RequiredFindings     int       `json:"requiredFindings"`
	ErrorFindings        int       `json:"errorFindings"`
	WarningFindings      int       `json:"warningFindings"`
	RelationshipFindings int       `json:"relationshipFindings"`
}
