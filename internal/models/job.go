package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the ingestion job state machine. A job row is created already
// running and transitions to exactly one terminal state.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobPayload is the frozen snapshot of a run's parameters, stored as JSONB
// on the job row.
type JobPayload struct {
	Location   string `json:"location,omitempty"`
	RangeStart string `json:"rangeStart,omitempty"`
	RangeEnd   string `json:"rangeEnd,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	DryRun     bool   `json:"dryRun"`
}

// RunCounters accumulates per-stage candidate counts for one job.
type RunCounters struct {
	Discovered int `json:"discovered"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

// IngestionJob is the traceable run record every written row is attributed to.
type IngestionJob struct {
	ID                uuid.UUID   `json:"id"`
	SourceKey         string      `json:"sourceKey"`
	Status            JobStatus   `json:"status"`
	StartedAt         time.Time   `json:"startedAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
	Payload           JobPayload  `json:"payload"`
	SourcesAttempted  int         `json:"sourcesAttempted"`
	SourcesSucceeded  int         `json:"sourcesSucceeded"`
	SourcesFailed     int         `json:"sourcesFailed"`
	ErrorMessage      *string     `json:"errorMessage,omitempty"`
	Counters          RunCounters `json:"counters"`
}
