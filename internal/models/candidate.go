package models

import (
	"fmt"
	"strings"
	"time"
)

// RawCandidate is an unvalidated event record as returned by a source
// adapter. All fields are raw strings except coordinates so that bad source
// data survives long enough to be rejected with a reason instead of failing
// JSON decoding.
type RawCandidate struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	EventType   string   `json:"eventType,omitempty"`
	Scope       string   `json:"scope"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate,omitempty"`
	City        string   `json:"city"`
	State       string   `json:"state,omitempty"`
	Region      string   `json:"region,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	SourceURL   string   `json:"sourceUrl"`
	IsFree      *bool    `json:"isFree,omitempty"`
	CostText    string   `json:"costText,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// CanonicalCandidate is a raw candidate after normalization: required fields
// are present, strings are trimmed, dates are parsed, and the dedup
// fingerprint has been computed. It carries no persistence decisions.
type CanonicalCandidate struct {
	Name        string
	Description *string
	EventType   *string
	Scope       Scope
	StartDate   time.Time
	EndDate     *time.Time
	City        string
	State       *string
	Region      *string
	Latitude    *float64
	Longitude   *float64
	SourceURL   string
	IsFree      bool
	CostText    *string
	ImageURL    *string

	// Fingerprint identifies the same real-world event across sources.
	Fingerprint string
	// SourceKey is the registry key of the adapter that discovered it.
	SourceKey string
}

// ConflictKey is the (source_url, start_date) pair that decides
// insert-vs-update at persistence time. StartDate is date-only.
type ConflictKey struct {
	SourceURL string
	StartDate string
}

// ConflictKey returns the candidate's conflict key. StartDate is already
// date-only after canonicalization, so the formatted form is stable.
func (c *CanonicalCandidate) ConflictKey() ConflictKey {
	return ConflictKey{
		SourceURL: c.SourceURL,
		StartDate: c.StartDate.Format("2006-01-02"),
	}
}

// OptionalFieldCount counts the populated optional fields, used by the batch
// deduplicator to prefer the most complete duplicate.
func (c *CanonicalCandidate) OptionalFieldCount() int {
	n := 0
	if c.Description != nil {
		n++
	}
	if c.EventType != nil {
		n++
	}
	if c.EndDate != nil {
		n++
	}
	if c.State != nil {
		n++
	}
	if c.Region != nil {
		n++
	}
	if c.Latitude != nil && c.Longitude != nil {
		n++
	}
	if c.CostText != nil {
		n++
	}
	if c.ImageURL != nil {
		n++
	}
	return n
}

// Rejection records a candidate dropped during canonicalization.
type Rejection struct {
	SourceURL string `json:"sourceUrl"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.Field, r.Reason, r.SourceURL)
}

// dateFormats are tried in order when parsing source-provided dates.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseFlexibleDate parses the date formats seen across source listings and
// truncates the result to a UTC date. Times and zones are deliberately
// discarded: the conflict key and fingerprint are date-granular.
func ParseFlexibleDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date string: %s", v)
}
