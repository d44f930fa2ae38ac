// Package canonical turns raw source candidates into the canonical candidate
// shape and computes the dedup fingerprint. Everything here is a pure
// transform: no datastore, no clock, no logging.
package canonical

import (
	"strings"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// Canonicalize validates and normalizes one raw candidate. A candidate
// missing any required field is rejected with the field and reason; it is
// never coerced. On success the returned candidate carries its fingerprint.
func Canonicalize(raw models.RawCandidate, sourceKey string) (*models.CanonicalCandidate, *models.Rejection) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, reject(raw, "name", "required field is empty")
	}

	sourceURL := strings.TrimSpace(raw.SourceURL)
	if sourceURL == "" {
		return nil, reject(raw, "source_url", "required field is empty")
	}

	city := strings.TrimSpace(raw.City)
	if city == "" {
		return nil, reject(raw, "city", "required field is empty")
	}

	scope := models.Scope(strings.ToLower(strings.TrimSpace(raw.Scope)))
	if !models.ValidScope(scope) {
		if scope == "" {
			return nil, reject(raw, "scope", "required field is empty")
		}
		return nil, reject(raw, "scope", "unknown scope value: "+string(scope))
	}

	startDate, err := models.ParseFlexibleDate(raw.StartDate)
	if err != nil {
		return nil, reject(raw, "start_date", err.Error())
	}

	cand := &models.CanonicalCandidate{
		Name:      name,
		Scope:     scope,
		StartDate: startDate,
		City:      city,
		SourceURL: sourceURL,
		SourceKey: sourceKey,
	}

	if desc := strings.TrimSpace(raw.Description); desc != "" {
		cand.Description = &desc
	}
	if et := strings.TrimSpace(raw.EventType); et != "" {
		cand.EventType = &et
	}
	if end := strings.TrimSpace(raw.EndDate); end != "" {
		endDate, err := models.ParseFlexibleDate(end)
		if err != nil {
			return nil, reject(raw, "end_date", err.Error())
		}
		if endDate.Before(startDate) {
			return nil, reject(raw, "end_date", "end date precedes start date")
		}
		cand.EndDate = &endDate
	}
	if state := strings.ToUpper(strings.TrimSpace(raw.State)); state != "" {
		cand.State = &state
	}
	if region := strings.ToLower(strings.TrimSpace(raw.Region)); region != "" {
		cand.Region = &region
	}
	if raw.Latitude != nil && raw.Longitude != nil {
		lat, lng := *raw.Latitude, *raw.Longitude
		cand.Latitude = &lat
		cand.Longitude = &lng
	}
	if raw.IsFree != nil {
		cand.IsFree = *raw.IsFree
	}
	if cost := strings.TrimSpace(raw.CostText); cost != "" {
		cand.CostText = &cost
	}
	if img := strings.TrimSpace(raw.ImageURL); img != "" {
		cand.ImageURL = &img
	}

	state := ""
	if cand.State != nil {
		state = *cand.State
	}
	cand.Fingerprint = Fingerprint(cand.Name, cand.StartDate, cand.City, state)

	return cand, nil
}

func reject(raw models.RawCandidate, field, reason string) *models.Rejection {
	return &models.Rejection{
		SourceURL: strings.TrimSpace(raw.SourceURL),
		Field:     field,
		Reason:    reason,
	}
}
