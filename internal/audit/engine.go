// Package audit implements the read-only quality gate over the persisted
// catalog. Three independent rule sets run over every event and their
// results merge into one severity-classified report; the engine never
// mutates data, it only reports.
package audit

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// epochFloor is the earliest plausible start date for a catalog event.
// Anything older is a data-entry mistake, not history.
var epochFloor = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// futureHorizon caps how far out a listing may plausibly be scheduled.
const futureHorizon = 3 // years

// placeholderCities are values sources emit when they do not know the city.
var placeholderCities = map[string]bool{
	"tbd":     true,
	"tba":     true,
	"n/a":     true,
	"na":      true,
	"test":    true,
	"unknown": true,
	"none":    true,
}

// testNamePattern matches obvious test-data event names.
var testNamePattern = regexp.MustCompile(`(?i)^(test|sample|lorem|asdf|dummy)`)

// bannedHosts never belong in a production source_url.
var bannedHosts = map[string]bool{
	"example.com":     true,
	"www.example.com": true,
	"localhost":       true,
	"127.0.0.1":       true,
}

// US bounding box, Alaska/Hawaii span included.
const (
	minLatitude  = 18.0
	maxLatitude  = 72.0
	minLongitude = -180.0
	maxLongitude = -66.0
)

// caseThreshold is the name length beyond which all-upper or all-lower
// casing is flagged as a formatting hygiene problem.
const caseThreshold = 10

// ReferenceData is the injected read-only lookup the relationship rules
// resolve against. Tests substitute an in-memory fixture.
type ReferenceData struct {
	EventTypes map[int64]string
	Cars       map[int64]string
}

// Engine runs the audit. The clock is injectable for deterministic tests.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine. nowFn may be nil.
func NewEngine(nowFn func() time.Time) *Engine {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{now: nowFn}
}

// Audit runs all three rule sets over the catalog snapshot and merges the
// results into one report. It is idempotent: the same snapshot always
// produces the same findings.
func (e *Engine) Audit(events []models.Event, affinities []models.EventCarAffinity, refs ReferenceData) *Report {
	now := e.now().UTC()
	report := &Report{
		GeneratedAt: now,
		Findings:    []Finding{},
	}

	for i := range events {
		event := &events[i]
		report.Findings = append(report.Findings, checkRequiredFields(event)...)
		report.Findings = append(report.Findings, checkDataQuality(event, now)...)
		report.Findings = append(report.Findings, checkEventTypeRef(event, refs)...)
	}
	report.Findings = append(report.Findings, checkCarRefs(affinities, refs)...)

	report.Stats = computeStats(events, now)
	return report
}

// checkRequiredFields emits one finding per missing required field: an
// event missing three fields produces three findings, not one.
func checkRequiredFields(event *models.Event) []Finding {
	var findings []Finding
	missing := func(field string) {
		findings = append(findings, Finding{
			EventID:  event.ID,
			Table:    "events",
			Field:    field,
			Message:  "required field is missing",
			Severity: SeverityError,
			Category: CategoryRequiredFields,
		})
	}

	if strings.TrimSpace(event.Name) == "" {
		missing("name")
	}
	if strings.TrimSpace(event.Slug) == "" {
		missing("slug")
	}
	if event.EventTypeID == nil {
		missing("event_type")
	}
	if event.StartDate.IsZero() {
		missing("start_date")
	}
	if strings.TrimSpace(event.City) == "" {
		missing("city")
	}
	if !models.ValidScope(event.Scope) {
		missing("scope")
	}
	if strings.TrimSpace(event.SourceURL) == "" {
		missing("source_url")
	}
	return findings
}

func checkDataQuality(event *models.Event, now time.Time) []Finding {
	var findings []Finding
	add := func(field, message string, severity Severity) {
		findings = append(findings, Finding{
			EventID:  event.ID,
			Table:    "events",
			Field:    field,
			Message:  message,
			Severity: severity,
			Category: CategoryDataQuality,
		})
	}

	if !event.StartDate.IsZero() {
		// start_date is date-granular; an approved event starting today is
		// not stale.
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if event.StartDate.Before(today) && event.Status == models.StatusApproved {
			add("start_date", "approved event has already started (stale approval)", SeverityWarning)
		}
		if event.StartDate.After(now.AddDate(futureHorizon, 0, 0)) {
			add("start_date", fmt.Sprintf("start date more than %d years in the future", futureHorizon), SeverityError)
		}
		if event.StartDate.Before(epochFloor) {
			add("start_date", "start date before epoch floor "+epochFloor.Format("2006-01-02"), SeverityError)
		}
		if event.EndDate != nil && event.EndDate.Before(event.StartDate) {
			add("end_date", "end date earlier than start date", SeverityError)
		}
	}

	if placeholderCities[strings.ToLower(strings.TrimSpace(event.City))] {
		add("city", "placeholder city value: "+event.City, SeverityWarning)
	}
	if event.Region != nil && !models.ValidRegion(*event.Region) {
		add("region", "region not in the fixed enum: "+*event.Region, SeverityError)
	}
	if event.State != nil && len(*event.State) != 2 {
		add("state", "state is not a 2-letter code: "+*event.State, SeverityWarning)
	}

	name := strings.TrimSpace(event.Name)
	if name != "" {
		if testNamePattern.MatchString(name) {
			add("name", "name matches a test-data pattern", SeverityError)
		}
		if len(name) > caseThreshold {
			if name == strings.ToUpper(name) && name != strings.ToLower(name) {
				add("name", "name is entirely upper-case", SeverityWarning)
			} else if name == strings.ToLower(name) && name != strings.ToUpper(name) {
				add("name", "name is entirely lower-case", SeverityWarning)
			}
		}
	}

	if raw := strings.TrimSpace(event.SourceURL); raw != "" {
		parsed, err := url.Parse(raw)
		switch {
		case err != nil, parsed.Scheme == "", parsed.Host == "":
			add("source_url", "source url is not parsable: "+raw, SeverityError)
		case bannedHosts[strings.ToLower(parsed.Hostname())]:
			add("source_url", "source url points at a placeholder host: "+parsed.Hostname(), SeverityError)
		}
	}

	if event.HasCoordinates() {
		lat, lng := *event.Latitude, *event.Longitude
		if lat == 0 && lng == 0 {
			add("coordinates", "coordinates are (0, 0) (null island)", SeverityError)
		} else if lat < minLatitude || lat > maxLatitude || lng < minLongitude || lng > maxLongitude {
			add("coordinates", fmt.Sprintf("coordinates (%.4f, %.4f) outside the plausible bounding box", lat, lng), SeverityWarning)
		}
	}

	if event.IsFree && event.CostText != nil &&
		!strings.Contains(strings.ToLower(*event.CostText), "free") {
		add("cost_text", "event is marked free but cost text does not mention it", SeverityWarning)
	}

	return findings
}

func checkEventTypeRef(event *models.Event, refs ReferenceData) []Finding {
	if event.EventTypeID == nil {
		return nil
	}
	if _, ok := refs.EventTypes[*event.EventTypeID]; ok {
		return nil
	}
	return []Finding{{
		EventID:  event.ID,
		Table:    "events",
		Field:    "event_type_id",
		Message:  fmt.Sprintf("event_type_id %d does not resolve against event_types", *event.EventTypeID),
		Severity: SeverityError,
		Category: CategoryRelationships,
	}}
}

func checkCarRefs(affinities []models.EventCarAffinity, refs ReferenceData) []Finding {
	var findings []Finding
	for _, aff := range affinities {
		if aff.CarID == nil {
			continue
		}
		if _, ok := refs.Cars[*aff.CarID]; ok {
			continue
		}
		findings = append(findings, Finding{
			EventID:  aff.EventID,
			Table:    "event_car_affinities",
			Field:    "car_id",
			Message:  fmt.Sprintf("car_id %d does not resolve against cars", *aff.CarID),
			Severity: SeverityError,
			Category: CategoryRelationships,
		})
	}
	return findings
}

func computeStats(events []models.Event, now time.Time) SummaryStats {
	stats := SummaryStats{
		TotalEvents: len(events),
		ByStatus:    map[string]int{},
		ByRegion:    map[string]int{},
		ByScope:     map[string]int{},
	}

	withCoords, withImages := 0, 0
	for i := range events {
		event := &events[i]
		stats.ByStatus[string(event.Status)]++
		stats.ByScope[string(event.Scope)]++
		if event.Region != nil {
			stats.ByRegion[*event.Region]++
		}
		if event.HasCoordinates() {
			withCoords++
		}
		if event.ImageURL != nil {
			withImages++
		}
		if event.IsFree {
			stats.FreeEvents++
		}
		if !event.StartDate.IsZero() && event.StartDate.Before(now) {
			stats.PastEvents++
		}
	}

	if len(events) > 0 {
		stats.WithCoordinatesPct = 100 * float64(withCoords) / float64(len(events))
		stats.WithImagesPct = 100 * float64(withImages) / float64(len(events))
	}
	return stats
}
