package models

import (
	"time"

	"github.com/google/uuid"
)

// Scope describes the audience reach of an event.
type Scope string

const (
	ScopeLocal    Scope = "local"
	ScopeRegional Scope = "regional"
	ScopeNational Scope = "national"
)

// ValidScope reports whether s is one of the known scope values.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeLocal, ScopeRegional, ScopeNational:
		return true
	}
	return false
}

// EventStatus is the moderation state of a catalog event.
type EventStatus string

const (
	StatusPending  EventStatus = "pending"
	StatusApproved EventStatus = "approved"
	StatusRejected EventStatus = "rejected"
	StatusExpired  EventStatus = "expired"
)

// Regions is the fixed set of US regions an event may be assigned to.
var Regions = []string{
	"northeast",
	"southeast",
	"midwest",
	"southwest",
	"west",
	"northwest",
}

// ValidRegion reports whether r is a member of the fixed region enum.
func ValidRegion(r string) bool {
	for _, known := range Regions {
		if r == known {
			return true
		}
	}
	return false
}

// Event is the canonical, persisted unit of the catalog.
type Event struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	EventTypeID *int64      `json:"eventTypeId,omitempty"`
	Scope       Scope       `json:"scope"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     *time.Time  `json:"endDate,omitempty"`
	City        string      `json:"city"`
	State       *string     `json:"state,omitempty"`
	Region      *string     `json:"region,omitempty"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	SourceURL   string      `json:"sourceUrl"`
	Status      EventStatus `json:"status"`
	IsFree      bool        `json:"isFree"`
	CostText    *string     `json:"costText,omitempty"`
	ImageURL    *string     `json:"imageUrl,omitempty"`

	IngestionJobID *uuid.UUID `json:"ingestionJobId,omitempty"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (e *Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// EventCarAffinity links an event to a car identity from the reference table.
type EventCarAffinity struct {
	ID      int64   `json:"id"`
	EventID int64   `json:"eventId"`
	CarID   *int64  `json:"carId,omitempty"`
	Brand   *string `json:"brand,omitempty"`
}
