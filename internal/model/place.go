package model

import (
	"time"

	"github.com/tmardones/campusred/internal/geo"
)

type PlaceCategory string

const (
	CategoryCafeteria PlaceCategory = "cafeteria"
	CategoryLibrary   PlaceCategory = "library"
	CategoryStudyRoom PlaceCategory = "study-room"
	CategoryRestroom  PlaceCategory = "restroom"
)

type Place struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    PlaceCategory  `json:"category"`
	Tags        []string       `json:"tags"`
	Coord       geo.Coordinate `json:"coord"`
	Rating      float64        `json:"rating"`
	Reviews     []Review       `json:"reviews"`
	Alerts      []Alert        `json:"alerts,omitempty"`
	Description string         `json:"description"`
	Hours       string         `json:"hours"`
}

type Review struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Stars     int       `json:"stars"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertTTL is how long a posted alert stays active.
const AlertTTL = 6 * time.Hour

type AlertCategory string

const (
	AlertFull        AlertCategory = "full"
	AlertMaintenance AlertCategory = "maintenance"
	AlertClosed      AlertCategory = "closed"
)

type Alert struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Category  AlertCategory `json:"category"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Active reports whether the alert has not yet expired at the given time.
// Expired alerts stay in the stored list; consumers filter at read time.
func (a Alert) Active(now time.Time) bool {
	return a.ExpiresAt.After(now)
}
