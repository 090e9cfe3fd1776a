package model

import (
	"time"
)

// Coordinate is a WGS84 position in the map engine's (lat, lng) convention.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Venue represents a building complex shown on the map.
type Venue struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Anchor Coordinate `json:"anchor"`

	DefaultFloor string   `json:"default_floor"`
	Floors       []string `json:"floors"`
}

// Location represents a room, area or point of interest inside a venue.
type Location struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id"` // Room number from the customer's own system
	VenueID    string     `json:"venue_id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"` // Solution location type, e.g. "MeetingRoom"
	Floor      string     `json:"floor"`
	Anchor     Coordinate `json:"anchor"`

	Aliases    []string `json:"aliases,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// LocationType is a location category defined by the solution.
type LocationType struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Solution is the top-level customer dataset: its venues and location types.
type Solution struct {
	Name  string         `json:"name"`
	Types []LocationType `json:"types"`
}

// ReturnToTarget is the venue or location a "back" action navigates to.
type ReturnToTarget struct {
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
	IsVenue    bool       `json:"is_venue"`
}

// TrackEvent is a single analytics event.
type TrackEvent struct {
	Category       string    `json:"category"`
	Action         string    `json:"action"`
	Label          string    `json:"label"`
	NonInteraction bool      `json:"non_interaction"`
	Timestamp      time.Time `json:"timestamp"`
}
