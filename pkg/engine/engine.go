// Package engine describes the browser-side collaborators the map coordinator drives:
// the map rendering engine, the indoor-data SDK and the map viewport's DOM events.
package engine

import "errors"

var (
	// ErrMapNotReady is returned when the map instance has not been initialized yet.
	ErrMapNotReady = errors.New("map instance not initialized")
	// ErrNoContainer is returned when a control cannot be bound to a DOM container.
	ErrNoContainer = errors.New("missing DOM container")
)

// ControlPosition names one of the map engine's control slots.
type ControlPosition string

const (
	TopRight    ControlPosition = "TOP_RIGHT"
	LeftCenter  ControlPosition = "LEFT_CENTER"
	RightCenter ControlPosition = "RIGHT_CENTER"
)

// Display rule targets that are hidden when the viewer starts.
const (
	RuleBuilding = "MI_BUILDING"
	RuleVenue    = "MI_VENUE"
)

// Element is a handle to a DOM element created to host a map control.
type Element struct {
	ID string `json:"id"`
}

// Remove unregisters a listener. Calling it more than once is harmless.
type Remove func()

// OutlineOptions styles the building outline.
type OutlineOptions struct {
	Visible       bool    `json:"visible"`
	Clickable     bool    `json:"clickable"`
	FillOpacity   float64 `json:"fillOpacity"`
	StrokeColor   string  `json:"strokeColor,omitempty"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	StrokeWeight  float64 `json:"strokeWeight"`
}

// DisplayRule is a styling or visibility directive for a category of map feature.
type DisplayRule struct {
	Visible *bool  `json:"visible,omitempty"`
	Title   string `json:"title,omitempty"`
}

// ControlSlot is an append-only list of elements at one control position.
// It only shrinks through Clear.
type ControlSlot interface {
	Push(el Element)
	Clear()
}

// Map is the map rendering engine.
type Map interface {
	OnZoomChanged(fn func()) Remove
	Zoom() float64
	SetBuildingOutlineOptions(opts OutlineOptions)
	Controls(pos ControlPosition) ControlSlot
	// Filter restricts rendered locations to ids. A nil slice lifts the restriction;
	// an empty non-nil slice hides every location.
	Filter(ids []string, fitView bool)
	SetDisplayRule(names []string, rule DisplayRule)
	CreateElement() (Element, error)
}

// PositionOptions configures the browser geolocation request of the position control.
type PositionOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	MaximumAgeMillis   int64 `json:"maximumAge"`
	TimeoutMillis      int64 `json:"timeout"`
}

// Position is a fix reported by the position control.
type Position struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// PositionError is a geolocation failure reported by the position control.
type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PositionListener receives the position control's events.
type PositionListener interface {
	PositionReceived(p Position)
	PositionError(e PositionError)
}

// Indoor is the indoor-data SDK bound to one map instance.
type Indoor interface {
	// NewFloorSelector builds a floor-selector widget inside el.
	NewFloorSelector(el Element) error
	NewPositionControl(el Element, opts PositionOptions, l PositionListener) error
	OnFloorChanged(fn func()) Remove
	Floor() string
	SetFloor(floor string)
}

// Viewport exposes DOM events of the map's container element.
type Viewport interface {
	AddEventListener(event string, fn func()) Remove
}
