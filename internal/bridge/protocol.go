package bridge

import (
	"encoding/json"

	"venuemap/pkg/display"
	"venuemap/pkg/engine"
	"venuemap/pkg/model"
)

// Outbound command names.
const (
	CmdOutline         = "outline"
	CmdDisplayRule     = "display_rule"
	CmdControlsPush    = "controls.push"
	CmdControlsClear   = "controls.clear"
	CmdFilter          = "filter"
	CmdFloorSet        = "floor.set"
	CmdFloorSelector   = "floor_selector.create"
	CmdPositionControl = "position_control.create"
	CmdListen          = "listen"
	CmdUnlisten        = "unlisten"
	CmdTitle           = "title"
	CmdReturnTo        = "return_to"
	CmdState           = "state"
	CmdResult          = "result"
)

// Inbound event names.
const (
	EventReady            = "ready"
	EventZoomChanged      = "zoom_changed"
	EventFloorChanged     = "floor_changed"
	EventGesture          = "gesture"
	EventViewport         = "viewport"
	EventPositionError    = "position_error"
	EventPositionReceived = "position_received"
	EventOp               = "op"
)

// Command is a frame sent to the browser.
type Command struct {
	Cmd string `json:"cmd"`

	Element  string                 `json:"element,omitempty"`
	Position engine.ControlPosition `json:"position,omitempty"`

	Outline *engine.OutlineOptions `json:"outline,omitempty"`

	Names []string            `json:"names,omitempty"`
	Rule  *engine.DisplayRule `json:"rule,omitempty"`

	// IDs is always set on filter commands: null lifts the filter, [] hides everything.
	IDs     *[]string `json:"ids,omitempty"`
	FitView bool      `json:"fit_view,omitempty"`

	Floor           string                  `json:"floor,omitempty"`
	PositionOptions *engine.PositionOptions `json:"position_options,omitempty"`
	Event           string                  `json:"event,omitempty"`

	Title    string                `json:"title,omitempty"`
	ReturnTo *model.ReturnToTarget `json:"return_to,omitempty"`
	State    *display.State        `json:"state,omitempty"`

	Seq    int64  `json:"seq,omitempty"`
	Op     string `json:"op,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Event is a frame received from the browser.
type Event struct {
	Event string `json:"event"`

	Zoom   float64 `json:"zoom,omitempty"`
	Floor  string  `json:"floor,omitempty"`
	Type   string  `json:"type,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`

	// Ready only.
	VenueID string `json:"venue_id,omitempty"`

	Element       string                `json:"element,omitempty"`
	Position      *engine.Position      `json:"position,omitempty"`
	PositionError *engine.PositionError `json:"position_error,omitempty"`

	Seq  int64           `json:"seq,omitempty"`
	Op   string          `json:"op,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}
