package display

import "venuemap/pkg/engine"

// State is the chrome visibility of one map view.
type State struct {
	OutlineVisible        bool                   `json:"outline_visible"`
	FloorSelectorVisible  bool                   `json:"floor_selector_visible"`
	FloorSelectorPosition engine.ControlPosition `json:"floor_selector_position,omitempty"`
}

// Snapshot reads the current state of a policy and its floor selector.
func Snapshot(p *ZoomPolicy, f *FloorSelector) State {
	return State{
		OutlineVisible:        p.OutlineVisible(),
		FloorSelectorVisible:  f.Visible(),
		FloorSelectorPosition: f.Position(),
	}
}
