package display

import (
	"fmt"
	"log/slog"

	"venuemap/pkg/engine"
	"venuemap/pkg/lifecycle"
)

// GestureEvents are the viewport events taken as the user's first interaction with the map.
var GestureEvents = []string{"touchmove", "click", "wheel"}

// HandsetSource reports the current device class and its changes.
type HandsetSource interface {
	IsHandset() bool
	OnChange(fn func(isHandset bool)) func()
}

// PositionFor returns the control slot used for the floor selector on a device class.
func PositionFor(isHandset bool) engine.ControlPosition {
	if isHandset {
		return engine.LeftCenter
	}
	return engine.RightCenter
}

// FloorSelector owns the floor-selector control of one map view.
// It is driven from the view's single dispatch goroutine and is not safe for concurrent use.
type FloorSelector struct {
	m        engine.Map
	indoor   engine.Indoor
	viewport engine.Viewport
	device   HandsetSource
	scope    *lifecycle.Scope
	logger   *slog.Logger

	onFloorChanged func(floor string)

	visible  bool
	position engine.ControlPosition
	element  engine.Element

	releaseFloor  func()
	releaseDevice func()

	gestureArmed   bool
	releaseGesture func()
}

// NewFloorSelector creates a hidden floor selector. Subscriptions it takes are owned by scope.
func NewFloorSelector(m engine.Map, indoor engine.Indoor, viewport engine.Viewport, device HandsetSource, scope *lifecycle.Scope) *FloorSelector {
	return &FloorSelector{
		m:        m,
		indoor:   indoor,
		viewport: viewport,
		device:   device,
		scope:    scope,
		logger:   slog.With("component", "floor_selector"),
	}
}

// OnFloorChanged sets the callback invoked with the new floor while the selector is visible.
func (f *FloorSelector) OnFloorChanged(fn func(floor string)) {
	f.onFloorChanged = fn
}

// Visible reports whether the control is attached.
func (f *FloorSelector) Visible() bool { return f.visible }

// Position returns the slot holding the control; empty while hidden.
func (f *FloorSelector) Position() engine.ControlPosition {
	if !f.visible {
		return ""
	}
	return f.position
}

// Show builds the control and attaches it to the slot for the current device class.
// It is a no-op while the control is already visible, so repeated calls never stack controls.
func (f *FloorSelector) Show() error {
	if f.visible {
		return nil
	}

	el, err := f.m.CreateElement()
	if err != nil {
		return fmt.Errorf("failed to create floor selector element: %w", err)
	}
	if err := f.indoor.NewFloorSelector(el); err != nil {
		return fmt.Errorf("failed to create floor selector: %w", err)
	}

	f.element = el
	f.position = PositionFor(f.device.IsHandset())
	f.m.Controls(f.position).Push(el)
	f.visible = true

	f.releaseFloor = f.scope.Acquire(f.indoor.OnFloorChanged(f.floorChanged))
	f.releaseDevice = f.scope.Acquire(f.device.OnChange(f.deviceChanged))

	f.logger.Debug("Floor selector shown", "position", f.position, "element", el.ID)
	return nil
}

// Hide detaches the control and drops its listeners. It is a no-op while hidden.
func (f *FloorSelector) Hide() {
	if !f.visible {
		return
	}

	f.m.Controls(f.position).Clear()
	f.visible = false
	f.element = engine.Element{}

	f.releaseFloor()
	f.releaseDevice()
	f.releaseFloor, f.releaseDevice = nil, nil

	f.logger.Debug("Floor selector hidden")
}

// ShowAfterFirstInteraction defers Show until the first gesture on the map viewport.
// The first gesture of any kind removes every gesture listener; later ones do nothing.
func (f *FloorSelector) ShowAfterFirstInteraction() {
	if f.gestureArmed {
		return
	}
	f.gestureArmed = true

	removes := make([]engine.Remove, 0, len(GestureEvents))
	disarm := func() {
		for _, remove := range removes {
			remove()
		}
		f.gestureArmed = false
	}
	f.releaseGesture = f.scope.Acquire(disarm)

	interacted := func() {
		if !f.gestureArmed {
			return
		}
		f.releaseGesture()
		if f.visible {
			return
		}
		if err := f.Show(); err != nil {
			f.logger.Error("Failed to show floor selector after interaction", "error", err)
		}
	}

	for _, event := range GestureEvents {
		removes = append(removes, f.viewport.AddEventListener(event, interacted))
	}
}

// SetFloor switches floors only when floor differs from the current one,
// which also keeps the floor-changed listener from firing spuriously.
func (f *FloorSelector) SetFloor(floor string) {
	if floor == "" || f.indoor.Floor() == floor {
		return
	}
	f.indoor.SetFloor(floor)
}

func (f *FloorSelector) floorChanged() {
	if f.onFloorChanged != nil {
		f.onFloorChanged(f.indoor.Floor())
	}
}

func (f *FloorSelector) deviceChanged(isHandset bool) {
	if !f.visible {
		return
	}
	next := PositionFor(isHandset)
	if next == f.position {
		return
	}

	f.m.Controls(f.position).Clear()
	f.position = next
	f.m.Controls(f.position).Push(f.element)
	f.logger.Debug("Floor selector moved", "position", next)
}
