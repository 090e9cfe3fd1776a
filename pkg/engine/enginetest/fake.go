// Package enginetest provides in-memory engine fakes that record every command.
package enginetest

import (
	"fmt"

	"venuemap/pkg/engine"
)

// FilterCall records one Map.Filter invocation.
type FilterCall struct {
	IDs     []string
	FitView bool
}

// RuleCall records one Map.SetDisplayRule invocation.
type RuleCall struct {
	Names []string
	Rule  engine.DisplayRule
}

// Map is a fake map engine.
type Map struct {
	ZoomLevel float64
	Outline   []engine.OutlineOptions
	Filters   []FilterCall
	Rules     []RuleCall
	Slots     map[engine.ControlPosition][]engine.Element

	// CreateErr, when set, fails every CreateElement call.
	CreateErr error

	zoom    engine.Listeners[struct{}]
	created int
}

// NewMap creates a fake map at zoom level z.
func NewMap(z float64) *Map {
	return &Map{ZoomLevel: z, Slots: make(map[engine.ControlPosition][]engine.Element)}
}

func (m *Map) OnZoomChanged(fn func()) engine.Remove {
	return m.zoom.Add(func(struct{}) { fn() })
}

func (m *Map) Zoom() float64 { return m.ZoomLevel }

func (m *Map) SetBuildingOutlineOptions(opts engine.OutlineOptions) {
	m.Outline = append(m.Outline, opts)
}

func (m *Map) Controls(pos engine.ControlPosition) engine.ControlSlot {
	return &slot{m: m, pos: pos}
}

func (m *Map) Filter(ids []string, fitView bool) {
	m.Filters = append(m.Filters, FilterCall{IDs: ids, FitView: fitView})
}

func (m *Map) SetDisplayRule(names []string, rule engine.DisplayRule) {
	m.Rules = append(m.Rules, RuleCall{Names: names, Rule: rule})
}

func (m *Map) CreateElement() (engine.Element, error) {
	if m.CreateErr != nil {
		return engine.Element{}, m.CreateErr
	}
	m.created++
	return engine.Element{ID: fmt.Sprintf("el-%d", m.created)}, nil
}

// SetZoom moves the camera and emits zoom_changed.
func (m *Map) SetZoom(z float64) {
	m.ZoomLevel = z
	m.zoom.Fire(struct{}{})
}

// ZoomListeners reports how many zoom listeners are registered.
func (m *Map) ZoomListeners() int { return m.zoom.Len() }

// LastOutline returns the most recent outline options and whether any were set.
func (m *Map) LastOutline() (engine.OutlineOptions, bool) {
	if len(m.Outline) == 0 {
		return engine.OutlineOptions{}, false
	}
	return m.Outline[len(m.Outline)-1], true
}

// ControlCount returns the number of elements attached across all slots.
func (m *Map) ControlCount() int {
	n := 0
	for _, els := range m.Slots {
		n += len(els)
	}
	return n
}

type slot struct {
	m   *Map
	pos engine.ControlPosition
}

func (s *slot) Push(el engine.Element) {
	s.m.Slots[s.pos] = append(s.m.Slots[s.pos], el)
}

func (s *slot) Clear() {
	delete(s.m.Slots, s.pos)
}

// PositionControl records one NewPositionControl call.
type PositionControl struct {
	Element  engine.Element
	Options  engine.PositionOptions
	Listener engine.PositionListener
}

// Indoor is a fake indoor-data SDK.
type Indoor struct {
	Current          string
	SetFloorCalls    []string
	Selectors        []engine.Element
	PositionControls []PositionControl

	// SelectorErr, when set, fails every NewFloorSelector call.
	SelectorErr error

	floor engine.Listeners[struct{}]
}

// NewIndoor creates a fake SDK showing floor.
func NewIndoor(floor string) *Indoor {
	return &Indoor{Current: floor}
}

func (i *Indoor) NewFloorSelector(el engine.Element) error {
	if i.SelectorErr != nil {
		return i.SelectorErr
	}
	i.Selectors = append(i.Selectors, el)
	return nil
}

func (i *Indoor) NewPositionControl(el engine.Element, opts engine.PositionOptions, l engine.PositionListener) error {
	i.PositionControls = append(i.PositionControls, PositionControl{Element: el, Options: opts, Listener: l})
	return nil
}

func (i *Indoor) OnFloorChanged(fn func()) engine.Remove {
	return i.floor.Add(func(struct{}) { fn() })
}

func (i *Indoor) Floor() string { return i.Current }

// SetFloor records the command and, like the real SDK, emits floor_changed.
func (i *Indoor) SetFloor(floor string) {
	i.SetFloorCalls = append(i.SetFloorCalls, floor)
	i.Current = floor
	i.floor.Fire(struct{}{})
}

// FloorListeners reports how many floor listeners are registered.
func (i *Indoor) FloorListeners() int { return i.floor.Len() }

// Viewport is a fake DOM container.
type Viewport struct {
	listeners map[string]*engine.Listeners[struct{}]
}

// NewViewport creates an empty fake viewport.
func NewViewport() *Viewport {
	return &Viewport{listeners: make(map[string]*engine.Listeners[struct{}])}
}

func (v *Viewport) AddEventListener(event string, fn func()) engine.Remove {
	l, ok := v.listeners[event]
	if !ok {
		l = &engine.Listeners[struct{}]{}
		v.listeners[event] = l
	}
	return l.Add(func(struct{}) { fn() })
}

// Emit dispatches a DOM event.
func (v *Viewport) Emit(event string) {
	if l, ok := v.listeners[event]; ok {
		l.Fire(struct{}{})
	}
}

// ListenerCount reports the number of listeners across all event types.
func (v *Viewport) ListenerCount() int {
	n := 0
	for _, l := range v.listeners {
		n += l.Len()
	}
	return n
}

// Device is a fake device-classification service.
type Device struct {
	Handset bool
	changes engine.Listeners[bool]
}

func (d *Device) IsHandset() bool { return d.Handset }

func (d *Device) OnChange(fn func(isHandset bool)) func() {
	return d.changes.Add(fn)
}

// Set reclassifies the device and notifies listeners when the class changes.
func (d *Device) Set(handset bool) {
	if d.Handset == handset {
		return
	}
	d.Handset = handset
	d.changes.Fire(handset)
}

// Subscribers reports how many listeners are registered.
func (d *Device) Subscribers() int { return d.changes.Len() }
