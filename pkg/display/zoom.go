// Package display keeps the map chrome (building outline, floor selector) in step
// with zoom level and device class.
package display

import (
	"log/slog"

	"venuemap/pkg/config"
	"venuemap/pkg/engine"
	"venuemap/pkg/lifecycle"
	"venuemap/pkg/logging"
)

// Thresholds are the zoom levels from which chrome becomes visible. Zero means disabled.
type Thresholds struct {
	BuildingOutlineVisibleFrom float64
	FloorSelectorVisibleFrom   float64
}

// ParseThresholds reads both thresholds from their configured strings.
func ParseThresholds(outline, floor string) Thresholds {
	o, _ := config.ParseThreshold(outline)
	f, _ := config.ParseThreshold(floor)
	return Thresholds{BuildingOutlineVisibleFrom: o, FloorSelectorVisibleFrom: f}
}

// Enabled reports whether zoom-driven visibility applies. Both thresholds must be set.
func (t Thresholds) Enabled() bool {
	return t.BuildingOutlineVisibleFrom > 0 && t.FloorSelectorVisibleFrom > 0
}

// OutlineStyle converts the configured outline into engine options.
func OutlineStyle(c config.OutlineConfig) engine.OutlineOptions {
	return engine.OutlineOptions{
		Visible:       true,
		Clickable:     false,
		FillOpacity:   c.FillOpacity,
		StrokeColor:   c.StrokeColor,
		StrokeOpacity: c.StrokeOpacity,
		StrokeWeight:  c.StrokeWeight,
	}
}

// FloorToggle is the part of the floor selector driven by zoom.
type FloorToggle interface {
	Show() error
	Hide()
}

// ZoomPolicy toggles the outline and the floor selector as the zoom crosses the thresholds.
type ZoomPolicy struct {
	m      engine.Map
	floor  FloorToggle
	style  engine.OutlineOptions
	logger *slog.Logger

	thresholds     Thresholds
	outlineVisible bool
}

// NewZoomPolicy creates a policy that styles the visible outline with style.
func NewZoomPolicy(m engine.Map, floor FloorToggle, style engine.OutlineOptions) *ZoomPolicy {
	style.Visible = true
	return &ZoomPolicy{
		m:      m,
		floor:  floor,
		style:  style,
		logger: slog.With("component", "zoom_policy"),
	}
}

// Configure subscribes to zoom changes when both thresholds are set.
// Otherwise the outline is shown once and stays visible, and the floor selector
// is left to explicit calls.
func (p *ZoomPolicy) Configure(t Thresholds, scope *lifecycle.Scope) {
	p.thresholds = t
	if !t.Enabled() {
		p.showOutline()
		return
	}
	scope.Acquire(p.m.OnZoomChanged(p.zoomChanged))
}

// OutlineVisible reports the last outline visibility applied by the policy.
func (p *ZoomPolicy) OutlineVisible() bool { return p.outlineVisible }

// Thresholds returns the configured thresholds.
func (p *ZoomPolicy) Thresholds() Thresholds { return p.thresholds }

func (p *ZoomPolicy) zoomChanged() {
	z := p.m.Zoom()
	logging.Trace(p.logger, "Zoom changed", "zoom", z)

	if z >= p.thresholds.BuildingOutlineVisibleFrom {
		p.showOutline()
	} else {
		p.m.SetBuildingOutlineOptions(engine.OutlineOptions{Visible: false})
		p.outlineVisible = false
	}

	if z >= p.thresholds.FloorSelectorVisibleFrom {
		if err := p.floor.Show(); err != nil {
			p.logger.Error("Failed to show floor selector", "zoom", z, "error", err)
		}
	} else {
		p.floor.Hide()
	}
}

func (p *ZoomPolicy) showOutline() {
	p.m.SetBuildingOutlineOptions(p.style)
	p.outlineVisible = true
}
