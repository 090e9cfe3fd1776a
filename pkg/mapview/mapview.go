// Package mapview wires the display-state components of one hosting map view
// and exposes the operations screens call on it.
package mapview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"venuemap/pkg/config"
	"venuemap/pkg/display"
	"venuemap/pkg/engine"
	"venuemap/pkg/filter"
	"venuemap/pkg/lifecycle"
	"venuemap/pkg/model"
	"venuemap/pkg/navigation"
)

// Floor-change analytics event.
const (
	FloorEventCategory = "Floor selector"
	FloorEventAction   = "Floor was changed"
)

// EventSender forwards analytics events.
type EventSender interface {
	SendEvent(ctx context.Context, category, action, label string, nonInteraction bool)
}

// Settings are read once when the view initializes.
type Settings struct {
	Thresholds          display.Thresholds
	PositioningDisabled bool
	Outline             engine.OutlineOptions
	Position            engine.PositionOptions
	Solution            model.Solution
	DefaultTitle        string
}

// SettingsFromConfig derives view settings from the application config.
func SettingsFromConfig(cfg *config.Config, solution model.Solution) Settings {
	pos := cfg.Bridge.Position
	return Settings{
		Thresholds:          display.ParseThresholds(cfg.App.BuildingOutlineVisibleFrom, cfg.App.FloorSelectorVisibleFrom),
		PositioningDisabled: cfg.App.PositioningDisabled == "1",
		Outline:             display.OutlineStyle(cfg.Outline),
		Position: engine.PositionOptions{
			EnableHighAccuracy: pos.EnableHighAccuracy,
			MaximumAgeMillis:   time.Duration(pos.MaximumAge).Milliseconds(),
			TimeoutMillis:      time.Duration(pos.Timeout).Milliseconds(),
		},
		Solution:     solution,
		DefaultTitle: cfg.App.Title,
	}
}

// Coordinator owns the display state of one map view. All methods except the
// Subscribe calls must be invoked from the view's dispatch goroutine.
type Coordinator struct {
	ctx      context.Context
	m        engine.Map
	indoor   engine.Indoor
	settings Settings
	events   EventSender
	logger   *slog.Logger

	scope    *lifecycle.Scope
	floor    *display.FloorSelector
	zoom     *display.ZoomPolicy
	filter   *filter.Gateway
	returnTo *navigation.ReturnTo
	title    *navigation.Title
}

// New assembles a coordinator. events may be nil. ctx bounds analytics calls.
func New(ctx context.Context, m engine.Map, indoor engine.Indoor, viewport engine.Viewport,
	device display.HandsetSource, events EventSender, s Settings,
) *Coordinator {
	scope := lifecycle.New()
	floor := display.NewFloorSelector(m, indoor, viewport, device, scope)
	c := &Coordinator{
		ctx:      ctx,
		m:        m,
		indoor:   indoor,
		settings: s,
		events:   events,
		logger:   slog.With("component", "mapview"),
		scope:    scope,
		floor:    floor,
		zoom:     display.NewZoomPolicy(m, floor, s.Outline),
		filter:   filter.NewGateway(m),
		returnTo: navigation.NewReturnTo(),
		title:    navigation.NewTitle(s.DefaultTitle),
	}
	floor.OnFloorChanged(c.trackFloorChange)
	return c
}

// Init applies the startup display rules, creates the position control and
// configures zoom-driven chrome. Engine failures abort the view's setup.
func (c *Coordinator) Init() error {
	hidden := false
	c.m.SetDisplayRule([]string{engine.RuleBuilding, engine.RuleVenue}, engine.DisplayRule{Visible: &hidden})

	for _, t := range c.settings.Solution.Types {
		c.m.SetDisplayRule([]string{t.Name}, engine.DisplayRule{Title: "{{name}}"})
	}

	if !c.settings.PositioningDisabled {
		el, err := c.m.CreateElement()
		if err != nil {
			return fmt.Errorf("failed to create position control element: %w", err)
		}
		if err := c.indoor.NewPositionControl(el, c.settings.Position, positionLogger{c.logger}); err != nil {
			return fmt.Errorf("failed to create position control: %w", err)
		}
		c.m.Controls(engine.TopRight).Push(el)
	}

	c.zoom.Configure(c.settings.Thresholds, c.scope)
	c.logger.Debug("Map view initialized",
		"types", len(c.settings.Solution.Types),
		"positioning", !c.settings.PositioningDisabled,
		"zoom_policy", c.settings.Thresholds.Enabled())
	return nil
}

// SetFilter shows only locations.
func (c *Coordinator) SetFilter(locations []model.Location, fitView bool) {
	c.filter.SetFilter(locations, fitView)
}

// ClearFilter shows every location.
func (c *Coordinator) ClearFilter(fitView bool) { c.filter.ClearFilter(fitView) }

// SetFloor switches floors when floor differs from the current one.
func (c *Coordinator) SetFloor(floor string) { c.floor.SetFloor(floor) }

// ShowFloorSelector attaches the floor selector.
func (c *Coordinator) ShowFloorSelector() error { return c.floor.Show() }

// HideFloorSelector detaches the floor selector.
func (c *Coordinator) HideFloorSelector() { c.floor.Hide() }

// ShowFloorSelectorAfterFirstInteraction defers the floor selector until the user touches the map.
func (c *Coordinator) ShowFloorSelectorAfterFirstInteraction() { c.floor.ShowAfterFirstInteraction() }

// PublishLocation sets loc as the return-to target.
func (c *Coordinator) PublishLocation(loc *model.Location, anchor model.Coordinate) {
	c.returnTo.PublishLocation(loc, anchor)
}

// PublishVenue sets v as the return-to target.
func (c *Coordinator) PublishVenue(v *model.Venue) { c.returnTo.PublishVenue(v) }

// SubscribeReturnTo streams future return-to targets. Safe from any goroutine.
func (c *Coordinator) SubscribeReturnTo(ctx context.Context) <-chan model.ReturnToTarget {
	return c.returnTo.Subscribe(ctx)
}

// SetTitle publishes title, or the default title when empty.
func (c *Coordinator) SetTitle(title string) { c.title.SetTitle(title) }

// SubscribeTitle streams the latest title and its updates. Safe from any goroutine.
func (c *Coordinator) SubscribeTitle(ctx context.Context) <-chan string {
	return c.title.Subscribe(ctx)
}

// State reports the current chrome visibility.
func (c *Coordinator) State() display.State {
	return display.Snapshot(c.zoom, c.floor)
}

// Done is closed once the view has been torn down.
func (c *Coordinator) Done() <-chan struct{} { return c.scope.Done() }

// Close releases every subscription of the view exactly once and ends all streams.
func (c *Coordinator) Close() {
	c.scope.Close()
	c.returnTo.Close()
	c.title.Close()
}

func (c *Coordinator) trackFloorChange(floor string) {
	if c.events == nil {
		return
	}
	c.events.SendEvent(c.ctx, FloorEventCategory, FloorEventAction, floor+"th floor was set", true)
}

type positionLogger struct {
	logger *slog.Logger
}

func (p positionLogger) PositionReceived(pos engine.Position) {
	p.logger.Debug("Position received", "lat", pos.Lat, "lng", pos.Lng, "accuracy", pos.Accuracy)
}

func (p positionLogger) PositionError(e engine.PositionError) {
	p.logger.Warn("Position error", "code", e.Code, "message", e.Message)
}
