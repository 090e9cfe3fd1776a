// Package filter restricts which locations the map renders.
package filter

import (
	"log/slog"

	"venuemap/pkg/model"
)

// Engine is the map primitive the gateway forwards to.
// A nil ids slice lifts the restriction; an empty one hides every location.
type Engine interface {
	Filter(ids []string, fitView bool)
}

// Gateway forwards location filters to the map engine without dirty-checking.
type Gateway struct {
	engine Engine
	logger *slog.Logger
}

// NewGateway creates a gateway for engine.
func NewGateway(engine Engine) *Gateway {
	return &Gateway{engine: engine, logger: slog.With("component", "filter")}
}

// SetFilter shows only locations, optionally fitting the camera to them.
func (g *Gateway) SetFilter(locations []model.Location, fitView bool) {
	ids := make([]string, 0, len(locations))
	for i := range locations {
		ids = append(ids, locations[i].ID)
	}
	g.logger.Debug("Setting location filter", "count", len(ids), "fit_view", fitView)
	g.engine.Filter(ids, fitView)
}

// ClearFilter makes every location visible again.
func (g *Gateway) ClearFilter(fitView bool) {
	g.logger.Debug("Clearing location filter", "fit_view", fitView)
	g.engine.Filter(nil, fitView)
}
