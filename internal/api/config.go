package api

import (
	"net/http"
	"time"

	"venuemap/pkg/config"
	"venuemap/pkg/display"
	"venuemap/pkg/model"
)

// ConfigHandler publishes the viewer settings the browser needs before it opens a map view.
type ConfigHandler struct {
	appCfg   *config.Config
	solution model.Solution
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg *config.Config, solution model.Solution) *ConfigHandler {
	return &ConfigHandler{appCfg: cfg, solution: solution}
}

// ThresholdsDTO carries the parsed zoom thresholds. Zero means disabled.
type ThresholdsDTO struct {
	BuildingOutlineVisibleFrom float64 `json:"building_outline_visible_from"`
	FloorSelectorVisibleFrom   float64 `json:"floor_selector_visible_from"`
	Enabled                    bool    `json:"enabled"`
}

// LabelsDTO is the label style applied by the browser at startup.
type LabelsDTO struct {
	Color       string `json:"color"`
	FontFamily  string `json:"font_family"`
	FontSize    string `json:"font_size"`
	FontWeight  int    `json:"font_weight"`
	ShadowBlur  int    `json:"shadow_blur"`
	ShadowColor string `json:"shadow_color"`
}

// OutlineDTO is the building outline style used above the outline threshold.
type OutlineDTO struct {
	StrokeColor   string  `json:"stroke_color"`
	StrokeOpacity float64 `json:"stroke_opacity"`
	StrokeWeight  float64 `json:"stroke_weight"`
	FillOpacity   float64 `json:"fill_opacity"`
}

// PositionDTO holds the geolocation options of the position control.
type PositionDTO struct {
	EnableHighAccuracy bool  `json:"enable_high_accuracy"`
	MaximumAgeMS       int64 `json:"maximum_age_ms"`
	TimeoutMS          int64 `json:"timeout_ms"`
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Title               string         `json:"title"`
	Solution            model.Solution `json:"solution"`
	Thresholds          ThresholdsDTO  `json:"thresholds"`
	PositioningDisabled bool           `json:"positioning_disabled"`
	DisplayAliases      bool           `json:"display_aliases"`
	Outline             OutlineDTO     `json:"outline"`
	Labels              LabelsDTO      `json:"labels"`
	Position            PositionDTO    `json:"position"`
}

// HandleConfig returns the public viewer settings.
// GET /api/config
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.response())
}

func (h *ConfigHandler) response() ConfigResponse {
	app := h.appCfg.App
	t := display.ParseThresholds(app.BuildingOutlineVisibleFrom, app.FloorSelectorVisibleFrom)
	l := h.appCfg.Labels
	o := h.appCfg.Outline
	pos := h.appCfg.Bridge.Position

	return ConfigResponse{
		Title:    app.Title,
		Solution: h.solution,
		Thresholds: ThresholdsDTO{
			BuildingOutlineVisibleFrom: t.BuildingOutlineVisibleFrom,
			FloorSelectorVisibleFrom:   t.FloorSelectorVisibleFrom,
			Enabled:                    t.Enabled(),
		},
		PositioningDisabled: app.PositioningDisabled == "1",
		DisplayAliases:      app.DisplayAliases,
		Outline: OutlineDTO{
			StrokeColor:   o.StrokeColor,
			StrokeOpacity: o.StrokeOpacity,
			StrokeWeight:  o.StrokeWeight,
			FillOpacity:   o.FillOpacity,
		},
		Labels: LabelsDTO{
			Color:       l.Color,
			FontFamily:  l.FontFamily,
			FontSize:    l.FontSize,
			FontWeight:  l.FontWeight,
			ShadowBlur:  l.ShadowBlur,
			ShadowColor: l.ShadowColor,
		},
		Position: PositionDTO{
			EnableHighAccuracy: pos.EnableHighAccuracy,
			MaximumAgeMS:       time.Duration(pos.MaximumAge).Milliseconds(),
			TimeoutMS:          time.Duration(pos.Timeout).Milliseconds(),
		},
	}
}
