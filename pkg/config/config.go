package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	App     AppSettings   `yaml:"app"`
	Outline OutlineConfig `yaml:"outline"`
	Labels  LabelConfig   `yaml:"labels"`
	Venues  VenuesConfig  `yaml:"venues"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// AppSettings mirrors the settings the viewer publishes to the browser.
// Thresholds are kept as strings: a value that does not parse to a positive
// number disables the feature rather than failing the load.
type AppSettings struct {
	Title                      string `yaml:"title"`
	BuildingOutlineVisibleFrom string `yaml:"building_outline_visible_from"`
	FloorSelectorVisibleFrom   string `yaml:"floor_selector_visible_from"`
	PositioningDisabled        string `yaml:"positioning_disabled"` // "1" disables the position control
	DisplayAliases             bool   `yaml:"display_aliases"`
	SolutionName               string `yaml:"solution_name"`
}

// OutlineConfig holds the building outline style used above the outline threshold.
type OutlineConfig struct {
	StrokeColor   string  `yaml:"stroke_color"`
	StrokeOpacity float64 `yaml:"stroke_opacity"`
	StrokeWeight  float64 `yaml:"stroke_weight"`
	FillOpacity   float64 `yaml:"fill_opacity"`
}

// LabelConfig holds the label style handed to the indoor SDK at startup.
type LabelConfig struct {
	Color       string `yaml:"color"`
	FontFamily  string `yaml:"font_family"`
	FontSize    string `yaml:"font_size"`
	FontWeight  int    `yaml:"font_weight"`
	ShadowBlur  int    `yaml:"shadow_blur"`
	ShadowColor string `yaml:"shadow_color"`
}

// VenuesConfig points at the venue catalog.
type VenuesConfig struct {
	Path        string `yaml:"path"`
	AnchorOrder string `yaml:"anchor_order"` // "lnglat" (GeoJSON) or "latlng" (legacy)
}

// PositionConfig holds the browser geolocation options of the position control.
type PositionConfig struct {
	EnableHighAccuracy bool     `yaml:"enable_high_accuracy"`
	MaximumAge         Duration `yaml:"maximum_age"`
	Timeout            Duration `yaml:"timeout"`
}

// BridgeConfig holds settings for the browser map bridge.
type BridgeConfig struct {
	WriteTimeout Duration       `yaml:"write_timeout"`
	PongTimeout  Duration       `yaml:"pong_timeout"`
	Position     PositionConfig `yaml:"position"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"` // DEBUG also records non-interaction events
	Trace    bool        `yaml:"trace"`  // Per-event bridge and zoom diagnostics at DEBUG
}

// DBConfig holds database settings.
type DBConfig struct {
	Path           string   `yaml:"path"`
	EventRetention Duration `yaml:"event_retention"` // Analytics events older than this are pruned at startup
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	StaticDir    string   `yaml:"static_dir"` // Built browser client; empty serves the API only
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "DEBUG",
			},
		},
		DB: DBConfig{
			Path:           "./data/venuemap.db",
			EventRetention: Duration(30 * 24 * time.Hour),
		},
		Server: ServerConfig{
			Address:      "localhost:8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
			StaticDir:    "./web/dist",
		},
		App: AppSettings{
			Title:                      "Indoor Map",
			BuildingOutlineVisibleFrom: "",
			FloorSelectorVisibleFrom:   "",
			PositioningDisabled:        "0",
			SolutionName:               "demo",
		},
		Outline: OutlineConfig{
			StrokeColor:   "#EF6CCE",
			StrokeOpacity: 1,
			StrokeWeight:  4,
			FillOpacity:   0,
		},
		Labels: LabelConfig{
			Color:       "rgba(82,82,82,1)",
			FontFamily:  "Open Sans",
			FontSize:    "12px",
			FontWeight:  300,
			ShadowBlur:  3,
			ShadowColor: "white",
		},
		Venues: VenuesConfig{
			Path:        "./data/venues.geojson",
			AnchorOrder: AnchorLngLat,
		},
		Bridge: BridgeConfig{
			WriteTimeout: Duration(10 * time.Second),
			PongTimeout:  Duration(60 * time.Second),
			Position: PositionConfig{
				EnableHighAccuracy: false,
				MaximumAge:         Duration(300 * time.Second),
				Timeout:            Duration(10 * time.Second),
			},
		},
	}
}

// Anchor coordinate orders accepted in venues.anchor_order.
const (
	AnchorLngLat = "lnglat"
	AnchorLatLng = "latlng"
)

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment overrides (VENUEMAP_*) are applied after the file and are never saved back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if cfg.Venues.AnchorOrder != AnchorLngLat && cfg.Venues.AnchorOrder != AnchorLatLng {
		return nil, fmt.Errorf("invalid anchor_order %q: must be %q or %q", cfg.Venues.AnchorOrder, AnchorLngLat, AnchorLatLng)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("VENUEMAP_SERVER_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
	if title := os.Getenv("VENUEMAP_TITLE"); title != "" {
		cfg.App.Title = title
	}
	if p := os.Getenv("VENUEMAP_VENUES_PATH"); p != "" {
		cfg.Venues.Path = p
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# venuemap configuration
# ---------------------
# Durations accept ns, us, ms, s, m, h, d (day), w (week).
# Zoom thresholds that are empty or not a positive number disable the feature.

`)
	data = append(header, data...)

	reOrder := regexp.MustCompile(`(?m)^(\s+)anchor_order:`)
	data = reOrder.ReplaceAll(data, []byte("${1}# Options: lnglat, latlng\n${1}anchor_order:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
