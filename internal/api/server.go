package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"venuemap/pkg/config"
	"venuemap/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(cfg config.ServerConfig, cfgH *ConfigHandler, venues *VenueHandler, stats *StatsHandler, events *EventsHandler, mapView *MapViewHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2b. Config Endpoint
	mux.HandleFunc("GET /api/config", cfgH.HandleConfig)

	// 2c. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 2d. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 2e. Venue Endpoints
	mux.HandleFunc("GET /api/venues", venues.HandleList)
	mux.HandleFunc("GET /api/venues/{id}", venues.HandleVenue)
	mux.HandleFunc("GET /api/venues/{id}/locations", venues.HandleLocations)
	mux.HandleFunc("GET /api/locations/{id}", venues.HandleLocation)

	// 2f. Analytics Endpoint
	if events != nil {
		mux.HandleFunc("GET /api/events/recent", events.HandleRecent)
	}

	// 2g. Map View Bridge
	mux.HandleFunc("GET /api/map/ws", mapView.HandleWS)

	// 3. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 4. Static Frontend Serving (SPA)
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			mux.Handle("/", http.FileServer(&spaFileSystem{root: http.Dir(cfg.StaticDir)}))
		} else {
			slog.Warn("Static directory not found, serving API only", "dir", cfg.StaticDir)
		}
	}

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
		IdleTimeout:  time.Duration(cfg.IdleTimeout),
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError reports err as a JSON body with the given status.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
