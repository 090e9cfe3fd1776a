package api

import (
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"venuemap/pkg/tracker"
)

// ViewCounter reports map view connections.
type ViewCounter interface {
	ActiveViews() int64
	TotalViews() int64
}

// CatalogSizer reports the size of the loaded catalog.
type CatalogSizer interface {
	Size() (venues, locations int)
}

type StatsHandler struct {
	tracker *tracker.Tracker
	views   ViewCounter
	catalog CatalogSizer
	started time.Time

	mu     sync.Mutex
	maxMem uint64
}

func NewStatsHandler(t *tracker.Tracker, views ViewCounter, c CatalogSizer) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		views:   views,
		catalog: c,
		started: time.Now(),
	}
}

type EventStatsDTO struct {
	Category       string `json:"category"`
	Events         int64  `json:"events"`
	NonInteraction int64  `json:"non_interaction"`
	SinkFailures   int64  `json:"sink_failures"`
}

type DiagnosticsDTO struct {
	MemoryMB    uint64  `json:"memory_mb"`
	MemoryMaxMB uint64  `json:"memory_max_mb"`
	Goroutines  int     `json:"goroutines"`
	UptimeSec   float64 `json:"uptime_sec"`
}

type ViewStats struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
}

type CatalogStats struct {
	Venues    int `json:"venues"`
	Locations int `json:"locations"`
}

type StatsResponse struct {
	Diagnostics DiagnosticsDTO  `json:"diagnostics"`
	Views       ViewStats       `json:"views"`
	Catalog     CatalogStats    `json:"catalog"`
	Events      []EventStatsDTO `json:"events"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Diagnostics: h.gatherDiagnostics(),
		Events:      []EventStatsDTO{},
	}
	if h.views != nil {
		resp.Views = ViewStats{Active: h.views.ActiveViews(), Total: h.views.TotalViews()}
	}
	if h.catalog != nil {
		v, l := h.catalog.Size()
		resp.Catalog = CatalogStats{Venues: v, Locations: l}
	}

	for category, stats := range h.tracker.Snapshot() {
		resp.Events = append(resp.Events, EventStatsDTO{
			Category:       category,
			Events:         stats.Events,
			NonInteraction: stats.NonInteraction,
			SinkFailures:   stats.SinkFailures,
		})
	}
	sort.Slice(resp.Events, func(i, j int) bool { return resp.Events[i].Category < resp.Events[j].Category })

	writeJSON(w, resp)
}

func (h *StatsHandler) gatherDiagnostics() DiagnosticsDTO {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.mu.Lock()
	if m.Sys > h.maxMem {
		h.maxMem = m.Sys
	}
	maxMem := h.maxMem
	h.mu.Unlock()

	return DiagnosticsDTO{
		MemoryMB:    bToMb(m.Sys),
		MemoryMaxMB: bToMb(maxMem),
		Goroutines:  runtime.NumGoroutine(),
		UptimeSec:   time.Since(h.started).Seconds(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
