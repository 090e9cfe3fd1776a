package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"venuemap/pkg/model"
	"venuemap/pkg/store"
)

const maxRecentEvents = 500

// EventsHandler serves persisted analytics events.
type EventsHandler struct {
	store store.EventStore
}

// NewEventsHandler creates a new EventsHandler. Returns nil if the store is missing.
func NewEventsHandler(st store.EventStore) *EventsHandler {
	if st == nil {
		return nil
	}
	return &EventsHandler{store: st}
}

// EventsResponse lists recent events, newest first, with the per-category total
// when ?category= is given.
type EventsResponse struct {
	Events []*model.TrackEvent `json:"events"`
	Total  *int                `json:"total,omitempty"`
}

// HandleRecent returns the most recent analytics events.
// GET /api/events/recent?limit=50&category=Directions
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, strconv.ErrSyntax)
			return
		}
		limit = min(n, maxRecentEvents)
	}

	events, err := h.store.RecentEvents(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load recent events", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []*model.TrackEvent{}
	}

	resp := EventsResponse{Events: events}
	if category := q.Get("category"); category != "" {
		filtered := make([]*model.TrackEvent, 0, len(events))
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		resp.Events = filtered

		total, err := h.store.CountEvents(r.Context(), category)
		if err != nil {
			slog.Warn("Failed to count events", "category", category, "error", err)
		} else {
			resp.Total = &total
		}
	}

	writeJSON(w, resp)
}
