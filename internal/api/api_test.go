package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuemap/pkg/catalog"
	"venuemap/pkg/config"
	"venuemap/pkg/db"
	"venuemap/pkg/model"
	"venuemap/pkg/store"
	"venuemap/pkg/tracker"
)

const testCatalog = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [12.5, 55.6]},
      "properties": {"kind": "venue", "id": "hq", "name": "Headquarters", "default_floor": 0, "floors": [0, 1]}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[12.0, 55.0], [13.0, 55.0], [13.0, 56.0], [12.0, 56.0], [12.0, 55.0]]]},
      "properties": {
        "kind": "location", "id": "5f0c8a1e2b3c4d5e6f708192", "external_id": "R-101",
        "venue_id": "hq", "name": "Meeting Room", "type": "MeetingRoom", "floor": 1, "categories": ["meeting"]
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [12.6, 55.7]},
      "properties": {"kind": "location", "id": "cafe", "venue_id": "hq", "name": "Cafe", "type": "Canteen", "floor": "0", "categories": ["food"]}
    }
  ]
}`

type recordedEvent struct {
	Category, Action, Label string
	NonInteraction          bool
}

type recordingSender struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSender) SendEvent(_ context.Context, category, action, label string, nonInteraction bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{category, action, label, nonInteraction})
}

func (r *recordingSender) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

type testEnv struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	store   *store.SQLiteStore
	tracker *tracker.Tracker
	mapView *MapViewHandler
	server  *httptest.Server
}

func newTestEnv(t *testing.T, events EventSender) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.StaticDir = ""

	cat, err := catalog.Parse([]byte(testCatalog), "demo", config.AnchorLngLat)
	require.NoError(t, err)

	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	st := store.NewSQLiteStore(d)
	t.Cleanup(func() { _ = st.Close() })

	tr := tracker.New(st)
	if events == nil {
		events = tr
	}
	mv := NewMapViewHandler(cfg, cat, events)

	srv := NewServer(cfg.Server,
		NewConfigHandler(cfg, cat.Solution()),
		NewVenueHandler(cat),
		NewStatsHandler(tr, mv, cat),
		NewEventsHandler(st),
		mv,
		func() {},
	)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{cfg: cfg, catalog: cat, store: st, tracker: tr, mapView: mv, server: ts}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/api/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[map[string]string](t, resp)
	assert.NotEmpty(t, v["version"])
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cfg.App.BuildingOutlineVisibleFrom = "16"
	env.cfg.App.FloorSelectorVisibleFrom = "18"

	resp := env.get(t, "/api/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ConfigResponse](t, resp)

	assert.Equal(t, "Indoor Map", got.Title)
	assert.Equal(t, "demo", got.Solution.Name)
	assert.Len(t, got.Solution.Types, 2)
	assert.Equal(t, ThresholdsDTO{BuildingOutlineVisibleFrom: 16, FloorSelectorVisibleFrom: 18, Enabled: true}, got.Thresholds)
	assert.False(t, got.PositioningDisabled)
	assert.Equal(t, "#EF6CCE", got.Outline.StrokeColor)
	assert.Equal(t, "Open Sans", got.Labels.FontFamily)
	assert.Equal(t, int64(300000), got.Position.MaximumAgeMS)
}

func TestVenueEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("List", func(t *testing.T) {
		venues := decode[[]model.Venue](t, env.get(t, "/api/venues"))
		require.Len(t, venues, 1)
		assert.Equal(t, "hq", venues[0].ID)
	})

	t.Run("Venue", func(t *testing.T) {
		resp := env.get(t, "/api/venues/hq")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var v struct {
			ID     string     `json:"id"`
			Bounds [4]float64 `json:"bounds"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
		assert.Equal(t, "hq", v.ID)
		assert.Equal(t, [4]float64{12, 55, 13, 56}, v.Bounds)
	})

	t.Run("UnknownVenue", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/venues/nope").StatusCode)
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/venues/nope/locations").StatusCode)
	})

	t.Run("LocationsByCategory", func(t *testing.T) {
		locs := decode[[]model.Location](t, env.get(t, "/api/venues/hq/locations?cat=food"))
		require.Len(t, locs, 1)
		assert.Equal(t, "cafe", locs[0].ID)
	})

	t.Run("LocationsAtPoint", func(t *testing.T) {
		locs := decode[[]model.Location](t, env.get(t, "/api/venues/hq/locations?floor=1&lat=55.5&lng=12.5"))
		require.Len(t, locs, 1)
		assert.Equal(t, "Meeting Room", locs[0].Name)

		locs = decode[[]model.Location](t, env.get(t, "/api/venues/hq/locations?floor=0&lat=55.5&lng=12.5"))
		assert.Empty(t, locs)
	})

	t.Run("BadCoordinate", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/venues/hq/locations?lat=x&lng=1").StatusCode)
	})

	t.Run("LocationByEitherID", func(t *testing.T) {
		byID := decode[model.Location](t, env.get(t, "/api/locations/5f0c8a1e2b3c4d5e6f708192"))
		byExternal := decode[model.Location](t, env.get(t, "/api/locations/R-101"))
		assert.Equal(t, byID, byExternal)
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/locations/R-999").StatusCode)
	})
}

func TestEventsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := t.Context()
	env.tracker.SendEvent(ctx, "Floor selector", "Floor was changed", "1th floor was set", true)
	env.tracker.SendEvent(ctx, "Directions", `Clicked "Get Directions"`, `"Cafe" - cafe`, false)

	got := decode[EventsResponse](t, env.get(t, "/api/events/recent"))
	require.Len(t, got.Events, 2)
	assert.Nil(t, got.Total)

	got = decode[EventsResponse](t, env.get(t, "/api/events/recent?category=Directions"))
	require.Len(t, got.Events, 1)
	assert.Equal(t, `"Cafe" - cafe`, got.Events[0].Label)
	require.NotNil(t, got.Total)
	assert.Equal(t, 1, *got.Total)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/events/recent?limit=-1").StatusCode)

	latest := decode[map[string]string](t, env.get(t, "/api/log/latest"))
	assert.Contains(t, latest["event"], `[Directions] Clicked "Get Directions" - "Cafe" - cafe`)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.tracker.SendEvent(t.Context(), "Details page", "Show on map button", "Show on map button was clicked", true)

	got := decode[StatsResponse](t, env.get(t, "/api/stats"))
	assert.Equal(t, CatalogStats{Venues: 1, Locations: 2}, got.Catalog)
	assert.Equal(t, ViewStats{}, got.Views)
	require.Len(t, got.Events, 1)
	assert.Equal(t, EventStatsDTO{Category: "Details page", Events: 1, NonInteraction: 1}, got.Events[0])
	assert.Positive(t, got.Diagnostics.Goroutines)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Server.StaticDir = dir
	cat, err := catalog.Parse([]byte(testCatalog), "demo", config.AnchorLngLat)
	require.NoError(t, err)
	mv := NewMapViewHandler(cfg, cat, nil)
	srv := NewServer(cfg.Server, NewConfigHandler(cfg, cat.Solution()), NewVenueHandler(cat),
		NewStatsHandler(tracker.New(nil), mv, cat), nil, mv, func() {})
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/demo/hq/search", http.StatusOK},
		{"/app.js", http.StatusOK},
		{"/missing.css", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.wantStatus, resp.StatusCode, tt.path)
	}
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
}
