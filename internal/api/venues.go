package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"venuemap/pkg/catalog"
	"venuemap/pkg/details"
	"venuemap/pkg/model"
)

// VenueHandler serves the venue catalog.
type VenueHandler struct {
	catalog *catalog.Catalog
}

// NewVenueHandler creates a new VenueHandler.
func NewVenueHandler(c *catalog.Catalog) *VenueHandler {
	return &VenueHandler{catalog: c}
}

// VenueDTO is a venue with its bounding box as [minLng, minLat, maxLng, maxLat].
type VenueDTO struct {
	*model.Venue
	Bounds [4]float64 `json:"bounds"`
}

// HandleList returns every venue.
// GET /api/venues
func (h *VenueHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.catalog.Venues())
}

// HandleVenue returns one venue and its bounds.
// GET /api/venues/{id}
func (h *VenueHandler) HandleVenue(w http.ResponseWriter, r *http.Request) {
	v, err := h.catalog.Venue(r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	dto := VenueDTO{Venue: v}
	if b, err := h.catalog.VenueBounds(v.ID); err == nil {
		dto.Bounds = [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
	}
	writeJSON(w, dto)
}

// HandleLocations lists the locations of a venue. ?cat= restricts to a category;
// ?floor=&lat=&lng= returns the locations covering that point instead.
// GET /api/venues/{id}/locations
func (h *VenueHandler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.catalog.Venue(id); err != nil {
		writeLookupError(w, err)
		return
	}

	q := r.URL.Query()
	var locs []model.Location
	if q.Has("lat") || q.Has("lng") {
		p, err := parseCoordinate(q.Get("lat"), q.Get("lng"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		locs = h.catalog.LocationsAt(id, q.Get("floor"), p)
	} else {
		locs = h.catalog.LocationsInVenue(id, q.Get("cat"))
	}

	if locs == nil {
		locs = []model.Location{}
	}
	writeJSON(w, locs)
}

// HandleLocation resolves a location id or an external room id.
// GET /api/locations/{id}
func (h *VenueHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := details.ResolveLocation(h.catalog, r.PathValue("id"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, loc)
}

func parseCoordinate(lat, lng string) (model.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid lat %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("invalid lng %q", lng)
	}
	return model.Coordinate{Lat: la, Lng: ln}, nil
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}
