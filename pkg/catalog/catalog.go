// Package catalog loads the venue and location dataset from GeoJSON.
//
// Every feature carries a "kind" property of "venue" or "location". Anchors come
// from an optional "anchor" [a, b] property read in the configured order, else
// from the geometry: a Point as is, a polygon by its centroid.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"venuemap/pkg/config"
	"venuemap/pkg/model"
)

// ErrNotFound is returned when a venue or location id is unknown.
var ErrNotFound = errors.New("not found")

const (
	kindVenue    = "venue"
	kindLocation = "location"
)

// Catalog is an immutable in-memory index of one solution's venues and locations.
// It is safe for concurrent use.
type Catalog struct {
	solution string

	venues     map[string]*model.Venue
	locations  map[string]*model.Location
	byExternal map[string]*model.Location
	byVenue    map[string][]*model.Location

	geometries map[string]orb.Geometry // by location id
	bounds     map[string]orb.Bound    // by venue id
	types      map[string]string       // type name -> display name
}

// Load reads a GeoJSON feature collection from path.
func Load(path, solution, anchorOrder string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data, solution, anchorOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	slog.Info("Venue catalog loaded", "path", path, "venues", len(c.venues), "locations", len(c.locations))
	return c, nil
}

// Parse builds a catalog from GeoJSON bytes.
func Parse(data []byte, solution, anchorOrder string) (*Catalog, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		solution:   solution,
		venues:     make(map[string]*model.Venue),
		locations:  make(map[string]*model.Location),
		byExternal: make(map[string]*model.Location),
		byVenue:    make(map[string][]*model.Location),
		geometries: make(map[string]orb.Geometry),
		bounds:     make(map[string]orb.Bound),
		types:      make(map[string]string),
	}

	for i, f := range fc.Features {
		switch kind := getStringProp(f.Properties, "kind"); kind {
		case kindVenue:
			if err := c.addVenue(f, anchorOrder); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		case kindLocation:
			if err := c.addLocation(f, anchorOrder); err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
		default:
			slog.Debug("Skipping catalog feature", "index", i, "kind", kind)
		}
	}

	for id, locs := range c.byVenue {
		if _, ok := c.venues[id]; !ok {
			slog.Warn("Locations reference unknown venue", "venue", id, "count", len(locs))
		}
		sort.Slice(locs, func(a, b int) bool { return locs[a].Name < locs[b].Name })
	}
	return c, nil
}

func (c *Catalog) addVenue(f *geojson.Feature, anchorOrder string) error {
	id := getStringProp(f.Properties, "id")
	if id == "" {
		return errors.New("venue without id")
	}
	anchor, err := featureAnchor(f, anchorOrder)
	if err != nil {
		return fmt.Errorf("venue %s: %w", id, err)
	}
	c.venues[id] = &model.Venue{
		ID:           id,
		Name:         getStringProp(f.Properties, "name"),
		Anchor:       anchor,
		DefaultFloor: getStringProp(f.Properties, "default_floor"),
		Floors:       getStringsProp(f.Properties, "floors"),
	}
	c.extend(id, f.Geometry)
	return nil
}

func (c *Catalog) addLocation(f *geojson.Feature, anchorOrder string) error {
	id := getStringProp(f.Properties, "id")
	if id == "" {
		return errors.New("location without id")
	}
	anchor, err := featureAnchor(f, anchorOrder)
	if err != nil {
		return fmt.Errorf("location %s: %w", id, err)
	}
	loc := &model.Location{
		ID:         id,
		ExternalID: getStringProp(f.Properties, "external_id"),
		VenueID:    getStringProp(f.Properties, "venue_id"),
		Name:       getStringProp(f.Properties, "name"),
		Type:       getStringProp(f.Properties, "type"),
		Floor:      getStringProp(f.Properties, "floor"),
		Anchor:     anchor,
		Aliases:    getStringsProp(f.Properties, "aliases"),
		Categories: getStringsProp(f.Properties, "categories"),
	}

	c.locations[id] = loc
	if loc.ExternalID != "" {
		c.byExternal[loc.ExternalID] = loc
	}
	c.byVenue[loc.VenueID] = append(c.byVenue[loc.VenueID], loc)
	c.geometries[id] = f.Geometry
	c.extend(loc.VenueID, f.Geometry)

	if loc.Type != "" {
		display := getStringProp(f.Properties, "type_display_name")
		if prev, ok := c.types[loc.Type]; !ok || prev == "" {
			c.types[loc.Type] = display
		}
	}
	return nil
}

func (c *Catalog) extend(venueID string, g orb.Geometry) {
	if g == nil || venueID == "" {
		return
	}
	b, ok := c.bounds[venueID]
	if !ok {
		c.bounds[venueID] = g.Bound()
		return
	}
	c.bounds[venueID] = b.Union(g.Bound())
}

// Venue returns the venue with id.
func (c *Catalog) Venue(id string) (*model.Venue, error) {
	v, ok := c.venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	return v, nil
}

// Venues returns every venue sorted by name.
func (c *Catalog) Venues() []*model.Venue {
	out := make([]*model.Venue, 0, len(c.venues))
	for _, v := range c.venues {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Location returns the location with the indoor SDK id.
func (c *Catalog) Location(id string) (*model.Location, error) {
	l, ok := c.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// LocationByExternalID returns the location carrying the customer's own id.
func (c *Catalog) LocationByExternalID(externalID string) (*model.Location, error) {
	l, ok := c.byExternal[externalID]
	if !ok {
		return nil, fmt.Errorf("location with external id %s: %w", externalID, ErrNotFound)
	}
	return l, nil
}

// LocationsInVenue returns the locations of a venue sorted by name, optionally
// restricted to a category key.
func (c *Catalog) LocationsInVenue(venueID, category string) []model.Location {
	var out []model.Location
	for _, l := range c.byVenue[venueID] {
		if category != "" && !hasCategory(l, category) {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// LocationsAt returns the locations on floor of a venue whose polygon covers p.
func (c *Catalog) LocationsAt(venueID, floor string, p model.Coordinate) []model.Location {
	point := orb.Point{p.Lng, p.Lat}
	var out []model.Location
	for _, l := range c.byVenue[venueID] {
		if floor != "" && l.Floor != floor {
			continue
		}
		g := c.geometries[l.ID]
		if g == nil || !g.Bound().Contains(point) {
			continue
		}
		if containsPoint(g, point) {
			out = append(out, *l)
		}
	}
	return out
}

// VenueBounds returns the bounding box of a venue and all its locations.
func (c *Catalog) VenueBounds(venueID string) (orb.Bound, error) {
	b, ok := c.bounds[venueID]
	if !ok {
		return orb.Bound{}, fmt.Errorf("venue %s bounds: %w", venueID, ErrNotFound)
	}
	return b, nil
}

// Solution returns the solution and its location types sorted by name.
func (c *Catalog) Solution() model.Solution {
	s := model.Solution{Name: c.solution}
	for name, display := range c.types {
		if display == "" {
			display = name
		}
		s.Types = append(s.Types, model.LocationType{Name: name, DisplayName: display})
	}
	sort.Slice(s.Types, func(i, j int) bool { return s.Types[i].Name < s.Types[j].Name })
	return s
}

// Size returns the number of venues and locations.
func (c *Catalog) Size() (venues, locations int) {
	return len(c.venues), len(c.locations)
}

func hasCategory(l *model.Location, key string) bool {
	for _, c := range l.Categories {
		if c == key {
			return true
		}
	}
	return false
}

// featureAnchor resolves the anchor of a feature. An explicit "anchor" pair is
// read in the configured order; GeoJSON geometry is always (lng, lat).
func featureAnchor(f *geojson.Feature, order string) (model.Coordinate, error) {
	if pair, ok := f.Properties["anchor"].([]any); ok {
		if len(pair) != 2 {
			return model.Coordinate{}, fmt.Errorf("anchor must have 2 values, got %d", len(pair))
		}
		a, okA := pair[0].(float64)
		b, okB := pair[1].(float64)
		if !okA || !okB {
			return model.Coordinate{}, errors.New("anchor values must be numbers")
		}
		if order == config.AnchorLatLng {
			return model.Coordinate{Lat: a, Lng: b}, nil
		}
		return model.Coordinate{Lat: b, Lng: a}, nil
	}

	if f.Geometry == nil {
		return model.Coordinate{}, errors.New("no anchor and no geometry")
	}
	p := geometryAnchor(f.Geometry)
	return model.Coordinate{Lat: p.Lat(), Lng: p.Lon()}, nil
}

func geometryAnchor(g orb.Geometry) orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return v
	case orb.Polygon, orb.MultiPolygon:
		c, _ := planar.CentroidArea(v)
		return c
	default:
		return v.Bound().Center()
	}
}
