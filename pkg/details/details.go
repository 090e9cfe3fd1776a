// Package details drives the location details screen of a map view.
package details

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"venuemap/pkg/model"
)

// LocationIDLength is the length of an indoor SDK location id.
// Ids of any other length are the customer's external room ids.
const LocationIDLength = 24

// Lookup finds locations by either id kind.
type Lookup interface {
	Location(id string) (*model.Location, error)
	LocationByExternalID(externalID string) (*model.Location, error)
}

// ResolveLocation looks up id as a location id or an external id depending on its length.
func ResolveLocation(l Lookup, id string) (*model.Location, error) {
	if len(id) == LocationIDLength {
		loc, err := l.Location(id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve location id: %w", err)
		}
		return loc, nil
	}
	loc, err := l.LocationByExternalID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve external id: %w", err)
	}
	return loc, nil
}

// View is the part of the map view the details screen drives.
type View interface {
	SetFilter(locations []model.Location, fitView bool)
	ClearFilter(fitView bool)
	SetTitle(title string)
	PublishVenue(v *model.Venue)
}

// EventSender forwards analytics events.
type EventSender interface {
	SendEvent(ctx context.Context, category, action, label string, nonInteraction bool)
}

// Screen is the details screen state of one view. A nil *Screen is inert.
type Screen struct {
	ctx      context.Context
	view     View
	events   EventSender
	solution string
	logger   *slog.Logger

	venue    *model.Venue
	location *model.Location
	category string
	active   bool
}

// NewScreen creates a screen for the given solution. events may be nil.
func NewScreen(ctx context.Context, view View, events EventSender, solution string) *Screen {
	return &Screen{
		ctx:      ctx,
		view:     view,
		events:   events,
		solution: solution,
		logger:   slog.With("component", "details"),
	}
}

// SetVenue sets the venue the screen belongs to.
func (s *Screen) SetVenue(v *model.Venue) {
	if s == nil {
		return
	}
	s.venue = v
}

// SetCategoryFilter remembers the search category the user came from; empty clears it.
func (s *Screen) SetCategoryFilter(key string) {
	if s == nil {
		return
	}
	s.category = key
}

// Location returns the location on screen, if any.
func (s *Screen) Location() *model.Location {
	if s == nil {
		return nil
	}
	return s.location
}

// Enter shows loc: its name becomes the page title and the map shows only it.
func (s *Screen) Enter(loc *model.Location) {
	if s == nil || loc == nil {
		return
	}
	s.location = loc
	s.active = true
	s.view.SetTitle(loc.Name)
	s.view.SetFilter([]model.Location{*loc}, true)
	s.logger.Debug("Entered location details", "location", loc.ID)
}

// GoBack resets the title, makes the venue the return-to target and returns the
// search route to navigate to. It returns "" while no venue is known.
func (s *Screen) GoBack() string {
	if s == nil || s.venue == nil {
		return ""
	}
	s.view.SetTitle("")
	s.view.PublishVenue(s.venue)

	route := fmt.Sprintf("%s/%s/search", s.solution, url.PathEscape(s.venue.ID))
	if s.category != "" {
		route += "?" + url.Values{"cat": {strings.ToLower(s.category)}}.Encode()
	}
	return route
}

// DirectionsRoute returns the route to directions towards the current location.
func (s *Screen) DirectionsRoute() string {
	if s == nil || s.venue == nil || s.location == nil {
		return ""
	}
	s.send("Directions", `Clicked "Get Directions"`, fmt.Sprintf("%q - %s", s.location.Name, s.location.ID), false)
	return fmt.Sprintf("%s/%s/route/destination/%s", s.solution, url.PathEscape(s.venue.ID), url.PathEscape(s.location.ID))
}

// ShowOnMap records that the user closed the details panel to look at the map.
func (s *Screen) ShowOnMap() {
	if s == nil || s.location == nil {
		return
	}
	s.send("Details page", "Show on map button", "Show on map button was clicked", true)
}

// Leave tears the screen down and lifts the location filter. Only the first call has an effect.
func (s *Screen) Leave() {
	if s == nil || !s.active {
		return
	}
	s.active = false
	s.location = nil
	s.view.ClearFilter(false)
	s.logger.Debug("Left location details")
}

func (s *Screen) send(category, action, label string, nonInteraction bool) {
	if s.events != nil {
		s.events.SendEvent(s.ctx, category, action, label, nonInteraction)
	}
}
