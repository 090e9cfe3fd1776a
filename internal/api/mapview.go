package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"venuemap/internal/bridge"
	"venuemap/pkg/catalog"
	"venuemap/pkg/config"
	"venuemap/pkg/details"
	"venuemap/pkg/device"
	"venuemap/pkg/display"
	"venuemap/pkg/mapview"
	"venuemap/pkg/model"
)

// EventSender forwards analytics events.
type EventSender interface {
	SendEvent(ctx context.Context, category, action, label string, nonInteraction bool)
}

// MapViewHandler hosts map views over WebSocket. Each connection is one view.
type MapViewHandler struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	events   EventSender
	settings mapview.Settings
	upgrader websocket.Upgrader

	active atomic.Int64
	total  atomic.Int64
}

// NewMapViewHandler creates the WebSocket endpoint handler. events may be nil.
func NewMapViewHandler(cfg *config.Config, cat *catalog.Catalog, events EventSender) *MapViewHandler {
	return &MapViewHandler{
		cfg:      cfg,
		catalog:  cat,
		events:   events,
		settings: mapview.SettingsFromConfig(cfg, cat.Solution()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Browser client is served from this process or a dev server; the API has no auth.
				return true
			},
		},
	}
}

// ActiveViews returns the number of connected map views.
func (h *MapViewHandler) ActiveViews() int64 { return h.active.Load() }

// TotalViews returns the number of map views served since startup.
func (h *MapViewHandler) TotalViews() int64 { return h.total.Load() }

// HandleWS upgrades the request and runs the map view until the browser disconnects.
// GET /api/map/ws
func (h *MapViewHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade map view connection", "error", err)
		return
	}

	s := bridge.NewSession(conn, bridge.Options{
		WriteTimeout: time.Duration(h.cfg.Bridge.WriteTimeout),
		PongTimeout:  time.Duration(h.cfg.Bridge.PongTimeout),
	})
	h.serve(r.Context(), s, device.ClassifyUserAgent(r.UserAgent()))
}

func (h *MapViewHandler) serve(ctx context.Context, s *bridge.Session, handset bool) {
	h.active.Add(1)
	h.total.Add(1)
	defer h.active.Add(-1)

	ctx, cancel := context.WithCancel(ctx)
	v := &view{
		ctx:     ctx,
		h:       h,
		session: s,
		device:  device.NewClassifier(handset),
		logger:  slog.With("component", "mapview_ws", "session", s.ID),
	}
	defer func() {
		cancel()
		v.close()
		s.Close()
	}()

	v.logger.Info("Map view connected", "handset", handset)
	if err := s.Run(ctx, v); err != nil {
		v.logger.Warn("Map view ended with error", "error", err)
		return
	}
	v.logger.Info("Map view disconnected")
}

// view is the server side of one hosting map view. It is driven by the session's read loop.
type view struct {
	ctx     context.Context
	h       *MapViewHandler
	session *bridge.Session
	device  *device.Classifier
	logger  *slog.Logger

	coord     *mapview.Coordinator
	screen    *details.Screen
	lastState display.State
	wg        sync.WaitGroup
}

var errNotReady = errors.New("map view not ready")

func (v *view) Ready(ev bridge.Event) error {
	if ev.Width > 0 {
		v.device.Update(device.Viewport{Width: ev.Width, Height: ev.Height})
	}

	coord := mapview.New(v.ctx, v.session, v.session, v.session, v.device, v.h.events, v.h.settings)
	if err := coord.Init(); err != nil {
		coord.Close()
		return err
	}
	v.coord = coord
	v.screen = details.NewScreen(v.ctx, coord, v.h.events, v.h.settings.Solution.Name)

	if ev.VenueID != "" {
		if venue, err := v.h.catalog.Venue(ev.VenueID); err == nil {
			v.screen.SetVenue(venue)
		} else {
			v.logger.Warn("Ready with unknown venue", "venue", ev.VenueID)
		}
	}

	v.forward()
	coord.SetTitle("")
	v.lastState = coord.State()
	return v.session.Send(bridge.Command{Cmd: bridge.CmdState, State: &v.lastState})
}

// forward relays the title and return-to streams to the browser.
func (v *view) forward() {
	titles := v.coord.SubscribeTitle(v.ctx)
	targets := v.coord.SubscribeReturnTo(v.ctx)

	v.wg.Add(2)
	go func() {
		defer v.wg.Done()
		for t := range titles {
			if err := v.session.Send(bridge.Command{Cmd: bridge.CmdTitle, Title: t}); err != nil {
				return
			}
		}
	}()
	go func() {
		defer v.wg.Done()
		for t := range targets {
			if err := v.session.Send(bridge.Command{Cmd: bridge.CmdReturnTo, ReturnTo: &t}); err != nil {
				return
			}
		}
	}()
}

func (v *view) Viewport(width, height int) {
	v.device.Update(device.Viewport{Width: width, Height: height})
}

func (v *view) Dispatched() {
	if v.coord == nil {
		return
	}
	st := v.coord.State()
	if st == v.lastState {
		return
	}
	v.lastState = st
	if err := v.session.Send(bridge.Command{Cmd: bridge.CmdState, State: &st}); err != nil {
		v.logger.Debug("Failed to push state", "error", err)
	}
}

type opArgs struct {
	LocationIDs []string `json:"location_ids"`
	FitView     bool     `json:"fit_view"`
	Floor       string   `json:"floor"`
	ID          string   `json:"id"`
	VenueID     string   `json:"venue_id"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
}

func (v *view) Op(op string, raw json.RawMessage) (any, error) {
	if v.coord == nil {
		return nil, errNotReady
	}
	var args opArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", op, err)
		}
	}

	switch op {
	case "set_filter":
		v.coord.SetFilter(v.lookupLocations(args.LocationIDs), args.FitView)
	case "clear_filter":
		v.coord.ClearFilter(args.FitView)
	case "set_floor":
		v.coord.SetFloor(args.Floor)
	case "show_floor_selector":
		return nil, v.coord.ShowFloorSelector()
	case "hide_floor_selector":
		v.coord.HideFloorSelector()
	case "show_floor_selector_after_interaction":
		v.coord.ShowFloorSelectorAfterFirstInteraction()
	case "set_title":
		v.coord.SetTitle(args.Title)
	case "set_venue":
		venue, err := v.h.catalog.Venue(args.VenueID)
		if err != nil {
			return nil, err
		}
		v.screen.SetVenue(venue)
		return venue, nil
	case "return_to_venue":
		venue, err := v.h.catalog.Venue(args.VenueID)
		if err != nil {
			return nil, err
		}
		v.coord.PublishVenue(venue)
	case "return_to_location":
		loc, err := details.ResolveLocation(v.h.catalog, args.ID)
		if err != nil {
			return nil, err
		}
		v.coord.PublishLocation(loc, loc.Anchor)
	case "enter_location":
		loc, err := details.ResolveLocation(v.h.catalog, args.ID)
		if err != nil {
			return nil, err
		}
		v.screen.SetCategoryFilter(args.Category)
		v.screen.Enter(loc)
		return loc, nil
	case "go_back":
		return map[string]string{"route": v.screen.GoBack()}, nil
	case "leave_location":
		v.screen.Leave()
	case "show_on_map":
		v.screen.ShowOnMap()
	case "directions":
		return map[string]string{"route": v.screen.DirectionsRoute()}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	return nil, nil
}

// lookupLocations resolves ids against the catalog, skipping unknown ones.
func (v *view) lookupLocations(ids []string) []model.Location {
	locs := make([]model.Location, 0, len(ids))
	for _, id := range ids {
		loc, err := v.h.catalog.Location(id)
		if err != nil {
			v.logger.Debug("Filter skips unknown location", "id", id)
			continue
		}
		locs = append(locs, *loc)
	}
	return locs
}

func (v *view) close() {
	if v.screen != nil {
		v.screen.Leave()
	}
	if v.coord != nil {
		v.coord.Close()
	}
	v.wg.Wait()
}
