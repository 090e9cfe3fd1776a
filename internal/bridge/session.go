// Package bridge drives a map engine running in the browser over a WebSocket.
// A Session is the engine, indoor SDK and viewport of one hosting map view.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"venuemap/pkg/engine"
	"venuemap/pkg/logging"
)

// ErrClosed is returned when writing to a closed session.
var ErrClosed = errors.New("bridge session closed")

// Conn is the subset of *websocket.Conn a session uses.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Handler receives the application-level events of a session.
// All calls happen on the session's read loop.
type Handler interface {
	// Ready is called once the browser map is initialized. An error aborts the session.
	Ready(ev Event) error
	Viewport(width, height int)
	// Op runs a screen operation and returns its result.
	Op(op string, args json.RawMessage) (any, error)
	// Dispatched is called after every inbound event.
	Dispatched()
}

// Options tune a session's timeouts.
type Options struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

// Session implements engine.Map, engine.Indoor and engine.Viewport against a browser.
// Engine methods and listeners run on the read loop; Send may be called from any goroutine.
type Session struct {
	ID string

	conn   Conn
	opts   Options
	logger *slog.Logger

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	// Owned by the read loop.
	ready     bool
	zoom      float64
	floor     string
	zoomL     engine.Listeners[struct{}]
	floorL    engine.Listeners[struct{}]
	gestures  map[string]*engine.Listeners[struct{}]
	positions map[string]engine.PositionListener
}

// NewSession wraps an upgraded connection.
func NewSession(conn Conn, opts Options) *Session {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		conn:      conn,
		opts:      opts,
		logger:    slog.With("component", "bridge", "session", id),
		gestures:  make(map[string]*engine.Listeners[struct{}]),
		positions: make(map[string]engine.PositionListener),
	}
}

// Send writes one command. Writes are serialized and bounded by the write timeout.
func (s *Session) Send(cmd Command) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd.Cmd, err)
	}
	logging.Trace(s.logger, "Command sent", "cmd", cmd.Cmd)
	return nil
}

// send is used by engine methods, which have no error return.
func (s *Session) send(cmd Command) {
	if err := s.Send(cmd); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Warn("Bridge write failed", "cmd", cmd.Cmd, "error", err)
	}
}

// Run reads and dispatches browser events until the connection ends or ctx is done.
func (s *Session) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go s.pingLoop(pingDone)

	for {
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("bridge read failed: %w", err)
		}
		if err := s.dispatch(ev, h); err != nil {
			return err
		}
	}
}

func (s *Session) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PongTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.wmu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout))
			s.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Session) dispatch(ev Event, h Handler) error {
	logging.Trace(s.logger, "Event received", "event", ev.Event)

	switch ev.Event {
	case EventReady:
		if s.ready {
			s.logger.Warn("Duplicate ready event ignored")
			break
		}
		s.zoom, s.floor, s.ready = ev.Zoom, ev.Floor, true
		if err := h.Ready(ev); err != nil {
			return fmt.Errorf("map view setup failed: %w", err)
		}
	case EventZoomChanged:
		s.zoom = ev.Zoom
		s.zoomL.Fire(struct{}{})
	case EventFloorChanged:
		s.floor = ev.Floor
		s.floorL.Fire(struct{}{})
	case EventGesture:
		if l, ok := s.gestures[ev.Type]; ok {
			l.Fire(struct{}{})
		}
	case EventViewport:
		h.Viewport(ev.Width, ev.Height)
	case EventPositionReceived:
		if l, ok := s.positions[ev.Element]; ok && ev.Position != nil {
			l.PositionReceived(*ev.Position)
		}
	case EventPositionError:
		if l, ok := s.positions[ev.Element]; ok && ev.PositionError != nil {
			l.PositionError(*ev.PositionError)
		}
	case EventOp:
		res, err := h.Op(ev.Op, ev.Args)
		reply := Command{Cmd: CmdResult, Seq: ev.Seq, Op: ev.Op, Result: res}
		if err != nil {
			reply.Error = err.Error()
			s.logger.Debug("Operation failed", "op", ev.Op, "error", err)
		}
		s.send(reply)
	default:
		s.logger.Debug("Unknown bridge event", "event", ev.Event)
		return nil
	}

	h.Dispatched()
	return nil
}

// Close ends the session. It is safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.wmu.Lock()
		s.closed.Store(true)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.wmu.Unlock()
		_ = s.conn.Close()
	})
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool { return s.closed.Load() }

// --- engine.Map ---

func (s *Session) OnZoomChanged(fn func()) engine.Remove {
	return s.zoomL.Add(func(struct{}) { fn() })
}

func (s *Session) Zoom() float64 { return s.zoom }

func (s *Session) SetBuildingOutlineOptions(opts engine.OutlineOptions) {
	s.send(Command{Cmd: CmdOutline, Outline: &opts})
}

func (s *Session) Controls(pos engine.ControlPosition) engine.ControlSlot {
	return controlSlot{s: s, pos: pos}
}

func (s *Session) Filter(ids []string, fitView bool) {
	s.send(Command{Cmd: CmdFilter, IDs: &ids, FitView: fitView})
}

func (s *Session) SetDisplayRule(names []string, rule engine.DisplayRule) {
	s.send(Command{Cmd: CmdDisplayRule, Names: names, Rule: &rule})
}

// CreateElement allocates the id of a container the browser creates on first use.
func (s *Session) CreateElement() (engine.Element, error) {
	if s.closed.Load() {
		return engine.Element{}, ErrClosed
	}
	if !s.ready {
		return engine.Element{}, engine.ErrMapNotReady
	}
	return engine.Element{ID: "el-" + uuid.NewString()}, nil
}

type controlSlot struct {
	s   *Session
	pos engine.ControlPosition
}

func (c controlSlot) Push(el engine.Element) {
	c.s.send(Command{Cmd: CmdControlsPush, Position: c.pos, Element: el.ID})
}

func (c controlSlot) Clear() {
	c.s.send(Command{Cmd: CmdControlsClear, Position: c.pos})
}

// --- engine.Indoor ---

func (s *Session) NewFloorSelector(el engine.Element) error {
	if el.ID == "" {
		return engine.ErrNoContainer
	}
	return s.Send(Command{Cmd: CmdFloorSelector, Element: el.ID})
}

func (s *Session) NewPositionControl(el engine.Element, opts engine.PositionOptions, l engine.PositionListener) error {
	if el.ID == "" {
		return engine.ErrNoContainer
	}
	if err := s.Send(Command{Cmd: CmdPositionControl, Element: el.ID, PositionOptions: &opts}); err != nil {
		return err
	}
	if l != nil {
		s.positions[el.ID] = l
	}
	return nil
}

func (s *Session) OnFloorChanged(fn func()) engine.Remove {
	return s.floorL.Add(func(struct{}) { fn() })
}

func (s *Session) Floor() string { return s.floor }

// SetFloor updates the mirrored floor at once; listeners fire when the browser
// reports the resulting floor_changed.
func (s *Session) SetFloor(floor string) {
	s.floor = floor
	s.send(Command{Cmd: CmdFloorSet, Floor: floor})
}

// --- engine.Viewport ---

// AddEventListener subscribes the browser to a DOM event the first time anyone listens for it
// and unsubscribes once the last listener is gone.
func (s *Session) AddEventListener(event string, fn func()) engine.Remove {
	l, ok := s.gestures[event]
	if !ok {
		l = &engine.Listeners[struct{}]{}
		s.gestures[event] = l
	}
	if l.Len() == 0 {
		s.send(Command{Cmd: CmdListen, Event: event})
	}
	remove := l.Add(func(struct{}) { fn() })

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			if l.Len() == 0 {
				s.send(Command{Cmd: CmdUnlisten, Event: event})
			}
		})
	}
}
