package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuemap/internal/bridge"
	"venuemap/pkg/engine"
)

type browser struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int64
}

func dialView(t *testing.T, env *testEnv) *browser {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/map/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &browser{t: t, conn: conn}
}

func (b *browser) send(ev bridge.Event) {
	b.t.Helper()
	require.NoError(b.t, b.conn.WriteJSON(ev))
}

func (b *browser) op(op string, args any) int64 {
	b.t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(b.t, err)
	b.seq++
	b.send(bridge.Event{Event: bridge.EventOp, Seq: b.seq, Op: op, Args: raw})
	return b.seq
}

// readUntil collects commands until done reports true for the commands seen so far.
func (b *browser) readUntil(done func([]bridge.Command) bool) []bridge.Command {
	b.t.Helper()
	var got []bridge.Command
	require.NoError(b.t, b.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for !done(got) {
		var cmd bridge.Command
		require.NoError(b.t, b.conn.ReadJSON(&cmd), "commands so far: %+v", got)
		got = append(got, cmd)
	}
	return got
}

func find(cmds []bridge.Command, match func(bridge.Command) bool) (bridge.Command, bool) {
	for _, c := range cmds {
		if match(c) {
			return c, true
		}
	}
	return bridge.Command{}, false
}

func has(match func(bridge.Command) bool) func([]bridge.Command) bool {
	return func(cmds []bridge.Command) bool {
		_, ok := find(cmds, match)
		return ok
	}
}

func all(conds ...func([]bridge.Command) bool) func([]bridge.Command) bool {
	return func(cmds []bridge.Command) bool {
		for _, c := range conds {
			if !c(cmds) {
				return false
			}
		}
		return true
	}
}

func isCmd(name string) func(bridge.Command) bool {
	return func(c bridge.Command) bool { return c.Cmd == name }
}

func isTitle(title string) func(bridge.Command) bool {
	return func(c bridge.Command) bool { return c.Cmd == bridge.CmdTitle && c.Title == title }
}

func isResult(seq int64) func(bridge.Command) bool {
	return func(c bridge.Command) bool { return c.Cmd == bridge.CmdResult && c.Seq == seq }
}

func (b *browser) ready(venueID string) []bridge.Command {
	b.t.Helper()
	b.send(bridge.Event{Event: bridge.EventReady, Zoom: 15, Floor: "0", Width: 1280, Height: 800, VenueID: venueID})
	return b.readUntil(all(has(isCmd(bridge.CmdState)), has(isTitle("Indoor Map"))))
}

func TestMapView_ReadyInitializesView(t *testing.T) {
	env := newTestEnv(t, &recordingSender{})
	b := dialView(t, env)
	cmds := b.ready("hq")

	rule, ok := find(cmds, isCmd(bridge.CmdDisplayRule))
	require.True(t, ok)
	assert.Equal(t, []string{engine.RuleBuilding, engine.RuleVenue}, rule.Names)
	require.NotNil(t, rule.Rule.Visible)
	assert.False(t, *rule.Rule.Visible)

	pc, ok := find(cmds, isCmd(bridge.CmdPositionControl))
	require.True(t, ok)
	push, ok := find(cmds, isCmd(bridge.CmdControlsPush))
	require.True(t, ok)
	assert.Equal(t, pc.Element, push.Element)
	assert.Equal(t, engine.TopRight, push.Position)

	outline, ok := find(cmds, isCmd(bridge.CmdOutline))
	require.True(t, ok, "thresholds unset: outline shown once")
	assert.True(t, outline.Outline.Visible)

	state, _ := find(cmds, isCmd(bridge.CmdState))
	require.NotNil(t, state.State)
	assert.True(t, state.State.OutlineVisible)
	assert.False(t, state.State.FloorSelectorVisible)

	assert.Eventually(t, func() bool { return env.mapView.ActiveViews() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), env.mapView.TotalViews())
}

func TestMapView_OpBeforeReady(t *testing.T) {
	env := newTestEnv(t, &recordingSender{})
	b := dialView(t, env)

	seq := b.op("clear_filter", map[string]any{})
	cmds := b.readUntil(has(isResult(seq)))
	res, _ := find(cmds, isResult(seq))
	assert.Equal(t, errNotReady.Error(), res.Error)
}

func TestMapView_DetailsFlow(t *testing.T) {
	events := &recordingSender{}
	env := newTestEnv(t, events)
	b := dialView(t, env)
	b.ready("hq")

	// Enter by external id.
	seq := b.op("enter_location", map[string]string{"id": "R-101", "category": "Meeting"})
	cmds := b.readUntil(all(has(isResult(seq)), has(isTitle("Meeting Room"))))

	filter, ok := find(cmds, isCmd(bridge.CmdFilter))
	require.True(t, ok)
	require.NotNil(t, filter.IDs)
	assert.Equal(t, []string{"5f0c8a1e2b3c4d5e6f708192"}, *filter.IDs)
	assert.True(t, filter.FitView)

	seq = b.op("directions", nil)
	cmds = b.readUntil(has(isResult(seq)))
	res, _ := find(cmds, isResult(seq))
	assert.Equal(t, map[string]any{"route": "demo/hq/route/destination/5f0c8a1e2b3c4d5e6f708192"}, res.Result)

	seq = b.op("show_on_map", nil)
	b.readUntil(has(isResult(seq)))

	seq = b.op("go_back", nil)
	cmds = b.readUntil(all(
		has(isResult(seq)),
		has(isTitle("Indoor Map")),
		has(isCmd(bridge.CmdReturnTo)),
	))
	res, _ = find(cmds, isResult(seq))
	assert.Equal(t, map[string]any{"route": "demo/hq/search?cat=meeting"}, res.Result)
	target, _ := find(cmds, isCmd(bridge.CmdReturnTo))
	assert.Equal(t, "Headquarters", target.ReturnTo.Name)
	assert.True(t, target.ReturnTo.IsVenue)

	seq = b.op("leave_location", nil)
	cmds = b.readUntil(has(isResult(seq)))
	filter, ok = find(cmds, isCmd(bridge.CmdFilter))
	require.True(t, ok)
	assert.Nil(t, filter.IDs, "leaving lifts the filter")

	assert.Equal(t, []recordedEvent{
		{"Directions", `Clicked "Get Directions"`, `"Meeting Room" - 5f0c8a1e2b3c4d5e6f708192`, false},
		{"Details page", "Show on map button", "Show on map button was clicked", true},
	}, events.snapshot())
}

func TestMapView_FloorSelectorFollowsViewport(t *testing.T) {
	events := &recordingSender{}
	env := newTestEnv(t, events)
	b := dialView(t, env)
	b.ready("hq")

	isVisibleAt := func(pos engine.ControlPosition) func(bridge.Command) bool {
		return func(c bridge.Command) bool {
			return c.Cmd == bridge.CmdState && c.State.FloorSelectorVisible && c.State.FloorSelectorPosition == pos
		}
	}

	seq := b.op("show_floor_selector", nil)
	cmds := b.readUntil(all(has(isResult(seq)), has(isVisibleAt(engine.RightCenter))))
	_, ok := find(cmds, isCmd(bridge.CmdFloorSelector))
	assert.True(t, ok)

	b.send(bridge.Event{Event: bridge.EventFloorChanged, Floor: "1"})
	b.send(bridge.Event{Event: bridge.EventViewport, Width: 400, Height: 800})
	cmds = b.readUntil(has(isVisibleAt(engine.LeftCenter)))

	cleared, ok := find(cmds, isCmd(bridge.CmdControlsClear))
	require.True(t, ok)
	assert.Equal(t, engine.RightCenter, cleared.Position)

	assert.Equal(t, []recordedEvent{
		{"Floor selector", "Floor was changed", "1th floor was set", true},
	}, events.snapshot())
}

func TestMapView_UnknownOpAndBadArgs(t *testing.T) {
	env := newTestEnv(t, &recordingSender{})
	b := dialView(t, env)
	b.ready("hq")

	seq := b.op("teleport", nil)
	cmds := b.readUntil(has(isResult(seq)))
	res, _ := find(cmds, isResult(seq))
	assert.Contains(t, res.Error, "unknown operation")

	seq = b.op("set_venue", map[string]string{"venue_id": "nope"})
	cmds = b.readUntil(has(isResult(seq)))
	res, _ = find(cmds, isResult(seq))
	assert.Contains(t, res.Error, "not found")

	b.seq++
	b.send(bridge.Event{Event: bridge.EventOp, Seq: b.seq, Op: "set_floor", Args: json.RawMessage(`"1"`)})
	cmds = b.readUntil(has(isResult(b.seq)))
	res, _ = find(cmds, isResult(b.seq))
	assert.Contains(t, res.Error, "invalid set_floor arguments")
}
