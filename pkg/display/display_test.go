package display

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuemap/pkg/config"
	"venuemap/pkg/engine"
	"venuemap/pkg/engine/enginetest"
	"venuemap/pkg/lifecycle"
)

type fixture struct {
	m        *enginetest.Map
	indoor   *enginetest.Indoor
	viewport *enginetest.Viewport
	device   *enginetest.Device
	scope    *lifecycle.Scope
	floor    *FloorSelector
	policy   *ZoomPolicy
}

func newFixture(zoom float64) *fixture {
	fx := &fixture{
		m:        enginetest.NewMap(zoom),
		indoor:   enginetest.NewIndoor("0"),
		viewport: enginetest.NewViewport(),
		device:   &enginetest.Device{},
		scope:    lifecycle.New(),
	}
	fx.floor = NewFloorSelector(fx.m, fx.indoor, fx.viewport, fx.device, fx.scope)
	fx.policy = NewZoomPolicy(fx.m, fx.floor, OutlineStyle(config.DefaultConfig().Outline))
	return fx
}

func TestZoomPolicy_ScenarioA(t *testing.T) {
	fx := newFixture(10)
	fx.policy.Configure(ParseThresholds("16", "18"), fx.scope)

	zooms := []float64{15, 16, 17, 18, 17}
	wantOutline := []bool{false, true, true, true, true}
	wantFloor := []bool{false, false, false, true, false}

	for i, z := range zooms {
		fx.m.SetZoom(z)
		outline, ok := fx.m.LastOutline()
		require.True(t, ok)
		assert.Equal(t, wantOutline[i], outline.Visible, "outline at zoom %v", z)
		assert.Equal(t, wantOutline[i], fx.policy.OutlineVisible(), "policy outline at zoom %v", z)
		assert.Equal(t, wantFloor[i], fx.floor.Visible(), "floor selector at zoom %v", z)
	}
	assert.Equal(t, 0, fx.m.ControlCount(), "hidden selector leaves no control behind")
}

func TestZoomPolicy_VisibilityMatchesThresholds(t *testing.T) {
	fx := newFixture(0)
	fx.policy.Configure(Thresholds{BuildingOutlineVisibleFrom: 14, FloorSelectorVisibleFrom: 17}, fx.scope)

	for z := 0.0; z <= 22; z += 0.5 {
		fx.m.SetZoom(z)
		outline, _ := fx.m.LastOutline()
		assert.Equal(t, z >= 14, outline.Visible, "outline at %v", z)
		assert.Equal(t, z >= 17, fx.floor.Visible(), "floor selector at %v", z)
		if fx.floor.Visible() {
			assert.Equal(t, 1, fx.m.ControlCount(), "exactly one control at %v", z)
		}
	}
}

func TestZoomPolicy_VisibleOutlineStyle(t *testing.T) {
	fx := newFixture(0)
	fx.policy.Configure(ParseThresholds("16", "18"), fx.scope)
	fx.m.SetZoom(16)

	outline, _ := fx.m.LastOutline()
	assert.Equal(t, engine.OutlineOptions{
		Visible:       true,
		Clickable:     false,
		FillOpacity:   0,
		StrokeColor:   "#EF6CCE",
		StrokeOpacity: 1,
		StrokeWeight:  4,
	}, outline)
}

func TestZoomPolicy_Disabled(t *testing.T) {
	tests := []struct {
		name           string
		outline, floor string
	}{
		{"BothEmpty", "", ""},
		{"OutlineZero", "0", "18"},
		{"FloorUnparseable", "16", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(10)
			fx.policy.Configure(ParseThresholds(tt.outline, tt.floor), fx.scope)

			assert.Equal(t, 0, fx.m.ZoomListeners(), "no zoom subscription when disabled")
			require.Len(t, fx.m.Outline, 1)
			assert.True(t, fx.m.Outline[0].Visible)

			for _, z := range []float64{1, 16, 18, 21} {
				fx.m.SetZoom(z)
			}
			assert.Len(t, fx.m.Outline, 1, "outline untouched by zoom")
			assert.False(t, fx.floor.Visible(), "floor selector unaffected by zoom")
		})
	}
}

func TestZoomPolicy_RepeatedEventsAreIdempotent(t *testing.T) {
	fx := newFixture(0)
	fx.policy.Configure(ParseThresholds("16", "18"), fx.scope)

	for i := 0; i < 5; i++ {
		fx.m.SetZoom(19)
	}
	assert.Len(t, fx.m.Outline, 5, "every event re-issues the outline")
	assert.Len(t, fx.indoor.Selectors, 1, "but the floor selector is only built once")
	assert.Equal(t, 1, fx.m.ControlCount())
}

func TestFloorSelector_ShowPlacement(t *testing.T) {
	tests := []struct {
		name    string
		handset bool
		want    engine.ControlPosition
	}{
		{"Desktop", false, engine.RightCenter},
		{"Handset", true, engine.LeftCenter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(0)
			fx.device.Handset = tt.handset

			require.NoError(t, fx.floor.Show())
			assert.True(t, fx.floor.Visible())
			assert.Equal(t, tt.want, fx.floor.Position())
			assert.Len(t, fx.m.Slots[tt.want], 1)
			assert.Equal(t, fx.indoor.Selectors[0], fx.m.Slots[tt.want][0])
		})
	}
}

func TestFloorSelector_ShowIsIdempotent(t *testing.T) {
	fx := newFixture(0)
	require.NoError(t, fx.floor.Show())
	require.NoError(t, fx.floor.Show())
	require.NoError(t, fx.floor.Show())

	assert.Len(t, fx.indoor.Selectors, 1)
	assert.Equal(t, 1, fx.m.ControlCount())
	assert.Equal(t, 1, fx.device.Subscribers())
	assert.Equal(t, 1, fx.indoor.FloorListeners())
}

func TestFloorSelector_ScenarioB_DeviceFlip(t *testing.T) {
	fx := newFixture(0)
	fx.device.Handset = true
	require.NoError(t, fx.floor.Show())
	require.Len(t, fx.m.Slots[engine.LeftCenter], 1)

	fx.device.Set(false)

	assert.Empty(t, fx.m.Slots[engine.LeftCenter])
	assert.Len(t, fx.m.Slots[engine.RightCenter], 1)
	assert.Equal(t, engine.RightCenter, fx.floor.Position())
	assert.Equal(t, 1, fx.m.ControlCount(), "no duplicate control after the move")
	assert.Equal(t, fx.indoor.Selectors[0], fx.m.Slots[engine.RightCenter][0], "the same control is moved")
}

func TestFloorSelector_DeviceChangeWhileHidden(t *testing.T) {
	fx := newFixture(0)
	require.NoError(t, fx.floor.Show())
	fx.floor.Hide()

	fx.device.Set(true)
	assert.Equal(t, 0, fx.m.ControlCount())
	assert.Equal(t, 0, fx.device.Subscribers(), "device subscription dropped on hide")
}

func TestFloorSelector_Hide(t *testing.T) {
	fx := newFixture(0)
	fx.floor.Hide() // no-op while hidden

	require.NoError(t, fx.floor.Show())
	fx.floor.Hide()
	fx.floor.Hide()

	assert.False(t, fx.floor.Visible())
	assert.Equal(t, engine.ControlPosition(""), fx.floor.Position())
	assert.Equal(t, 0, fx.m.ControlCount())
	assert.Equal(t, 0, fx.indoor.FloorListeners())
	assert.Equal(t, 0, fx.device.Subscribers())
	assert.Equal(t, 0, fx.scope.Len())
}

func TestFloorSelector_ShowFailurePropagates(t *testing.T) {
	fx := newFixture(0)
	fx.indoor.SelectorErr = engine.ErrNoContainer

	err := fx.floor.Show()
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrNoContainer))
	assert.False(t, fx.floor.Visible())
	assert.Equal(t, 0, fx.m.ControlCount())

	fx.indoor.SelectorErr = nil
	fx.m.CreateErr = engine.ErrMapNotReady
	assert.ErrorIs(t, fx.floor.Show(), engine.ErrMapNotReady)
}

func TestFloorSelector_ScenarioC_FirstInteraction(t *testing.T) {
	fx := newFixture(0)
	fx.floor.ShowAfterFirstInteraction()
	assert.Equal(t, len(GestureEvents), fx.viewport.ListenerCount())
	assert.False(t, fx.floor.Visible())

	fx.viewport.Emit("touchmove")
	assert.True(t, fx.floor.Visible())
	assert.Equal(t, 0, fx.viewport.ListenerCount(), "all gesture listeners removed after the first")

	fx.floor.Hide()
	fx.viewport.Emit("click")
	fx.viewport.Emit("wheel")
	assert.False(t, fx.floor.Visible(), "later gestures have no effect")
	assert.Len(t, fx.indoor.Selectors, 1)
}

func TestFloorSelector_FirstInteractionWhenAlreadyVisible(t *testing.T) {
	fx := newFixture(0)
	require.NoError(t, fx.floor.Show())
	fx.floor.ShowAfterFirstInteraction()

	fx.viewport.Emit("wheel")
	assert.Len(t, fx.indoor.Selectors, 1, "no second control")
	assert.Equal(t, 0, fx.viewport.ListenerCount())
}

func TestFloorSelector_FirstInteractionArmsOnce(t *testing.T) {
	fx := newFixture(0)
	fx.floor.ShowAfterFirstInteraction()
	fx.floor.ShowAfterFirstInteraction()
	assert.Equal(t, len(GestureEvents), fx.viewport.ListenerCount())
}

func TestFloorSelector_SetFloor(t *testing.T) {
	fx := newFixture(0)
	var changes []string
	fx.floor.OnFloorChanged(func(floor string) { changes = append(changes, floor) })
	require.NoError(t, fx.floor.Show())

	fx.floor.SetFloor("0")
	assert.Empty(t, fx.indoor.SetFloorCalls, "same floor issues no command")
	assert.Empty(t, changes)

	fx.floor.SetFloor("2")
	assert.Equal(t, []string{"2"}, fx.indoor.SetFloorCalls)
	assert.Equal(t, []string{"2"}, changes)

	fx.floor.SetFloor("")
	assert.Len(t, fx.indoor.SetFloorCalls, 1)
}

func TestScope_TeardownReleasesEverythingOnce(t *testing.T) {
	fx := newFixture(0)
	fx.policy.Configure(ParseThresholds("16", "18"), fx.scope)

	for i := 0; i < 3; i++ {
		fx.m.SetZoom(19)
		fx.m.SetZoom(10)
	}
	fx.m.SetZoom(19)
	fx.floor.ShowAfterFirstInteraction()

	fx.scope.Close()

	assert.Equal(t, 0, fx.m.ZoomListeners())
	assert.Equal(t, 0, fx.device.Subscribers())
	assert.Equal(t, 0, fx.indoor.FloorListeners())
	assert.Equal(t, 0, fx.viewport.ListenerCount())

	// Hide after teardown must not double-release.
	fx.floor.Hide()
	assert.Equal(t, 0, fx.scope.Len())
}

func TestSnapshot(t *testing.T) {
	fx := newFixture(0)
	fx.policy.Configure(ParseThresholds("16", "18"), fx.scope)
	fx.m.SetZoom(18)

	assert.Equal(t, State{
		OutlineVisible:        true,
		FloorSelectorVisible:  true,
		FloorSelectorPosition: engine.RightCenter,
	}, Snapshot(fx.policy, fx.floor))
}
