package details

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuemap/pkg/model"
)

var errMissing = errors.New("missing")

type mapLookup struct {
	byID       map[string]*model.Location
	byExternal map[string]*model.Location
	calls      []string
}

func (m *mapLookup) Location(id string) (*model.Location, error) {
	m.calls = append(m.calls, "id:"+id)
	if l, ok := m.byID[id]; ok {
		return l, nil
	}
	return nil, errMissing
}

func (m *mapLookup) LocationByExternalID(id string) (*model.Location, error) {
	m.calls = append(m.calls, "ext:"+id)
	if l, ok := m.byExternal[id]; ok {
		return l, nil
	}
	return nil, errMissing
}

func TestResolveLocation(t *testing.T) {
	room := &model.Location{ID: "5f0c8a1e2b3c4d5e6f708192", Name: "Room"}
	lookup := &mapLookup{
		byID:       map[string]*model.Location{room.ID: room},
		byExternal: map[string]*model.Location{"R-101": room},
	}

	tests := []struct {
		name     string
		id       string
		wantCall string
		wantErr  bool
	}{
		{"LocationID", room.ID, "id:" + room.ID, false},
		{"ExternalID", "R-101", "ext:R-101", false},
		{"UnknownLocationID", "000000000000000000000000", "id:000000000000000000000000", true},
		{"UnknownExternalID", "R-999", "ext:R-999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup.calls = nil
			loc, err := ResolveLocation(lookup, tt.id)
			assert.Equal(t, []string{tt.wantCall}, lookup.calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, errMissing)
				return
			}
			require.NoError(t, err)
			assert.Same(t, room, loc)
		})
	}
}

type viewCall struct {
	op  string
	arg any
	fit bool
}

type recordingView struct {
	calls []viewCall
}

func (v *recordingView) SetFilter(locations []model.Location, fitView bool) {
	ids := make([]string, 0, len(locations))
	for _, l := range locations {
		ids = append(ids, l.ID)
	}
	v.calls = append(v.calls, viewCall{"filter", ids, fitView})
}

func (v *recordingView) ClearFilter(fitView bool) {
	v.calls = append(v.calls, viewCall{"clear", nil, fitView})
}

func (v *recordingView) SetTitle(title string) {
	v.calls = append(v.calls, viewCall{"title", title, false})
}

func (v *recordingView) PublishVenue(venue *model.Venue) {
	v.calls = append(v.calls, viewCall{"venue", venue.ID, false})
}

type recordingSender struct {
	labels []string
}

func (r *recordingSender) SendEvent(_ context.Context, category, action, label string, _ bool) {
	r.labels = append(r.labels, category+"|"+action+"|"+label)
}

func TestScreen_Lifecycle(t *testing.T) {
	view := &recordingView{}
	s := NewScreen(context.Background(), view, nil, "demo")
	s.SetVenue(&model.Venue{ID: "hq", Name: "HQ"})

	s.Enter(&model.Location{ID: "cafe", Name: "Cafe"})
	assert.Equal(t, []viewCall{
		{"title", "Cafe", false},
		{"filter", []string{"cafe"}, true},
	}, view.calls)
	assert.Equal(t, "cafe", s.Location().ID)

	view.calls = nil
	assert.Equal(t, "demo/hq/search", s.GoBack())
	assert.Equal(t, []viewCall{
		{"title", "", false},
		{"venue", "hq", false},
	}, view.calls)

	view.calls = nil
	s.Leave()
	s.Leave()
	assert.Equal(t, []viewCall{{"clear", nil, false}}, view.calls, "leave clears the filter exactly once")
	assert.Nil(t, s.Location())
}

func TestScreen_GoBackWithCategory(t *testing.T) {
	s := NewScreen(context.Background(), &recordingView{}, nil, "demo")
	s.SetVenue(&model.Venue{ID: "hq"})
	s.SetCategoryFilter("MeetingRooms")
	assert.Equal(t, "demo/hq/search?cat=meetingrooms", s.GoBack())
}

func TestScreen_NoVenueOrLocation(t *testing.T) {
	view := &recordingView{}
	s := NewScreen(context.Background(), view, nil, "demo")

	assert.Empty(t, s.GoBack())
	assert.Empty(t, s.DirectionsRoute())
	s.Enter(nil)
	s.ShowOnMap()
	s.Leave()
	assert.Empty(t, view.calls)

	var nilScreen *Screen
	assert.NotPanics(t, func() {
		nilScreen.SetVenue(&model.Venue{})
		nilScreen.Enter(&model.Location{})
		nilScreen.Leave()
		assert.Empty(t, nilScreen.GoBack())
	})
}

func TestScreen_Analytics(t *testing.T) {
	sender := &recordingSender{}
	s := NewScreen(context.Background(), &recordingView{}, sender, "demo")
	s.SetVenue(&model.Venue{ID: "hq"})
	s.Enter(&model.Location{ID: "cafe", Name: "Cafe"})

	s.ShowOnMap()
	assert.Equal(t, "demo/hq/route/destination/cafe", s.DirectionsRoute())

	assert.Equal(t, []string{
		"Details page|Show on map button|Show on map button was clicked",
		`Directions|Clicked "Get Directions"|"Cafe" - cafe`,
	}, sender.labels)
}
