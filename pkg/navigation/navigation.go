// Package navigation publishes cross-screen state: where "back" leads and the page title.
package navigation

import (
	"context"
	"log/slog"

	"venuemap/pkg/model"
	"venuemap/pkg/stream"
)

// ReturnTo publishes "go back to" targets. It never replays: a navigation UI
// mounted after a publication must not act on a stale target.
type ReturnTo struct {
	s      *stream.Broadcast[model.ReturnToTarget]
	logger *slog.Logger
}

// NewReturnTo creates an empty return-to broadcaster.
func NewReturnTo() *ReturnTo {
	return &ReturnTo{
		s:      stream.NewBroadcast[model.ReturnToTarget](stream.DefaultBuffer),
		logger: slog.With("component", "return_to"),
	}
}

// PublishLocation designates loc as the return target, placed at anchor.
func (r *ReturnTo) PublishLocation(loc *model.Location, anchor model.Coordinate) {
	if loc == nil {
		return
	}
	r.publish(model.ReturnToTarget{Name: loc.Name, Coordinate: anchor, IsVenue: false})
}

// PublishVenue designates v as the return target. A nil venue publishes nothing.
func (r *ReturnTo) PublishVenue(v *model.Venue) {
	if v == nil {
		return
	}
	r.publish(model.ReturnToTarget{Name: v.Name, Coordinate: v.Anchor, IsVenue: true})
}

func (r *ReturnTo) publish(t model.ReturnToTarget) {
	r.logger.Debug("Return target set", "name", t.Name, "venue", t.IsVenue)
	r.s.Publish(t)
}

// Subscribe streams targets published from now on until ctx ends.
func (r *ReturnTo) Subscribe(ctx context.Context) <-chan model.ReturnToTarget {
	return r.s.Subscribe(ctx)
}

// Close ends every subscription.
func (r *ReturnTo) Close() { r.s.Close() }

// Title publishes the page title with replay of the latest value.
type Title struct {
	s            *stream.Latest[string]
	defaultTitle string
}

// NewTitle creates a title broadcast falling back to defaultTitle.
// Nothing is published until the first SetTitle.
func NewTitle(defaultTitle string) *Title {
	return &Title{s: stream.NewLatest[string](stream.DefaultBuffer), defaultTitle: defaultTitle}
}

// SetTitle publishes title, or the default title when title is empty.
// With no default configured an empty title publishes nothing.
func (t *Title) SetTitle(title string) {
	if title == "" {
		title = t.defaultTitle
	}
	if title == "" {
		return
	}
	t.s.Publish(title)
}

// Current returns the latest published title.
func (t *Title) Current() (string, bool) { return t.s.Value() }

// Subscribe streams the latest title, if any, followed by every update until ctx ends.
func (t *Title) Subscribe(ctx context.Context) <-chan string {
	return t.s.Subscribe(ctx)
}

// Close ends every subscription.
func (t *Title) Close() { t.s.Close() }
