// Package tracker records analytics events: counted in memory, written to the
// event log and persisted through an optional sink.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"venuemap/pkg/logging"
	"venuemap/pkg/model"
)

// EventSink persists analytics events.
type EventSink interface {
	SaveEvent(ctx context.Context, e *model.TrackEvent) error
}

// Tracker tracks analytics usage per category.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*CategoryStats
	sink  EventSink
	now   func() time.Time
}

// CategoryStats holds counters for one event category.
// Fields are accessed atomically.
type CategoryStats struct {
	Events         int64 `json:"events"`
	NonInteraction int64 `json:"non_interaction"`
	SinkFailures   int64 `json:"sink_failures"`
}

// New creates a new Tracker. sink may be nil.
func New(sink EventSink) *Tracker {
	return &Tracker{
		stats: make(map[string]*CategoryStats),
		sink:  sink,
		now:   time.Now,
	}
}

// getStats returns the stats object for a category, creating it if needed.
func (t *Tracker) getStats(category string) *CategoryStats {
	t.mu.RLock()
	s, ok := t.stats[category]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[category]; ok {
		return s
	}
	s = &CategoryStats{}
	t.stats[category] = s
	return s
}

// SendEvent records one analytics event. Persistence failures are counted and
// logged but never returned: analytics must not break the map.
func (t *Tracker) SendEvent(ctx context.Context, category, action, label string, nonInteraction bool) {
	e := &model.TrackEvent{
		Category:       category,
		Action:         action,
		Label:          label,
		NonInteraction: nonInteraction,
		Timestamp:      t.now(),
	}

	s := t.getStats(category)
	atomic.AddInt64(&s.Events, 1)
	if nonInteraction {
		atomic.AddInt64(&s.NonInteraction, 1)
	}

	logging.LogEvent(e)

	if t.sink == nil {
		return
	}
	if err := t.sink.SaveEvent(ctx, e); err != nil {
		atomic.AddInt64(&s.SinkFailures, 1)
		slog.Warn("Failed to persist analytics event", "category", category, "action", action, "error", err)
	}
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]CategoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]CategoryStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = CategoryStats{
			Events:         atomic.LoadInt64(&v.Events),
			NonInteraction: atomic.LoadInt64(&v.NonInteraction),
			SinkFailures:   atomic.LoadInt64(&v.SinkFailures),
		}
	}
	return result
}

// Reset zeroes every counter but keeps the known categories.
func (t *Tracker) Reset() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, v := range t.stats {
		atomic.StoreInt64(&v.Events, 0)
		atomic.StoreInt64(&v.NonInteraction, 0)
		atomic.StoreInt64(&v.SinkFailures, 0)
	}
}
