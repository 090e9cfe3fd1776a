package store

import (
	"context"

	"venuemap/pkg/model"
)

// EventStore handles analytics event persistence.
type EventStore interface {
	SaveEvent(ctx context.Context, e *model.TrackEvent) error
	RecentEvents(ctx context.Context, limit int) ([]*model.TrackEvent, error)
	CountEvents(ctx context.Context, category string) (int, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
