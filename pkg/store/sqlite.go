package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuemap/pkg/db"
	"venuemap/pkg/model"
)

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	EventStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// sqliteTime matches SQLite's CURRENT_TIMESTAMP layout.
const sqliteTime = "2006-01-02 15:04:05"

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Events ---

func (s *SQLiteStore) SaveEvent(ctx context.Context, e *model.TrackEvent) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	query := `INSERT INTO track_events (category, action, label, non_interaction, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, e.Category, e.Action, e.Label, e.NonInteraction, ts.UTC().Format(sqliteTime)); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]*model.TrackEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT category, action, COALESCE(label, ''), non_interaction, strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM track_events ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*model.TrackEvent
	for rows.Next() {
		var (
			e  model.TrackEvent
			ts string
		)
		if err := rows.Scan(&e.Category, &e.Action, &e.Label, &e.NonInteraction, &ts); err != nil {
			return nil, err
		}
		if t, err := time.ParseInLocation(sqliteTime, ts, time.UTC); err == nil {
			e.Timestamp = t
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CountEvents counts stored events of category, or all events when category is empty.
func (s *SQLiteStore) CountEvents(ctx context.Context, category string) (int, error) {
	var n int
	var err error
	if category == "" {
		err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM track_events").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM track_events WHERE category = ?", category).Scan(&n)
	}
	return n, err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		slog.Warn("Failed to read state", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format(sqliteTime))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
