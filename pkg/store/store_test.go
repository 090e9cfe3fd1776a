package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"venuemap/pkg/db"
	"venuemap/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}

	store := NewSQLiteStore(d)
	cleanup := func() { d.Close() }
	return store, cleanup
}

// =============================================================================
// EventStore Tests
// =============================================================================

func TestEventStore_RecentEvents(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		saved      int
		limit      int
		wantCount  int
		wantNewest string
	}{
		{"Empty", 0, 10, 0, ""},
		{"UnderLimit", 3, 10, 3, "action-2"},
		{"OverLimit", 5, 2, 2, "action-4"},
		{"DefaultLimit", 3, 0, 3, "action-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := setupTestStore(t)
			defer cleanup()

			for i := 0; i < tt.saved; i++ {
				e := &model.TrackEvent{
					Category:  "cat",
					Action:    "action-" + string(rune('0'+i)),
					Timestamp: base.Add(time.Duration(i) * time.Minute),
				}
				if err := store.SaveEvent(ctx, e); err != nil {
					t.Fatalf("SaveEvent failed: %v", err)
				}
			}

			events, err := store.RecentEvents(ctx, tt.limit)
			if err != nil {
				t.Fatalf("RecentEvents failed: %v", err)
			}
			if len(events) != tt.wantCount {
				t.Fatalf("Expected %d events, got %d", tt.wantCount, len(events))
			}
			if tt.wantCount > 0 && events[0].Action != tt.wantNewest {
				t.Errorf("Expected newest %q first, got %q", tt.wantNewest, events[0].Action)
			}
		})
	}
}

func TestEventStore_CountEvents(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	for _, cat := range []string{"Floor selector", "Floor selector", "Details"} {
		if err := store.SaveEvent(ctx, &model.TrackEvent{Category: cat, Action: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		category string
		want     int
	}{
		{"", 3},
		{"Floor selector", 2},
		{"Details", 1},
		{"Unknown", 0},
	}
	for _, tt := range tests {
		got, err := store.CountEvents(ctx, tt.category)
		if err != nil {
			t.Fatalf("CountEvents(%q) failed: %v", tt.category, err)
		}
		if got != tt.want {
			t.Errorf("CountEvents(%q) = %d, want %d", tt.category, got, tt.want)
		}
	}
}
