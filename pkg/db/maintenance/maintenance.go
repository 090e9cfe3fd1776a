package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"venuemap/pkg/db"
	"venuemap/pkg/store"
)

const catalogStateKey = "venue_catalog_mtime"

// Report summarizes one maintenance run.
type Report struct {
	CatalogChanged bool
	EventsPruned   int64
}

// Run executes all maintenance tasks: catalog change detection and event pruning.
// Failures are logged, never returned: maintenance must not block startup.
func Run(ctx context.Context, s store.StateStore, d *db.DB, catalogPath string, retention time.Duration) Report {
	slog.Info("Starting database maintenance...")
	var r Report

	changed, err := checkCatalog(ctx, s, catalogPath)
	if err != nil {
		slog.Error("Catalog check failed", "error", err)
	} else {
		r.CatalogChanged = changed
		if changed {
			slog.Info("Venue catalog changed since last run", "path", catalogPath)
		}
	}

	if retention > 0 {
		n, err := d.PruneEvents(retention)
		if err != nil {
			slog.Error("Event pruning failed", "error", err)
		} else {
			r.EventsPruned = n
			slog.Info("Event pruning completed", "removed", n)
		}
	}

	return r
}

// checkCatalog compares the catalog's modification time against the one stored by the previous run.
func checkCatalog(ctx context.Context, s store.StateStore, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil // No catalog, nothing to compare
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat catalog: %w", err)
	}

	mtime := info.ModTime().UTC().Format(time.RFC3339Nano)
	stored, found := s.GetState(ctx, catalogStateKey)
	if found && stored == mtime {
		return false, nil
	}

	if err := s.SetState(ctx, catalogStateKey, mtime); err != nil {
		return false, fmt.Errorf("failed to update state: %w", err)
	}
	return true, nil
}
