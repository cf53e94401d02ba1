package adapters

import (
	"context"
	"sync"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

// SnapshotRepository is the read side of storage.SQLiteRepository.
type SnapshotRepository interface {
	LatestRun(ctx context.Context) (storage.RunInfo, error)
	LatestSnapshot(ctx context.Context) (core.Aggregate, storage.RunInfo, error)
}

// SQLiteAdapter serves the latest stored snapshot and delegates refreshes,
// either to an in-process run or to a worker through the queue.
type SQLiteAdapter struct {
	storage   SnapshotRepository
	refresher ports.Refresher

	// last loaded snapshot, reused while it is still the newest run
	mu    sync.Mutex
	runID string
	agg   core.Aggregate
}

func NewSQLiteAdapter(storage SnapshotRepository, refresher ports.Refresher) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage:   storage,
		refresher: refresher,
	}
}

// ListContributions implements ports.ContributionLister
func (a *SQLiteAdapter) ListContributions(ctx context.Context) ([]core.ContributionRecord, error) {
	agg, err := a.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Records(), nil
}

// Snapshot implements ports.SnapshotReader. The contributions of a run are
// loaded once; later calls only check which run is the newest.
func (a *SQLiteAdapter) Snapshot(ctx context.Context) (core.Aggregate, error) {
	run, err := a.storage.LatestRun(ctx)
	if err != nil {
		return core.Aggregate{}, err
	}

	a.mu.Lock()
	if a.runID != "" && a.runID == run.ID {
		agg := a.agg
		a.mu.Unlock()
		return agg, nil
	}
	a.mu.Unlock()

	agg, info, err := a.storage.LatestSnapshot(ctx)
	if err != nil {
		return core.Aggregate{}, err
	}

	a.mu.Lock()
	a.runID, a.agg = info.ID, agg
	a.mu.Unlock()
	return agg, nil
}

// Refresh implements ports.Refresher
func (a *SQLiteAdapter) Refresh(ctx context.Context) (ports.RunResult, error) {
	return a.refresher.Refresh(ctx)
}
