package adapters

import (
	"context"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/memory"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// MemoryAdapter serves the aggregate held in memory; a refresh re-reads the
// CSV input in process.
type MemoryAdapter struct {
	store     *memory.Store
	refresher ports.Refresher
}

func NewMemoryAdapter(store *memory.Store, refresher ports.Refresher) *MemoryAdapter {
	return &MemoryAdapter{store: store, refresher: refresher}
}

func (a *MemoryAdapter) ListContributions(ctx context.Context) ([]core.ContributionRecord, error) {
	return a.store.ListContributions(ctx)
}

func (a *MemoryAdapter) Snapshot(ctx context.Context) (core.Aggregate, error) {
	return a.store.Snapshot(ctx)
}

func (a *MemoryAdapter) Refresh(ctx context.Context) (ports.RunResult, error) {
	return a.refresher.Refresh(ctx)
}
