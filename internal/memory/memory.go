package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// ErrEmptyStore is returned before the first aggregate has been stored.
var ErrEmptyStore = fmt.Errorf("memory store is empty: %w", ports.ErrNotReady)

// Store holds the latest aggregate. Readers see either the previous or the
// next aggregate, never a mix.
type Store struct {
	mu        sync.RWMutex
	agg       core.Aggregate
	runID     string
	updatedAt time.Time
	loaded    bool
}

func New() *Store {
	return &Store{}
}

// Set replaces the held aggregate.
func (s *Store) Set(agg core.Aggregate, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg = agg
	s.runID = runID
	s.updatedAt = time.Now()
	s.loaded = true
}

// Snapshot returns the held aggregate.
func (s *Store) Snapshot(_ context.Context) (core.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return core.Aggregate{}, ErrEmptyStore
	}
	return s.agg, nil
}

// ListContributions returns the held records, date descending.
func (s *Store) ListContributions(ctx context.Context) ([]core.ContributionRecord, error) {
	agg, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Records(), nil
}

// RunID returns the id of the run that produced the held aggregate.
func (s *Store) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// UpdatedAt returns when the aggregate was last replaced.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

var (
	_ ports.ContributionLister = (*Store)(nil)
	_ ports.SnapshotReader     = (*Store)(nil)
)
