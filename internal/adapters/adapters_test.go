package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/memory"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

type fakeRepo struct {
	agg   core.Aggregate
	runID string
	err   error
	loads int
}

func (f *fakeRepo) LatestRun(context.Context) (storage.RunInfo, error) {
	if f.err != nil {
		return storage.RunInfo{}, f.err
	}
	return storage.RunInfo{ID: f.runID}, nil
}

func (f *fakeRepo) LatestSnapshot(context.Context) (core.Aggregate, storage.RunInfo, error) {
	if f.err != nil {
		return core.Aggregate{}, storage.RunInfo{}, f.err
	}
	f.loads++
	// Rebuilt on every load, like the sqlite repository does.
	return core.FromRecords(f.agg.Records()), storage.RunInfo{ID: f.runID}, nil
}

type stubRefresher struct{ calls int }

func (s *stubRefresher) Refresh(context.Context) (ports.RunResult, error) {
	s.calls++
	return ports.RunResult{RunID: "x"}, nil
}

type stubPublisher struct {
	by  string
	err error
}

func (s *stubPublisher) PublishRefresh(_ context.Context, by string) error {
	s.by = by
	return s.err
}

func sampleAgg() core.Aggregate {
	return core.AggregateFiles([]core.File{{
		Name: "contributions_report_x.csv",
		Rows: []core.Row{{core.DateColumn: "2024-01-01"}},
	}})
}

func TestSQLiteAdapter(t *testing.T) {
	ref := &stubRefresher{}
	a := NewSQLiteAdapter(&fakeRepo{agg: sampleAgg(), runID: "r1"}, ref)

	agg, err := a.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Total())

	recs, err := a.ListContributions(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	res, err := a.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", res.RunID)
	assert.Equal(t, 1, ref.calls)
}

func TestSQLiteAdapterReloadsOnNewRun(t *testing.T) {
	repo := &fakeRepo{agg: sampleAgg(), runID: "r1"}
	a := NewSQLiteAdapter(repo, &stubRefresher{})
	ctx := context.Background()

	first, err := a.Snapshot(ctx)
	require.NoError(t, err)
	again, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loads)
	assert.Equal(t, first.Stamp(), again.Stamp())

	repo.runID = "r2"
	repo.agg = core.AggregateFiles([]core.File{{
		Name: "contributions_report_x.csv",
		Rows: []core.Row{{core.DateColumn: "2024-01-01"}, {core.DateColumn: "2024-01-02"}},
	}})
	next, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
	assert.Equal(t, 2, next.Total())
	assert.NotEqual(t, first.Stamp(), next.Stamp())
}

func TestSQLiteAdapterNotReady(t *testing.T) {
	a := NewSQLiteAdapter(&fakeRepo{err: storage.ErrNoSnapshot}, &stubRefresher{})
	_, err := a.Snapshot(context.Background())
	assert.ErrorIs(t, err, ports.ErrNotReady)
}

func TestMemoryAdapter(t *testing.T) {
	store := memory.New()
	a := NewMemoryAdapter(store, &stubRefresher{})

	_, err := a.Snapshot(context.Background())
	assert.ErrorIs(t, err, ports.ErrNotReady)

	store.Set(sampleAgg(), "r1")
	recs, err := a.ListContributions(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestQueueRefresher(t *testing.T) {
	pub := &stubPublisher{}
	res, err := NewQueueRefresher(pub, "http").Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, "http", pub.by)

	_, err = NewQueueRefresher(&stubPublisher{err: errors.New("down")}, "http").Refresh(context.Background())
	assert.ErrorContains(t, err, "queue refresh")
}
