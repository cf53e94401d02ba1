package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcosilvestroni/summarize-commits/internal/artifact"
	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/ingest"
	"github.com/marcosilvestroni/summarize-commits/internal/memory"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

type fakeSaver struct {
	runs []storage.RunInfo
	err  error
}

func (f *fakeSaver) SaveSnapshot(_ context.Context, run storage.RunInfo, _ core.Aggregate) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

type fakeExporter struct {
	summaries []core.YearSummary
	err       error
}

func (f *fakeExporter) ExportReport(_ context.Context, s []core.YearSummary) error {
	f.summaries = s
	return f.err
}

type fakePublisher struct {
	events []ports.RunResult
	err    error
}

func (f *fakePublisher) PublishSnapshotUpdated(_ context.Context, res ports.RunResult) error {
	f.events = append(f.events, res)
	return f.err
}

func inputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"contributions_report_alpha.csv":  "Date,Hash\n2024-03-01,a\n",
		"contributions_report_beta.csv":   "Date,Hash\n2024-03-01,b\n2024-03-02,c\nlater,d\n",
		"contributions_report_broken.csv": "Date,Hash\n2024-03-01\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newService(t *testing.T, dir string, opts Options) *AggregationService {
	t.Helper()
	svc := NewAggregationService(ingest.DirSource{Dir: dir}, ingest.NewReader(2, nil), opts)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return svc
}

func TestRunWiresEverySink(t *testing.T) {
	out := filepath.Join(t.TempDir(), "contributions.json")
	holder := memory.New()
	saver := &fakeSaver{}
	exporter := &fakeExporter{}
	publisher := &fakePublisher{}
	m := metrics.New()

	svc := newService(t, inputDir(t), Options{
		ArtifactPath: out,
		Holder:       holder,
		Store:        saver,
		Exporter:     exporter,
		Publisher:    publisher,
		Metrics:      m,
	})

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 2, res.FilesRead)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, []string{"contributions_report_broken.csv"}, res.Failed)
	assert.Equal(t, 3, res.Days)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.Undated)

	onDisk, err := artifact.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 4, onDisk.Total())

	held, err := holder.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, onDisk.Records(), held.Records())
	assert.Equal(t, "run-1", holder.RunID())

	require.Len(t, saver.runs, 1)
	assert.Equal(t, "run-1", saver.runs[0].ID)

	require.Len(t, exporter.summaries, 1)
	assert.Equal(t, 2024, exporter.summaries[0].Year)
	assert.Equal(t, 3, exporter.summaries[0].Total)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, 4, publisher.events[0].Total)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedDates))
}

func TestRunStoreFailureKeepsPreviousSnapshot(t *testing.T) {
	holder := memory.New()
	holder.Set(core.Aggregate{}, "previous")
	m := metrics.New()

	svc := newService(t, inputDir(t), Options{
		Holder:  holder,
		Store:   &fakeSaver{err: errors.New("disk full")},
		Metrics: m,
	})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "save snapshot")
	assert.Equal(t, "previous", holder.RunID())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
}

func TestRunFailureKeepsPreviousArtifact(t *testing.T) {
	out := filepath.Join(t.TempDir(), "contributions.json")
	require.NoError(t, os.WriteFile(out, []byte("[]\n"), 0o644))

	svc := newService(t, inputDir(t), Options{
		ArtifactPath: out,
		Store:        &fakeSaver{err: errors.New("disk full")},
	})
	_, err := svc.Run(context.Background())
	require.Error(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staged artifact must be removed")
}

func TestRunBestEffortSinksDoNotFail(t *testing.T) {
	svc := newService(t, inputDir(t), Options{
		Exporter:  &fakeExporter{err: errors.New("quota")},
		Publisher: &fakePublisher{err: errors.New("broker down")},
	})
	_, err := svc.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunMissingInputDirectory(t *testing.T) {
	svc := newService(t, filepath.Join(t.TempDir(), "missing"), Options{})
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunEmptyInputWritesEmptyArtifact(t *testing.T) {
	out := filepath.Join(t.TempDir(), "contributions.json")
	svc := newService(t, t.TempDir(), Options{ArtifactPath: out})

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(b))
}
