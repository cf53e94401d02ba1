package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcosilvestroni/summarize-commits/internal/artifact"
	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/ingest"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

// maxLoggedUndated bounds the undated keys listed in one log record.
const maxLoggedUndated = 10

type (
	// SnapshotSaver persists the aggregate of a run.
	SnapshotSaver interface {
		SaveSnapshot(ctx context.Context, run storage.RunInfo, agg core.Aggregate) error
	}

	// SnapshotHolder receives the aggregate once a run has succeeded.
	SnapshotHolder interface {
		Set(agg core.Aggregate, runID string)
	}

	// ArtifactUploader copies the artifact to object storage.
	ArtifactUploader interface {
		Upload(ctx context.Context, runID string, agg core.Aggregate) error
	}
)

// Options wires the optional collaborators of an AggregationService. Nil
// fields disable the corresponding step.
type Options struct {
	ArtifactPath string
	Holder       SnapshotHolder
	Store        SnapshotSaver
	Uploader     ArtifactUploader
	Exporter     ports.ReportExporter
	Publisher    ports.EventPublisher
	Metrics      *metrics.Metrics
	Logger       *log.Logger
}

// AggregationService runs the pipeline: read CSV files, aggregate, write the
// artifact, then hand the result to the configured sinks. Runs are
// serialized.
type AggregationService struct {
	source ingest.Source
	reader *ingest.Reader
	opts   Options
	logger *log.Logger
	slog   *log.StructuredLogger

	mu    sync.Mutex
	newID func() string
}

var _ ports.Refresher = (*AggregationService)(nil)

func NewAggregationService(source ingest.Source, reader *ingest.Reader, opts Options) *AggregationService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentAggregate)
	}
	return &AggregationService{
		source: source,
		reader: reader,
		opts:   opts,
		logger: logger,
		slog:   log.NewStructuredLogger(logger),
		newID:  uuid.NewString,
	}
}

// Refresh implements ports.Refresher.
func (s *AggregationService) Refresh(ctx context.Context) (ports.RunResult, error) {
	return s.Run(ctx)
}

// Run executes one aggregation run. Unreadable files are reported in the
// result and do not fail the run; a failing sink does.
func (s *AggregationService) Run(ctx context.Context) (ports.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := ports.RunResult{RunID: s.newID(), Source: s.source.String()}

	agg, err := s.run(ctx, &res)
	res.Duration = time.Since(start)
	res.FinishedAt = time.Now()
	s.opts.Metrics.ObserveRun(err, res.Duration, res.FilesRead, res.FilesFailed, res.Days, res.Total, res.Undated)
	if err != nil {
		s.slog.LogError(ctx, "Aggregation run failed", err, log.ComponentAggregate, log.OpAggregate,
			log.NewFields().WithRun(res.RunID, res.FilesRead, res.FilesFailed, res.Days, res.Total))
		return res, err
	}

	s.slog.LogRunCompleted(ctx, res.RunID, res.FilesRead, res.FilesFailed, res.Days, res.Total, res.Undated)
	s.afterRun(ctx, res, agg)
	return res, nil
}

func (s *AggregationService) run(ctx context.Context, res *ports.RunResult) (core.Aggregate, error) {
	files, failed, err := s.reader.ReadAll(ctx, s.source)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("read input: %w", err)
	}
	res.FilesRead = len(files)
	res.FilesFailed = len(failed)
	for _, f := range failed {
		res.Failed = append(res.Failed, f.Name)
	}

	agg := core.AggregateFiles(files)
	res.Days = agg.Len()
	res.Total = agg.Total()

	if undated := agg.Undated(); len(undated) > 0 {
		res.Undated = len(undated)
		shown := undated
		if len(shown) > maxLoggedUndated {
			shown = shown[:maxLoggedUndated]
		}
		s.logger.WarnContext(ctx, "Dates without a year prefix kept as literal keys",
			log.FieldRunID, res.RunID,
			log.FieldUndated, len(undated),
			"keys", shown)
	}

	// The artifact on disk is replaced only once every other durable sink
	// has accepted the run.
	var staged *artifact.Staged
	if s.opts.ArtifactPath != "" {
		var err error
		if staged, err = artifact.Stage(s.opts.ArtifactPath, agg); err != nil {
			return core.Aggregate{}, err
		}
		defer staged.Discard()
	}

	if s.opts.Store != nil {
		run := storage.RunInfo{
			ID:          res.RunID,
			CreatedAt:   time.Now(),
			Source:      res.Source,
			FilesRead:   res.FilesRead,
			FilesFailed: res.FilesFailed,
		}
		if err := s.opts.Store.SaveSnapshot(ctx, run, agg); err != nil {
			return core.Aggregate{}, fmt.Errorf("save snapshot: %w", err)
		}
	}

	if s.opts.Uploader != nil {
		if err := s.opts.Uploader.Upload(ctx, res.RunID, agg); err != nil {
			return core.Aggregate{}, fmt.Errorf("upload artifact: %w", err)
		}
	}

	if staged != nil {
		if err := staged.Commit(); err != nil {
			return core.Aggregate{}, err
		}
	}

	if s.opts.Holder != nil {
		s.opts.Holder.Set(agg, res.RunID)
	}
	return agg, nil
}

// afterRun notifies the best-effort sinks. Their failures are logged only.
func (s *AggregationService) afterRun(ctx context.Context, res ports.RunResult, agg core.Aggregate) {
	if s.opts.Exporter != nil {
		if err := s.opts.Exporter.ExportReport(ctx, core.BuildReport(agg)); err != nil {
			s.slog.LogError(ctx, "Report export failed", err, log.ComponentSheets, log.OpExport,
				log.NewFields().WithRun(res.RunID, res.FilesRead, res.FilesFailed, res.Days, res.Total))
		}
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.PublishSnapshotUpdated(ctx, res); err != nil {
			s.slog.LogError(ctx, "Snapshot event not published", err, log.ComponentAMQP, log.OpPublish,
				log.NewFields().WithRun(res.RunID, res.FilesRead, res.FilesFailed, res.Days, res.Total))
		}
	}
}
