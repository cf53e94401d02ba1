package ports

import (
	"context"
	"errors"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// ErrNotReady is wrapped by every backend error meaning "no aggregate has
// been loaded yet".
var ErrNotReady = errors.New("contributions not loaded")

// RunResult summarizes one aggregation run.
type RunResult struct {
	RunID       string        `json:"run_id"`
	Source      string        `json:"source"`
	FilesRead   int           `json:"files_read"`
	FilesFailed int           `json:"files_failed"`
	Failed      []string      `json:"failed,omitempty"`
	Days        int           `json:"days"`
	Total       int           `json:"total"`
	Undated     int           `json:"undated"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
	// Queued is set when the run was handed to a worker instead of executed.
	Queued bool `json:"queued,omitempty"`
}

// Ports for outbound adapters.
type (
	// ContributionLister answers "list all contribution records".
	ContributionLister interface {
		ListContributions(ctx context.Context) ([]core.ContributionRecord, error)
	}

	// SnapshotReader returns the current aggregate.
	SnapshotReader interface {
		Snapshot(ctx context.Context) (core.Aggregate, error)
	}

	// Refresher re-reads the input and replaces the current aggregate.
	Refresher interface {
		Refresh(ctx context.Context) (RunResult, error)
	}

	// ReportExporter publishes the yearly report somewhere outside the process.
	ReportExporter interface {
		ExportReport(ctx context.Context, summaries []core.YearSummary) error
	}

	// EventPublisher announces finished runs.
	EventPublisher interface {
		PublishSnapshotUpdated(ctx context.Context, res RunResult) error
	}
)
