package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/amqp"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

type (
	// Runner executes one aggregation run.
	Runner interface {
		Run(ctx context.Context) (ports.RunResult, error)
	}

	// Pruner drops old stored runs.
	Pruner interface {
		PruneRuns(ctx context.Context, keep int) (int, error)
	}
)

// RefreshWorker turns refresh requests and timer ticks into aggregation runs
type RefreshWorker struct {
	runner   Runner
	pruner   Pruner
	keepRuns int
	logger   *log.Logger

	mu        sync.Mutex
	lastStart time.Time
}

// NewRefreshWorker creates a worker. pruner may be nil; keepRuns below 1
// disables pruning.
func NewRefreshWorker(runner Runner, pruner Pruner, keepRuns int) *RefreshWorker {
	return &RefreshWorker{
		runner:   runner,
		pruner:   pruner,
		keepRuns: keepRuns,
		logger:   log.Default(log.ComponentWorker),
	}
}

// HandleRefresh processes one refresh request from AMQP. Requests issued
// before the start of the last run are already covered by it and skipped.
func (w *RefreshWorker) HandleRefresh(ctx context.Context, msg *amqp.RefreshRequest) error {
	w.mu.Lock()
	last := w.lastStart
	w.mu.Unlock()

	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(last) {
		w.logger.InfoContext(ctx, "Skipping refresh request covered by a later run",
			"requested_by", msg.RequestedBy,
			"requested_at", msg.Timestamp)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing refresh request", "requested_by", msg.RequestedBy)
	_, err := w.RunOnce(ctx)
	return err
}

// RunOnce runs the aggregation and prunes old runs afterwards.
func (w *RefreshWorker) RunOnce(ctx context.Context) (ports.RunResult, error) {
	w.mu.Lock()
	w.lastStart = time.Now()
	w.mu.Unlock()

	res, err := w.runner.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("aggregation run: %w", err)
	}

	if w.pruner != nil && w.keepRuns > 0 {
		removed, err := w.pruner.PruneRuns(ctx, w.keepRuns)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to prune old runs", log.FieldError, err)
		} else if removed > 0 {
			w.logger.InfoContext(ctx, "Pruned old runs", "removed", removed, "kept", w.keepRuns)
		}
	}
	return res, nil
}

// RunPeriodic runs the aggregation every interval until ctx is done.
func (w *RefreshWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}
