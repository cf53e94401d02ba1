// Package commands implements the contribgraph subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcosilvestroni/summarize-commits/internal/backend"
	"github.com/marcosilvestroni/summarize-commits/internal/cli"
	"github.com/marcosilvestroni/summarize-commits/internal/config"
	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// overrides are the flags shared by commands that read the input.
type overrides struct {
	dir      string
	artifact string
}

func (o overrides) apply(cfg *config.Config) {
	if o.dir != "" {
		cfg.CSVSource = config.SourceDir
		cfg.CSVDir = o.dir
	}
	if o.artifact != "" {
		cfg.ArtifactPath = o.artifact
	}
}

// session is a configured backend plus what is needed to tear it down.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	result *backend.BackendResult
}

func (s *session) Close() {
	if s.result == nil || s.result.Cleanup == nil {
		return
	}
	if err := s.result.Cleanup(); err != nil {
		s.logger.Error("Backend cleanup failed", log.FieldError, err)
	}
}

func openSession(ctx context.Context, o overrides, queue bool, m *metrics.Metrics) (*session, error) {
	cfg, logger, err := cli.LoadConfig(log.ComponentApp)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.QueueRefreshes = queue

	result, err := backend.NewFactory(logger, m).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return &session{cfg: cfg, logger: logger, result: result}, nil
}

// aggregate returns the stored snapshot, running the pipeline first when
// there is none or when fresh is set.
func (s *session) aggregate(ctx context.Context, fresh bool) (core.Aggregate, error) {
	if !fresh {
		agg, err := s.result.Backend.Snapshot(ctx)
		if err == nil {
			return agg, nil
		}
		if !errors.Is(err, ports.ErrNotReady) {
			return core.Aggregate{}, err
		}
	}
	if _, err := s.result.Service.Run(ctx); err != nil {
		return core.Aggregate{}, err
	}
	return s.result.Backend.Snapshot(ctx)
}

// filterYear keeps the summary of year, or all of them when year is 0.
func filterYear(summaries []core.YearSummary, year int) []core.YearSummary {
	if year == 0 {
		return summaries
	}
	for _, s := range summaries {
		if s.Year == year {
			return []core.YearSummary{s}
		}
	}
	return nil
}
