package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcosilvestroni/summarize-commits/internal/amqp"
	"github.com/marcosilvestroni/summarize-commits/internal/cli"
	apphttp "github.com/marcosilvestroni/summarize-commits/internal/http"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve subcommand: the dashboard and JSON API.
func NewServeCommand() *cobra.Command {
	var (
		o       overrides
		proxies []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the contribution dashboard and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), o, proxies)
		},
	}

	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "read CSV files from this directory instead of CSV_DIR")
	cmd.Flags().StringSliceVar(&proxies, "trusted-proxy", nil, "CIDR of a reverse proxy whose X-Forwarded-For is trusted (repeatable)")

	return cmd
}

func runServe(ctx context.Context, o overrides, proxies []string) error {
	m := metrics.New()
	s, err := openSession(ctx, o, true, m)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := apphttp.NewServer(":"+s.cfg.Port, s.result.Backend, apphttp.Options{
		Logger:         s.logger.WithComponent(log.ComponentHTTP),
		Metrics:        m,
		CacheTTL:       s.cfg.CacheTTL,
		TrustedProxies: proxies,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(s.logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	go initialLoad(runCtx, s, srv)

	queued := s.result.AMQP != nil
	if queued {
		go func() {
			err := s.result.AMQP.ConsumeSnapshotUpdated(runCtx, func(ctx context.Context, ev *amqp.SnapshotUpdated) {
				srv.InvalidateCaches()
				s.logger.InfoContext(ctx, "Snapshot updated by worker",
					log.FieldRunID, ev.RunID, log.FieldTotal, ev.Total)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Snapshot event consumer stopped", log.FieldError, err)
			}
		}()
	}
	if s.cfg.RefreshInterval > 0 && !queued {
		w := worker.NewRefreshWorker(invalidating{s.result.Service, srv}, pruner(s), s.cfg.KeepRuns)
		go w.RunPeriodic(runCtx, s.cfg.RefreshInterval)
		s.logger.Info("Periodic refresh enabled", "interval", s.cfg.RefreshInterval)
	}

	s.logger.Info("Starting contribgraph server",
		"port", s.cfg.Port,
		"backend", s.cfg.DataBackend,
		"queued_refresh", queued)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server error", log.FieldError, err, "port", s.cfg.Port)
		return err
	}

	cli.WaitForShutdown(runCtx, done)
	s.logger.Info("Server stopped gracefully")
	return nil
}

// initialLoad aggregates the input once at startup when nothing is stored
// yet. Until it finishes the dashboard shows its loading state.
func initialLoad(ctx context.Context, s *session, srv *apphttp.Server) {
	if _, err := s.result.Backend.Snapshot(ctx); !errors.Is(err, ports.ErrNotReady) {
		return
	}
	s.logger.InfoContext(ctx, "No contributions loaded, starting initial refresh")
	res, err := s.result.Backend.Refresh(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Initial refresh failed",
			log.FieldOperation, log.OpStartup, log.FieldError, err)
		return
	}
	srv.InvalidateCaches()
	s.logger.InfoContext(ctx, "Initial refresh done",
		log.FieldRunID, res.RunID, log.FieldTotal, res.Total, "queued", res.Queued)
}

// invalidating drops the server caches after every successful run.
type invalidating struct {
	runner worker.Runner
	srv    *apphttp.Server
}

func (i invalidating) Run(ctx context.Context) (ports.RunResult, error) {
	res, err := i.runner.Run(ctx)
	if err == nil {
		i.srv.InvalidateCaches()
	}
	return res, err
}

// pruner returns the sqlite repository when there is one.
func pruner(s *session) worker.Pruner {
	if s.result.Repository == nil {
		return nil
	}
	return s.result.Repository
}
