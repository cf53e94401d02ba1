package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/backend"
	"github.com/marcosilvestroni/summarize-commits/internal/cli"
	"github.com/marcosilvestroni/summarize-commits/internal/config"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.LoadConfig(log.ComponentWorker)
	if err != nil {
		os.Exit(1)
	}
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("The worker needs the sqlite backend to share snapshots with the server",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	logger.Info("Starting contribgraph-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger, nil).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	refresher := worker.NewRefreshWorker(result.Service, result.Repository, cfg.KeepRuns)

	// On startup, aggregate once when no snapshot has been stored yet
	if _, err := result.Backend.Snapshot(ctx); errors.Is(err, ports.ErrNotReady) {
		logger.Info("No snapshot stored, running startup aggregation")
		if _, err := refresher.RunOnce(ctx); err != nil {
			logger.Error("Startup aggregation failed", log.FieldError, err)
			// Don't exit - queued requests may still succeed
		}
	}

	if result.AMQP != nil {
		go func() {
			if err := result.AMQP.ConsumeRefresh(ctx, refresher.HandleRefresh); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no broker available")
	}

	if cfg.RefreshInterval > 0 {
		go refresher.RunPeriodic(ctx, cfg.RefreshInterval)
		logger.Info("Periodic refresh enabled", "interval", cfg.RefreshInterval)
	} else if result.AMQP == nil {
		logger.Warn("Neither AMQP nor REFRESH_INTERVAL is configured, the worker has nothing to do")
	}

	cli.WaitForShutdown(ctx, done)

	if result.Cleanup != nil {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}
	logger.Info("Worker shutdown complete")
}
