package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/marcosilvestroni/summarize-commits/internal/adapters"
	"github.com/marcosilvestroni/summarize-commits/internal/amqp"
	"github.com/marcosilvestroni/summarize-commits/internal/artifact"
	"github.com/marcosilvestroni/summarize-commits/internal/config"
	"github.com/marcosilvestroni/summarize-commits/internal/gsheets"
	"github.com/marcosilvestroni/summarize-commits/internal/ingest"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/memory"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/objectstore"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/services"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new backend factory. m may be nil.
func NewFactory(logger *log.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	// Initialize SQLite repository
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Initialize AMQP client (optional)
	amqpClient := f.amqpClient(config)

	opts, err := f.serviceOptions(ctx, config)
	if err != nil {
		_ = sqliteRepo.Close()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		return nil, err
	}
	opts.Store = sqliteRepo
	if amqpClient != nil {
		opts.Publisher = amqpClient
	}

	service, err := f.newService(config, opts)
	if err != nil {
		_ = sqliteRepo.Close()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		return nil, err
	}

	var refresher ports.Refresher = service
	if amqpClient != nil && config.QueueRefreshes {
		refresher = adapters.NewQueueRefresher(amqpClient, "http")
	}
	adapter := adapters.NewSQLiteAdapter(sqliteRepo, refresher)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil,
		"queued_refresh", amqpClient != nil && config.QueueRefreshes)

	return &BackendResult{
		Backend:    adapter,
		Service:    service,
		Repository: sqliteRepo,
		AMQP:       amqpClient,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, sqliteRepo.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New()

	opts, err := f.serviceOptions(ctx, config)
	if err != nil {
		return nil, err
	}
	opts.Holder = store

	service, err := f.newService(config, opts)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized memory backend", log.FieldSource, config.CSVSource)

	return &BackendResult{
		Backend: adapters.NewMemoryAdapter(store, service),
		Service: service,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

func (f *DefaultFactory) amqpClient(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without queue", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// serviceOptions builds the sinks shared by both backends.
func (f *DefaultFactory) serviceOptions(ctx context.Context, config Config) (services.Options, error) {
	opts := services.Options{
		ArtifactPath: config.ArtifactPath,
		Metrics:      f.metrics,
		Logger:       f.logger.WithComponent(log.ComponentAggregate),
	}

	if config.ArtifactBucket != "" {
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  config.S3Endpoint,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
			Bucket:    config.ArtifactBucket,
			UseSSL:    config.S3UseSSL,
		})
		if err != nil {
			return services.Options{}, fmt.Errorf("failed to initialize artifact bucket: %w", err)
		}
		opts.Uploader = artifact.NewUploader(store, filepath.Base(config.ArtifactPath))
	}

	if config.GoogleSpreadsheetID != "" {
		exporter, err := gsheets.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, config.GoogleCredentialsJSON)
		if err != nil {
			return services.Options{}, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
		}
		opts.Exporter = exporter
		f.logger.Info("Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	}

	return opts, nil
}

func (f *DefaultFactory) newService(config Config, opts services.Options) (*services.AggregationService, error) {
	source, err := NewSource(config)
	if err != nil {
		return nil, err
	}
	reader := ingest.NewReader(config.IngestConcurrency, f.logger.WithComponent(log.ComponentIngest))
	return services.NewAggregationService(source, reader, opts), nil
}

// NewSource returns the CSV source selected by config.
func NewSource(c Config) (ingest.Source, error) {
	switch c.CSVSource {
	case config.SourceS3:
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Bucket:    c.S3Bucket,
			UseSSL:    c.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize CSV bucket: %w", err)
		}
		return ingest.S3Source{Store: store, Prefix: c.S3Prefix}, nil
	case config.SourceDir:
		return ingest.DirSource{Dir: c.CSVDir}, nil
	default:
		return nil, fmt.Errorf("invalid CSV source: %q", c.CSVSource)
	}
}
