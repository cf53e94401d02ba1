package backend

import (
	"context"

	"github.com/marcosilvestroni/summarize-commits/internal/amqp"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
	"github.com/marcosilvestroni/summarize-commits/internal/services"
	"github.com/marcosilvestroni/summarize-commits/internal/storage"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	ports.ContributionLister
	ports.SnapshotReader
	ports.Refresher
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc

	// Service runs the pipeline in process. It is always set, also when
	// Backend queues refreshes instead of running them.
	Service *services.AggregationService
	// Repository is set for the sqlite backend.
	Repository *storage.SQLiteRepository
	// AMQP is set when a broker is configured and reachable.
	AMQP *amqp.Client
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// CSV input
	CSVSource         string
	CSVDir            string
	IngestConcurrency int

	// S3 / MinIO
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool

	// Output artifact
	ArtifactPath   string
	ArtifactBucket string

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// QueueRefreshes hands refreshes to the worker when AMQP is available.
	QueueRefreshes bool

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON []byte
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
