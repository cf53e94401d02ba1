package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	SourceDir = "dir"
	SourceS3  = "s3"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port string

	// CSV input
	CSVSource string
	CSVDir    string

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

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Pipeline
	IngestConcurrency int
	RefreshInterval   time.Duration
	CacheTTL          time.Duration
	KeepRuns          int

	// Backend selection
	DataBackend string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		CSVSource: getEnv("CSV_SOURCE", SourceDir),
		CSVDir:    getEnv("CSV_DIR", "./commits"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Prefix:    getEnv("S3_PREFIX", ""),
		S3UseSSL:    getEnvBool("S3_USE_SSL", true),

		ArtifactPath:   getEnv("ARTIFACT_PATH", "./data/contributions.json"),
		ArtifactBucket: getEnv("ARTIFACT_BUCKET", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/contribgraph.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "contribgraph"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_contributions"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Contributions"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),
		RefreshInterval:   getEnvDuration("REFRESH_INTERVAL", 0),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),
		KeepRuns:          getEnvInt("KEEP_RUNS", 10),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validSources := []string{SourceDir, SourceS3}
	if !slices.Contains(validSources, c.CSVSource) {
		errors = append(errors, fmt.Sprintf("invalid CSV source '%s': must be one of %v", c.CSVSource, validSources))
	}
	switch c.CSVSource {
	case SourceDir:
		if c.CSVDir == "" {
			errors = append(errors, "CSV directory cannot be empty when using dir source")
		}
	case SourceS3:
		if c.S3Endpoint == "" {
			errors = append(errors, "S3 endpoint is required when using s3 source")
		}
		if c.S3Bucket == "" {
			errors = append(errors, "S3 bucket is required when using s3 source")
		}
	}

	if c.ArtifactBucket != "" && c.S3Endpoint == "" {
		errors = append(errors, "S3 endpoint is required when ARTIFACT_BUCKET is set")
	}
	if c.ArtifactPath == "" {
		errors = append(errors, "artifact path cannot be empty")
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets export")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.IngestConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid ingest concurrency %d: must be at least 1", c.IngestConcurrency))
	} else if c.IngestConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid ingest concurrency %d: must be at most 64", c.IngestConcurrency))
	}

	if c.RefreshInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must not be negative", c.RefreshInterval))
	} else if c.RefreshInterval > 0 && c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	}

	if c.KeepRuns < 0 {
		errors = append(errors, fmt.Sprintf("invalid keep runs %d: must not be negative", c.KeepRuns))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsCredentials returns the service account JSON from the inline value or the file.
func (c *Config) SheetsCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	b, err := os.ReadFile(c.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	return b, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
