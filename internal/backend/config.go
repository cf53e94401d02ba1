package backend

import (
	"fmt"

	"github.com/marcosilvestroni/summarize-commits/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type: backendType,

		CSVSource:         appConfig.CSVSource,
		CSVDir:            appConfig.CSVDir,
		IngestConcurrency: appConfig.IngestConcurrency,

		S3Endpoint:  appConfig.S3Endpoint,
		S3AccessKey: appConfig.S3AccessKey,
		S3SecretKey: appConfig.S3SecretKey,
		S3Bucket:    appConfig.S3Bucket,
		S3Prefix:    appConfig.S3Prefix,
		S3UseSSL:    appConfig.S3UseSSL,

		ArtifactPath:   appConfig.ArtifactPath,
		ArtifactBucket: appConfig.ArtifactBucket,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}

	if appConfig.GoogleSpreadsheetID != "" {
		creds, err := appConfig.SheetsCredentials()
		if err != nil {
			return Config{}, err
		}
		cfg.GoogleCredentialsJSON = creds
	}

	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.CSVSource {
	case config.SourceDir:
		if c.CSVDir == "" {
			return fmt.Errorf("CSV directory is required for dir source")
		}
	case config.SourceS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return fmt.Errorf("S3 endpoint and bucket are required for s3 source")
		}
	default:
		return fmt.Errorf("invalid CSV source: %q", c.CSVSource)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional, so we don't validate it

	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	if c.GoogleSpreadsheetID != "" && len(c.GoogleCredentialsJSON) == 0 {
		return fmt.Errorf("Google credentials are required for sheets export")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
