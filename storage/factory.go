package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// NewReportStore creates a ReportStore based on the configuration.
func NewReportStore(config StoreConfig, logger *zap.Logger) (ReportStore, error) {
	switch config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile, "":
		return NewFileStore(config.BaseDir)
	case StoreTypeRedis:
		return NewRedisStore(config.Redis)
	case StoreTypeSQL:
		return NewSQLStore(config.SQL, logger)
	case StoreTypeS3:
		return NewS3Store(config.S3, logger)
	case StoreTypeMongo:
		return NewMongoStore(config.Mongo)
	default:
		return nil, fmt.Errorf("unsupported report store type: %s", config.Type)
	}
}

// MustNewReportStore creates a ReportStore or panics on error.
//
// WARNING: This function should ONLY be used during application initialization.
// For runtime store creation, use NewReportStore instead.
func MustNewReportStore(config StoreConfig, logger *zap.Logger) ReportStore {
	store, err := NewReportStore(config, logger)
	if err != nil {
		panic(fmt.Sprintf("failed to create report store: %v", err))
	}
	return store
}

// Validate checks the settings of the selected backend only.
func (c StoreConfig) Validate() error {
	switch c.Type {
	case StoreTypeMemory:
	case StoreTypeFile, "":
		if c.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required for the file store")
		}
	case StoreTypeRedis:
		if c.Redis.Host == "" || c.Redis.Port <= 0 {
			return fmt.Errorf("storage.redis host and port are required")
		}
	case StoreTypeSQL:
		if c.SQL.DSN == "" {
			return fmt.Errorf("storage.sql.dsn is required")
		}
		switch c.SQL.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("unsupported storage.sql.driver: %q", c.SQL.Driver)
		}
	case StoreTypeS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	case StoreTypeMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo uri, database and collection are required")
		}
	default:
		return fmt.Errorf("unsupported storage.type: %q", c.Type)
	}
	return nil
}
