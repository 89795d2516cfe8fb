// Package storage persists batch reports. Every store implements
// batch.ReportSink, so a pipeline can write its report to any backend.
//
// Supported backends:
// - Memory: for tests and dry runs
// - File: one indented JSON file per report (default)
// - Redis: report documents plus a time-ordered index
// - SQL: postgres, mysql or sqlite through gorm
// - S3: any S3-compatible object store
// - MongoDB: one document per report
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/vidflow/batch"
)

// Common errors
var (
	ErrNotFound     = errors.New("report not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
	StoreTypeS3     StoreType = "s3"
	StoreTypeMongo  StoreType = "mongo"
)

// StoreConfig selects and configures a report backend.
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type" env:"TYPE"`

	// BaseDir is where the file store writes reports
	BaseDir string `json:"base_dir" yaml:"base_dir" env:"BASE_DIR"`

	Redis RedisStoreConfig `json:"redis" yaml:"redis" env:"REDIS"`
	SQL   SQLStoreConfig   `json:"sql" yaml:"sql" env:"SQL"`
	S3    S3StoreConfig    `json:"s3" yaml:"s3" env:"S3"`
	Mongo MongoStoreConfig `json:"mongo" yaml:"mongo" env:"MONGO"`
}

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	Host      string `json:"host" yaml:"host" env:"HOST"`
	Port      int    `json:"port" yaml:"port" env:"PORT"`
	Password  string `json:"password" yaml:"password" env:"PASSWORD"`
	DB        int    `json:"db" yaml:"db" env:"DB"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX"`
	TLS       bool   `json:"tls" yaml:"tls" env:"TLS"`

	// TTL expires stored reports; 0 keeps them forever
	TTL time.Duration `json:"ttl" yaml:"ttl" env:"TTL"`
}

// SQLStoreConfig contains gorm connection settings.
type SQLStoreConfig struct {
	// Driver is postgres, mysql or sqlite
	Driver          string        `json:"driver" yaml:"driver" env:"DRIVER"`
	DSN             string        `json:"dsn" yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// S3StoreConfig points at an S3-compatible bucket.
type S3StoreConfig struct {
	Bucket          string `json:"bucket" yaml:"bucket" env:"BUCKET"`
	Region          string `json:"region" yaml:"region" env:"REGION"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	Prefix          string `json:"prefix" yaml:"prefix" env:"PREFIX"`
	UsePathStyle    bool   `json:"use_path_style" yaml:"use_path_style" env:"USE_PATH_STYLE"`
}

// MongoStoreConfig contains MongoDB connection settings.
type MongoStoreConfig struct {
	URI        string        `json:"uri" yaml:"uri" env:"URI"`
	Database   string        `json:"database" yaml:"database" env:"DATABASE"`
	Collection string        `json:"collection" yaml:"collection" env:"COLLECTION"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeFile,
		BaseDir: "./outputs/batches",
		Redis: RedisStoreConfig{
			Host:      "localhost",
			Port:      6379,
			PoolSize:  10,
			KeyPrefix: "vidflow:",
		},
		SQL: SQLStoreConfig{
			Driver:          "sqlite",
			DSN:             "vidflow.db",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
		},
		S3: S3StoreConfig{
			Region: "us-east-1",
			Prefix: "reports/",
		},
		Mongo: MongoStoreConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "vidflow",
			Collection: "batch_reports",
			Timeout:    10 * time.Second,
		},
	}
}

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	TotalJobs  int       `json:"total_jobs"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	TotalCost  float64   `json:"total_cost"`
	Location   string    `json:"location"`
}

// ReportStore is a report backend.
type ReportStore interface {
	batch.ReportSink

	// GetReport loads a report by its batch id.
	GetReport(ctx context.Context, id string) (*batch.BatchReport, error)

	// ListReports returns up to limit summaries, newest first. limit <= 0
	// returns all.
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)

	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

func summarize(r *batch.BatchReport, location string) ReportSummary {
	return ReportSummary{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		TotalJobs:  r.TotalJobs,
		Successful: r.Successful,
		Failed:     r.Failed,
		TotalCost:  r.TotalCost,
		Location:   location,
	}
}

func validateReport(r *batch.BatchReport) error {
	if r == nil || r.ID == "" {
		return ErrInvalidInput
	}
	return nil
}

func limitSummaries(s []ReportSummary, limit int) []ReportSummary {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
