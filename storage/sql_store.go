package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/internal/database"
)

// ReportRecord is the gorm model of a stored report. Summary columns are
// queryable; Payload keeps the full report JSON.
type ReportRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Timestamp  time.Time `gorm:"index"`
	TotalJobs  int
	Successful int
	Failed     int
	TotalCost  float64
	Payload    string `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName implements gorm's tabler.
func (ReportRecord) TableName() string { return "batch_reports" }

const sqlSaveRetries = 2

// SQLStore keeps reports in a relational database through gorm.
type SQLStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLStore opens the database and migrates the report table.
func NewSQLStore(config SQLStoreConfig, logger *zap.Logger) (*SQLStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("%w: sql dsn is required", ErrInvalidInput)
	}
	pool, err := database.Open(config.Driver, config.DSN, database.PoolConfig{
		MaxOpenConns:    config.MaxOpenConns,
		MaxIdleConns:    config.MaxIdleConns,
		ConnMaxLifetime: config.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	s := NewSQLStoreFromPool(pool, logger)
	if err := s.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreFromPool wraps an existing pool. The table is not migrated.
func NewSQLStoreFromPool(pool *database.PoolManager, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{pool: pool, logger: logger.With(zap.String("component", "sql_store"))}
}

// Migrate creates or updates the report table.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&ReportRecord{}); err != nil {
		return fmt.Errorf("failed to migrate report table: %w", err)
	}
	return nil
}

// SaveReport upserts the report row.
func (s *SQLStore) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	rec := ReportRecord{
		ID:         report.ID,
		Timestamp:  report.Timestamp,
		TotalJobs:  report.TotalJobs,
		Successful: report.Successful,
		Failed:     report.Failed,
		TotalCost:  report.TotalCost,
		Payload:    string(payload),
	}

	err = s.pool.WithTransactionRetry(ctx, sqlSaveRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return fmt.Sprintf("sql://%s/%s", rec.TableName(), rec.ID), nil
}

// GetReport loads a report by id.
func (s *SQLStore) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	var rec ReportRecord
	err := s.pool.DB().WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var r batch.BatchReport
	if err := json.Unmarshal([]byte(rec.Payload), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports returns summaries newest first without loading payloads.
func (s *SQLStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	q := s.pool.DB().WithContext(ctx).
		Select("id", "timestamp", "total_jobs", "successful", "failed", "total_cost").
		Order("timestamp DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recs []ReportRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]ReportSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ReportSummary{
			ID:         rec.ID,
			Timestamp:  rec.Timestamp,
			TotalJobs:  rec.TotalJobs,
			Successful: rec.Successful,
			Failed:     rec.Failed,
			TotalCost:  rec.TotalCost,
			Location:   fmt.Sprintf("sql://%s/%s", rec.TableName(), rec.ID),
		})
	}
	return out, nil
}

// Close closes the store
func (s *SQLStore) Close() error {
	return s.pool.Close()
}

// Ping checks if the store is healthy
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
