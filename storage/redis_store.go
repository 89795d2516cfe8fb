package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/internal/tlsutil"
)

// RedisStore is a Redis-based implementation of ReportStore.
// Reports are stored as JSON strings; a sorted set scored by report time
// indexes them.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:      fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:  config.Password,
		DB:        config.DB,
		PoolSize:  config.PoolSize,
		TLSConfig: tlsutil.ClientConfig(config.TLS),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "vidflow:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "report:",
		ttl:       config.TTL,
	}, nil
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) reportKey(id string) string {
	return s.keyPrefix + "data:" + id
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "index"
}

// SaveReport writes the report and its index entry in one pipeline.
func (s *RedisStore) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	key := s.reportKey(report.ID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(report.Timestamp.UnixMilli()),
		Member: report.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return "redis://" + key, nil
}

// GetReport loads a report by id.
func (s *RedisStore) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	data, err := s.client.Get(ctx, s.reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var r batch.BatchReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports returns summaries newest first. Index entries whose report
// expired are pruned.
func (s *RedisStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	if len(ids) == 0 {
		return []ReportSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.reportKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	out := make([]ReportSummary, 0, len(values))
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var r batch.BatchReport
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			continue
		}
		out = append(out, summarize(&r, "redis://"+keys[i]))
	}
	if len(stale) > 0 {
		s.client.ZRem(ctx, s.indexKey(), stale...)
	}
	return out, nil
}
