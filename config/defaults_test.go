package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/budget"
	"github.com/BaSui01/vidflow/storage"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, BatchConfig{}, cfg.Batch)
	assert.NotEqual(t, ProvidersConfig{}, cfg.Providers)
	assert.NotEqual(t, storage.StoreConfig{}, cfg.Storage)
	assert.NotEqual(t, budget.CostConfig{}, cfg.Budget)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
}

func TestDefaultBatchConfig(t *testing.T) {
	cfg := DefaultBatchConfig()
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, "./outputs/batches", cfg.OutputDir)
	assert.Equal(t, time.Second, cfg.BackoffUnit)
	assert.Equal(t, "hold", cfg.SlotPolicy)
	assert.Empty(t, cfg.Filter)
}

func TestDefaultStorageConfig(t *testing.T) {
	cfg := DefaultStorageConfig()
	assert.Equal(t, storage.StoreTypeFile, cfg.Type)
	assert.Empty(t, cfg.BaseDir)
	assert.Equal(t, "vidflow:", cfg.Redis.KeyPrefix)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "vidflow", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}

func TestDefaultBudget(t *testing.T) {
	assert.Equal(t, 50.0, DefaultConfig().Budget.AlertThreshold)
}
