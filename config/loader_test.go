// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/storage"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 2, cfg.Batch.RetryCount)
	// 存储目录跟随输出目录
	assert.Equal(t, "./outputs/batches", cfg.Storage.BaseDir)
	assert.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
batch:
  max_concurrent: 3
  retry_count: 4
  output_dir: /tmp/vids
  backoff_unit: 500ms
  slot_policy: per_attempt
  filter: 'priority > 1'
providers:
  fal:
    api_key: fal-key
    rate_limit: 2
  replicate:
    fps: 16
storage:
  type: sql
  sql:
    driver: postgres
    dsn: "host=db user=vid"
budget:
  alert_threshold: 12.5
log:
  level: debug
  format: json
metrics:
  enabled: true
  addr: ":9300"
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 4, cfg.Batch.RetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.Batch.BackoffUnit)
	assert.Equal(t, "per_attempt", cfg.Batch.SlotPolicy)
	assert.Equal(t, "priority > 1", cfg.Batch.Filter)
	assert.Equal(t, "fal-key", cfg.Providers.Fal.APIKey)
	assert.Equal(t, 2.0, cfg.Providers.Fal.RateLimit)
	assert.Equal(t, 16, cfg.Providers.Replicate.FPS)
	// 未在文件中出现的字段保留默认值
	assert.Equal(t, "https://queue.fal.run", cfg.Providers.Fal.BaseURL)
	assert.Equal(t, storage.StoreTypeSQL, cfg.Storage.Type)
	assert.Equal(t, "postgres", cfg.Storage.SQL.Driver)
	assert.Equal(t, "/tmp/vids", cfg.Storage.BaseDir)
	assert.Equal(t, 12.5, cfg.Budget.AlertThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("VIDFLOW_BATCH_MAX_CONCURRENT", "8")
	t.Setenv("VIDFLOW_BATCH_BACKOFF_UNIT", "2s")
	t.Setenv("VIDFLOW_PROVIDERS_FAL_API_KEY", "env-fal")
	t.Setenv("VIDFLOW_PROVIDERS_RUNWAY_MODEL", "gen3a_turbo")
	t.Setenv("VIDFLOW_STORAGE_TYPE", "redis")
	t.Setenv("VIDFLOW_STORAGE_REDIS_PORT", "6380")
	t.Setenv("VIDFLOW_BUDGET_MAX_TOTAL_COST", "20")
	t.Setenv("VIDFLOW_LOG_OUTPUT_PATHS", "stdout, /tmp/vidflow.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 2*time.Second, cfg.Batch.BackoffUnit)
	assert.Equal(t, "env-fal", cfg.Providers.Fal.APIKey)
	assert.Equal(t, "gen3a_turbo", cfg.Providers.Runway.Model)
	assert.Equal(t, storage.StoreTypeRedis, cfg.Storage.Type)
	assert.Equal(t, 6380, cfg.Storage.Redis.Port)
	assert.Equal(t, 20.0, cfg.Budget.MaxTotalCost)
	assert.Equal(t, []string{"stdout", "/tmp/vidflow.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
batch:
  max_concurrent: 3
  retry_count: 1
`)
	t.Setenv("VIDFLOW_BATCH_MAX_CONCURRENT", "9")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Batch.MaxConcurrent)
	// YAML 值应该保留
	assert.Equal(t, 1, cfg.Batch.RetryCount)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_BATCH_RETRY_COUNT", "0")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Batch.RetryCount)
}

func TestLoader_LegacyAlertThreshold(t *testing.T) {
	t.Setenv("COST_ALERT_THRESHOLD", "7.5")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 7.5, cfg.Budget.AlertThreshold)

	// 带前缀的变量优先
	t.Setenv("VIDFLOW_BUDGET_ALERT_THRESHOLD", "3")
	cfg, err = NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Budget.AlertThreshold)
}

func TestLoader_InvalidEnv(t *testing.T) {
	t.Setenv("VIDFLOW_BATCH_MAX_CONCURRENT", "many")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	path := writeConfig(t, "batch:\n  max_concurrent: 0\n")

	_, err := NewLoader().
		WithConfigPath(path).
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 文件不存在时使用默认值
	cfg, err := NewLoader().WithConfigPath("/nonexistent/vidflow.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "batch: [oops")

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero concurrency", mutate: func(c *Config) { c.Batch.MaxConcurrent = 0 }, wantErr: "max_concurrent"},
		{name: "negative retries", mutate: func(c *Config) { c.Batch.RetryCount = -1 }, wantErr: "retry_count"},
		{name: "bad slot policy", mutate: func(c *Config) { c.Batch.SlotPolicy = "greedy" }, wantErr: "slot_policy"},
		{name: "bad filter", mutate: func(c *Config) { c.Batch.Filter = "priority >" }, wantErr: "filter"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Type = storage.StoreTypeS3 }, wantErr: "bucket"},
		{name: "metrics without addr", mutate: func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, wantErr: "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.normalize()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.normalize()
	cfg.Batch.MaxConcurrent = 0
	cfg.Batch.RetryCount = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent")
	assert.Contains(t, err.Error(), "retry_count")
}

func TestBatchConfig_Pipeline(t *testing.T) {
	cfg := DefaultBatchConfig()
	cfg.MaxBackoff = time.Minute

	pc := cfg.Pipeline()
	assert.Equal(t, batch.Config{
		MaxConcurrent: 5,
		RetryCount:    2,
		BackoffUnit:   time.Second,
		MaxBackoff:    time.Minute,
		SlotPolicy:    batch.SlotHold,
	}, pc)
	assert.NoError(t, pc.Validate())
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	path := writeConfig(t, "batch:\n  retry_count: 3\n")

	assert.NotPanics(t, func() {
		cfg := MustLoad(path)
		assert.Equal(t, 3, cfg.Batch.RetryCount)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml")

	assert.Panics(t, func() {
		MustLoad(path)
	})
}
