// =============================================================================
// 📦 VidFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/vidflow/budget"
	"github.com/BaSui01/vidflow/storage"
	"github.com/BaSui01/vidflow/video"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Batch:     DefaultBatchConfig(),
		Providers: DefaultProvidersConfig(),
		Storage:   DefaultStorageConfig(),
		Budget:    budget.DefaultCostConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultBatchConfig 返回默认批处理配置
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrent: 5,
		RetryCount:    2,
		OutputDir:     "./outputs/batches",
		BackoffUnit:   1 * time.Second,
		SlotPolicy:    "hold",
	}
}

// DefaultProvidersConfig 返回默认服务配置，API Key 需由环境变量提供
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Fal:       video.DefaultFalConfig(),
		Replicate: video.DefaultReplicateConfig(),
		Runway:    video.DefaultRunwayConfig(),
	}
}

// DefaultStorageConfig 返回默认存储配置。BaseDir 留空，加载时取 batch.output_dir。
func DefaultStorageConfig() storage.StoreConfig {
	cfg := storage.DefaultStoreConfig()
	cfg.BaseDir = ""
	return cfg
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "vidflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "vidflow",
	}
}
