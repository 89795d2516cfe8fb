// =============================================================================
// 📦 VidFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("vidflow.yaml").
//	    WithEnvPrefix("VIDFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/budget"
	"github.com/BaSui01/vidflow/storage"
	"github.com/BaSui01/vidflow/video"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 VidFlow 的完整配置结构
type Config struct {
	// Batch 批处理配置
	Batch BatchConfig `yaml:"batch" env:"BATCH"`

	// Providers 视频生成服务配置
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Storage 报告存储配置
	Storage storage.StoreConfig `yaml:"storage" env:"STORAGE"`

	// Budget 成本告警配置
	Budget budget.CostConfig `yaml:"budget" env:"BUDGET"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// BatchConfig 批处理配置
type BatchConfig struct {
	// 同时进行的生成调用上限
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	// 每个任务首次失败后的重试次数
	RetryCount int `yaml:"retry_count" env:"RETRY_COUNT"`
	// 视频与报告输出目录
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
	// 退避单位，第 a 次失败后等待 2^a 个单位
	BackoffUnit time.Duration `yaml:"backoff_unit" env:"BACKOFF_UNIT"`
	// 单次退避上限，0 不封顶
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
	// hold 或 per_attempt
	SlotPolicy string `yaml:"slot_policy" env:"SLOT_POLICY"`
	// CEL 任务过滤表达式，空表示全部
	Filter string `yaml:"filter" env:"FILTER"`
}

// Pipeline 转换为 batch.Config
func (b BatchConfig) Pipeline() batch.Config {
	return batch.Config{
		MaxConcurrent: b.MaxConcurrent,
		RetryCount:    b.RetryCount,
		BackoffUnit:   b.BackoffUnit,
		MaxBackoff:    b.MaxBackoff,
		SlotPolicy:    batch.SlotPolicy(b.SlotPolicy),
	}
}

// ProvidersConfig 视频生成服务配置
type ProvidersConfig struct {
	Fal       video.FalConfig       `yaml:"fal" env:"FAL"`
	Replicate video.ReplicateConfig `yaml:"replicate" env:"REPLICATE"`
	Runway    video.RunwayConfig    `yaml:"runway" env:"RUNWAY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// legacyAlertThresholdEnv 兼容旧脚本使用的告警阈值变量
const legacyAlertThresholdEnv = "COST_ALERT_THRESHOLD"

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "VIDFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := l.applyLegacyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.normalize()

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// applyLegacyEnv 在未设置带前缀变量时读取 COST_ALERT_THRESHOLD
func (l *Loader) applyLegacyEnv(cfg *Config) error {
	if os.Getenv(l.envPrefix+"_BUDGET_ALERT_THRESHOLD") != "" {
		return nil
	}
	v := os.Getenv(legacyAlertThresholdEnv)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", legacyAlertThresholdEnv, err)
	}
	cfg.Budget.AlertThreshold = f
	return nil
}

// normalize 填充依赖其他字段的默认值
func (c *Config) normalize() {
	if c.Storage.BaseDir == "" {
		c.Storage.BaseDir = c.Batch.OutputDir
	}
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，汇总所有问题
func (c *Config) Validate() error {
	var errs []string

	if c.Batch.MaxConcurrent <= 0 {
		errs = append(errs, "batch.max_concurrent must be positive")
	}
	if c.Batch.RetryCount < 0 {
		errs = append(errs, "batch.retry_count must not be negative")
	}
	if c.Batch.OutputDir == "" {
		errs = append(errs, "batch.output_dir is required")
	}
	if c.Batch.BackoffUnit < 0 || c.Batch.MaxBackoff < 0 {
		errs = append(errs, "batch backoff durations must not be negative")
	}
	switch batch.SlotPolicy(c.Batch.SlotPolicy) {
	case "", batch.SlotHold, batch.SlotPerAttempt:
	default:
		errs = append(errs, fmt.Sprintf("unknown batch.slot_policy %q", c.Batch.SlotPolicy))
	}
	if c.Batch.Filter != "" {
		if _, err := batch.NewSelector(c.Batch.Filter); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Budget.AlertThreshold < 0 || c.Budget.MaxTotalCost < 0 {
		errs = append(errs, "budget amounts must not be negative")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("config validation errors")
