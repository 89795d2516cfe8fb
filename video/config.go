package video

import "time"

// FalConfig 配置 fal.ai 队列 API 提供者.
type FalConfig struct {
	APIKey       string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL      string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" env:"POLL_INTERVAL"`
	RateLimit    float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" env:"RATE_LIMIT"` // 每秒提交数, 0 不限
}

// ReplicateConfig 配置 Replicate 预测 API 提供者.
type ReplicateConfig struct {
	APIKey       string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL      string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" env:"POLL_INTERVAL"`
	RateLimit    float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" env:"RATE_LIMIT"`
	FPS          int           `json:"fps,omitempty" yaml:"fps,omitempty" env:"FPS"` // num_frames = duration * fps
}

// Runway Config 配置了 Runway ML 视频生成提供者.
type RunwayConfig struct {
	APIKey       string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL      string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model        string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"` // gen4_turbo, gen3a_turbo
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty" env:"POLL_INTERVAL"`
	RateLimit    float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" env:"RATE_LIMIT"`
}

// DefaultFalConfig 返回默认 fal.ai 配置.
func DefaultFalConfig() FalConfig {
	return FalConfig{
		BaseURL:      "https://queue.fal.run",
		Timeout:      60 * time.Second,
		PollInterval: 2 * time.Second,
	}
}

// DefaultReplicateConfig 返回默认 Replicate 配置.
func DefaultReplicateConfig() ReplicateConfig {
	return ReplicateConfig{
		BaseURL:      "https://api.replicate.com",
		Timeout:      60 * time.Second,
		PollInterval: 2 * time.Second,
		FPS:          24,
	}
}

// 默认 Runway Config 返回默认 Runway 配置 。
func DefaultRunwayConfig() RunwayConfig {
	return RunwayConfig{
		BaseURL:      "https://api.dev.runwayml.com",
		Model:        "gen4_turbo",
		Timeout:      60 * time.Second,
		PollInterval: 5 * time.Second,
	}
}
