package video

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const runwayAPIVersion = "2024-11-06"

// Runway Provider执行视频生成,使用Runway ML Gen-4.
// API 文件: https://docs.dev.runwayml.com/api/
type RunwayProvider struct {
	cfg    RunwayConfig
	client *http.Client
	logger *zap.Logger
}

// NewRunway Provider创建了新的跑道视频提供商.
func NewRunwayProvider(cfg RunwayConfig, logger *zap.Logger) *RunwayProvider {
	def := DefaultRunwayConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		// 可用: gen4_turbo, gen3a_turbo
		cfg.Model = def.Model
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunwayProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", ProviderRunway)),
	}
}

func (p *RunwayProvider) Name() string { return ProviderRunway }

type runwayRequest struct {
	Model       string `json:"model"`
	PromptText  string `json:"promptText,omitempty"`
	PromptImage string `json:"promptImage,omitempty"` // HTTPS URL or data URI
	Ratio       string `json:"ratio,omitempty"`       // e.g., "1280:720", "720:1280"
	Duration    int    `json:"duration,omitempty"`    // 2-10 seconds
	Seed        int64  `json:"seed,omitempty"`
}

type runwayResponse struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"` // PENDING, RUNNING, SUCCEEDED, FAILED
	Output      []string `json:"output,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Failure     string   `json:"failure,omitempty"`
	FailureCode string   `json:"failureCode,omitempty"`
}

func (p *RunwayProvider) headers() map[string]string {
	return map[string]string{
		"Authorization":    "Bearer " + p.cfg.APIKey,
		"X-Runway-Version": runwayAPIVersion,
	}
}

// 利用跑道Gen-4生成视频.
// 终点: POST /v1/image_to_video (有图像) 或 /v1/text_to_video
func (p *RunwayProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	duration := req.Duration
	if duration == 0 {
		duration = 5
	}
	duration = min(max(duration, 2), 10)

	body := runwayRequest{
		Model:       model,
		PromptText:  req.Prompt,
		PromptImage: req.ImageURL,
		Ratio:       runwayRatio(req.AspectRatio),
		Duration:    duration,
		Seed:        req.Seed,
	}
	endpoint := "/v1/text_to_video"
	if req.ImageURL != "" {
		endpoint = "/v1/image_to_video"
	}

	base := strings.TrimRight(p.cfg.BaseURL, "/")
	var task runwayResponse
	if err := doJSON(ctx, p.client, ProviderRunway, http.MethodPost, base+endpoint, p.headers(), body, &task); err != nil {
		return nil, err
	}
	p.logger.Debug("runway task created", zap.String("task_id", task.ID))

	// 完成投票
	var result runwayResponse
	err := pollUntil(ctx, p.cfg.PollInterval, 3, func(ctx context.Context) (bool, error) {
		var cur runwayResponse
		if err := doJSON(ctx, p.client, ProviderRunway, http.MethodGet,
			fmt.Sprintf("%s/v1/tasks/%s", base, task.ID), p.headers(), nil, &cur); err != nil {
			return false, err
		}
		switch cur.Status {
		case "SUCCEEDED":
			result = cur
			return true, nil
		case "FAILED", "CANCELLED":
			return true, generationFailed(ProviderRunway, cur.Failure)
		}
		// 继续投票 PENDING, RUNNING, THROTTLED
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	var videos []VideoData
	for _, url := range result.Output {
		videos = append(videos, VideoData{
			URL:      url,
			Duration: float64(duration),
		})
	}

	return &GenerateResponse{
		Provider:  ProviderRunway,
		Model:     model,
		RequestID: task.ID,
		Videos:    videos,
		Usage: VideoUsage{
			VideosGenerated: len(videos),
			DurationSeconds: float64(duration),
		},
		CreatedAt: time.Now(),
	}, nil
}

// 转换宽比格式
func runwayRatio(aspect string) string {
	switch aspect {
	case "", "16:9":
		return "1280:720"
	case "9:16":
		return "720:1280"
	case "1:1":
		return "960:960"
	default:
		return aspect
	}
}
