package video

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/types"
)

// FalProvider 通过 fal.ai 队列 API 生成视频（Kling、LTX、MiniMax 等）.
// 流程: 提交 → 轮询状态 → 获取结果.
type FalProvider struct {
	cfg    FalConfig
	client *http.Client
	logger *zap.Logger
}

// NewFalProvider 创建 fal.ai 提供者.
func NewFalProvider(cfg FalConfig, logger *zap.Logger) *FalProvider {
	def := DefaultFalConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FalProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", ProviderFal)),
	}
}

func (p *FalProvider) Name() string { return ProviderFal }

type falRequest struct {
	Prompt         string `json:"prompt"`
	Duration       string `json:"duration,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
}

type falQueueResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type falStatusResponse struct {
	Status string `json:"status"` // IN_QUEUE, IN_PROGRESS, COMPLETED
	Error  string `json:"error,omitempty"`
}

type falResult struct {
	Video *struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type,omitempty"`
	} `json:"video"`
	Seed int64 `json:"seed,omitempty"`
}

func (p *FalProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Key " + p.cfg.APIKey}
}

// Generate 提交任务并等待完成. req.Model 为 fal 模型 ID.
func (p *FalProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, types.InvalidJob("fal: model id is required")
	}
	body := falRequest{
		Prompt:         req.Prompt,
		ImageURL:       req.ImageURL,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
	}
	if req.Duration > 0 {
		body.Duration = strconv.Itoa(req.Duration)
	}

	base := strings.TrimRight(p.cfg.BaseURL, "/")
	var queued falQueueResponse
	if err := doJSON(ctx, p.client, ProviderFal, http.MethodPost, base+"/"+req.Model, p.headers(), body, &queued); err != nil {
		return nil, err
	}
	if queued.RequestID == "" {
		return nil, types.NewError(types.ErrUpstreamError, "fal: queue response without request_id").
			WithProvider(ProviderFal).WithRetryable(true)
	}
	statusURL := queued.StatusURL
	if statusURL == "" {
		statusURL = fmt.Sprintf("%s/%s/requests/%s/status", base, req.Model, queued.RequestID)
	}
	responseURL := queued.ResponseURL
	if responseURL == "" {
		responseURL = fmt.Sprintf("%s/%s/requests/%s", base, req.Model, queued.RequestID)
	}
	p.logger.Debug("fal request queued", zap.String("request_id", queued.RequestID), zap.String("model", req.Model))

	err := pollUntil(ctx, p.cfg.PollInterval, 3, func(ctx context.Context) (bool, error) {
		var st falStatusResponse
		if err := doJSON(ctx, p.client, ProviderFal, http.MethodGet, statusURL, p.headers(), nil, &st); err != nil {
			return false, err
		}
		switch st.Status {
		case "COMPLETED":
			if st.Error != "" {
				return true, generationFailed(ProviderFal, st.Error)
			}
			return true, nil
		case "FAILED", "ERROR":
			return true, generationFailed(ProviderFal, st.Error)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	var result falResult
	if err := doJSON(ctx, p.client, ProviderFal, http.MethodGet, responseURL, p.headers(), nil, &result); err != nil {
		return nil, err
	}

	resp := &GenerateResponse{
		Provider:  ProviderFal,
		Model:     req.Model,
		RequestID: queued.RequestID,
		Usage:     VideoUsage{DurationSeconds: float64(req.Duration)},
		CreatedAt: time.Now(),
	}
	if result.Video != nil && result.Video.URL != "" {
		resp.Videos = append(resp.Videos, VideoData{URL: result.Video.URL, Duration: float64(req.Duration)})
		resp.Usage.VideosGenerated = 1
	}
	return resp, nil
}

func generationFailed(provider, reason string) error {
	msg := provider + " generation failed"
	if reason != "" {
		msg += ": " + reason
	}
	return types.NewError(types.ErrGenerationFailed, msg).
		WithProvider(provider).
		WithRetryable(true)
}
