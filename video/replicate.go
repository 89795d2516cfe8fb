package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/types"
)

// ReplicateProvider 通过 Replicate 预测 API 生成视频（Wan 2.1 等）.
// API 文件: https://replicate.com/docs/reference/http
type ReplicateProvider struct {
	cfg    ReplicateConfig
	client *http.Client
	logger *zap.Logger
}

// NewReplicateProvider 创建 Replicate 提供者.
func NewReplicateProvider(cfg ReplicateConfig, logger *zap.Logger) *ReplicateProvider {
	def := DefaultReplicateConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplicateProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", ProviderReplicate)),
	}
}

func (p *ReplicateProvider) Name() string { return ProviderReplicate }

type replicateInput struct {
	Prompt         string `json:"prompt"`
	NumFrames      int    `json:"num_frames,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Image          string `json:"image,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // starting, processing, succeeded, failed, canceled
	Output json.RawMessage `json:"output,omitempty"`
	Error  any             `json:"error,omitempty"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// outputURLs 兼容字符串与字符串数组两种输出.
func (r *replicatePrediction) outputURLs() []string {
	if len(r.Output) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(r.Output, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(r.Output, &many); err == nil {
		return many
	}
	return nil
}

func (p *ReplicateProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
}

// Generate 创建预测并轮询直至结束. req.Model 为 owner/name 形式的模型 ID.
func (p *ReplicateProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, types.InvalidJob("replicate: model id is required")
	}
	input := replicateInput{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Image:          req.ImageURL,
		Seed:           req.Seed,
	}
	if req.Duration > 0 {
		input.NumFrames = req.Duration * p.cfg.FPS
	}

	base := strings.TrimRight(p.cfg.BaseURL, "/")
	var pred replicatePrediction
	err := doJSON(ctx, p.client, ProviderReplicate, http.MethodPost,
		fmt.Sprintf("%s/v1/models/%s/predictions", base, req.Model),
		p.headers(), map[string]any{"input": input}, &pred)
	if err != nil {
		return nil, err
	}
	getURL := pred.URLs.Get
	if getURL == "" {
		getURL = fmt.Sprintf("%s/v1/predictions/%s", base, pred.ID)
	}
	p.logger.Debug("replicate prediction created", zap.String("id", pred.ID), zap.String("status", pred.Status))

	if !replicateTerminal(pred.Status) {
		err = pollUntil(ctx, p.cfg.PollInterval, 3, func(ctx context.Context) (bool, error) {
			var cur replicatePrediction
			if err := doJSON(ctx, p.client, ProviderReplicate, http.MethodGet, getURL, p.headers(), nil, &cur); err != nil {
				return false, err
			}
			pred = cur
			return replicateTerminal(cur.Status), nil
		})
		if err != nil {
			return nil, err
		}
	}

	switch pred.Status {
	case "succeeded":
	case "canceled":
		return nil, generationFailed(ProviderReplicate, "prediction canceled")
	default:
		reason := ""
		if pred.Error != nil {
			reason = fmt.Sprint(pred.Error)
		}
		return nil, generationFailed(ProviderReplicate, reason)
	}

	resp := &GenerateResponse{
		Provider:  ProviderReplicate,
		Model:     req.Model,
		RequestID: pred.ID,
		Usage:     VideoUsage{DurationSeconds: float64(req.Duration)},
		CreatedAt: time.Now(),
	}
	for _, u := range pred.outputURLs() {
		resp.Videos = append(resp.Videos, VideoData{URL: u, Duration: float64(req.Duration)})
	}
	resp.Usage.VideosGenerated = len(resp.Videos)
	return resp, nil
}

func replicateTerminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}
