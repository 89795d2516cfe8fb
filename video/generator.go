package video

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/internal/ctxkeys"
	"github.com/BaSui01/vidflow/types"
)

// CostRecorder receives the cost of every successful generation.
type CostRecorder interface {
	CheckBudget(estimatedCost float64) error
	Add(model string, cost float64)
}

// Generator routes batch generation requests to providers by catalog model
// name. It implements batch.GenerationProvider.
type Generator struct {
	catalog    Catalog
	providers  map[string]Provider
	limiters   map[string]*rate.Limiter
	downloader *Downloader
	costs      CostRecorder
	logger     *zap.Logger
}

var _ batch.GenerationProvider = (*Generator)(nil)

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCatalog replaces the default model catalog.
func WithCatalog(c Catalog) GeneratorOption {
	return func(g *Generator) { g.catalog = c }
}

// WithProvider registers p under p.Name().
func WithProvider(p Provider) GeneratorOption {
	return func(g *Generator) { g.providers[p.Name()] = p }
}

// WithRateLimit limits submissions to provider to rps per second.
// rps <= 0 removes the limit.
func WithRateLimit(provider string, rps float64, burst int) GeneratorOption {
	return func(g *Generator) {
		if rps <= 0 {
			delete(g.limiters, provider)
			return
		}
		g.limiters[provider] = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithDownloader saves artifacts locally. Without a downloader the
// provider's video URL is used as the output reference.
func WithDownloader(d *Downloader) GeneratorOption {
	return func(g *Generator) { g.downloader = d }
}

// WithCostRecorder tracks the cost of successful generations.
func WithCostRecorder(c CostRecorder) GeneratorOption {
	return func(g *Generator) { g.costs = c }
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a generator over the default catalog.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		catalog:   DefaultCatalog(),
		providers: make(map[string]Provider),
		limiters:  make(map[string]*rate.Limiter),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "generator"))
	return g
}

// Generate implements batch.GenerationProvider.
func (g *Generator) Generate(ctx context.Context, req *batch.GenerationRequest) (*batch.Generation, error) {
	spec, err := g.catalog.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	if spec.RequiresImage && req.ImageURL == "" {
		return nil, types.InvalidJob("model %s requires image_url", spec.Name)
	}
	provider, ok := g.providers[spec.Provider]
	if !ok {
		return nil, types.NewError(types.ErrProviderMissing,
			fmt.Sprintf("provider %s for model %s is not configured", spec.Provider, spec.Name)).
			WithProvider(spec.Provider).
			WithRetryable(false)
	}

	cost := spec.Cost(req.Duration)
	if g.costs != nil {
		if err := g.costs.CheckBudget(cost); err != nil {
			return nil, err
		}
	}

	if lim, ok := g.limiters[spec.Provider]; ok {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := provider.Generate(ctx, &GenerateRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Model:          spec.ModelID,
		Duration:       req.Duration,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	url := resp.FirstURL()
	if url == "" {
		return nil, types.NewError(types.ErrGenerationFailed, "no video url in result").
			WithProvider(spec.Provider).
			WithRetryable(true)
	}

	outputRef := url
	if g.downloader != nil {
		outputRef, err = g.downloader.Download(ctx, url, spec.Name, req.Prompt)
		if err != nil {
			return nil, err
		}
	}

	if g.costs != nil {
		g.costs.Add(spec.Name, cost)
	}
	fields := []zap.Field{
		zap.String("model", spec.Name),
		zap.String("provider", spec.Provider),
		zap.String("request_id", resp.RequestID),
		zap.Float64("cost", cost),
	}
	if id, ok := ctxkeys.BatchID(ctx); ok {
		fields = append(fields, zap.String("batch_id", id))
	}
	if id, ok := ctxkeys.JobID(ctx); ok {
		fields = append(fields, zap.String("job_id", id))
	}
	g.logger.Debug("generation finished", fields...)

	return &batch.Generation{
		Cost:      cost,
		OutputRef: outputRef,
		Metadata: map[string]any{
			"provider":   resp.Provider,
			"model_id":   resp.Model,
			"request_id": resp.RequestID,
			"video_url":  url,
			"created_at": resp.CreatedAt,
		},
	}, nil
}
