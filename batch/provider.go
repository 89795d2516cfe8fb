package batch

import "context"

// GenerationRequest carries the job fields a provider needs.
type GenerationRequest struct {
	Prompt         string
	Model          string
	Duration       int
	NegativePrompt string
	ImageURL       string
}

// Generation is a successful provider outcome. Metadata is passed through
// to the report untouched.
type Generation struct {
	Cost      float64
	OutputRef string
	Metadata  map[string]any
}

// GenerationProvider turns a request into an artifact and a cost.
// A returned error means the attempt failed.
type GenerationProvider interface {
	Generate(ctx context.Context, req *GenerationRequest) (*Generation, error)
}

// ProviderFunc adapts a function to GenerationProvider.
type ProviderFunc func(ctx context.Context, req *GenerationRequest) (*Generation, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, req *GenerationRequest) (*Generation, error) {
	return f(ctx, req)
}

func requestFor(job Job) *GenerationRequest {
	return &GenerationRequest{
		Prompt:         job.Prompt,
		Model:          job.Model,
		Duration:       job.Duration,
		NegativePrompt: job.NegativePrompt,
		ImageURL:       job.ImageURL,
	}
}
