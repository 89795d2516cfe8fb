package video

import (
	"fmt"
	"slices"
	"sort"

	"github.com/BaSui01/vidflow/types"
)

// Provider names used by the catalog.
const (
	ProviderFal       = "fal"
	ProviderReplicate = "replicate"
	ProviderRunway    = "runway"
)

// ModelSpec describes one catalog model: where it runs and what it costs.
type ModelSpec struct {
	Name          string  `json:"name" yaml:"name"`
	Provider      string  `json:"provider" yaml:"provider"`
	ModelID       string  `json:"model_id" yaml:"model_id"`
	CostPerVideo  float64 `json:"cost_per_video,omitempty" yaml:"cost_per_video,omitempty"`
	CostPerSecond float64 `json:"cost_per_second,omitempty" yaml:"cost_per_second,omitempty"`
	RequiresImage bool    `json:"requires_image,omitempty" yaml:"requires_image,omitempty"`
}

// Cost returns the price of one generation of the given duration: the flat
// per-video price if set, else per-second price times duration, else zero.
func (m ModelSpec) Cost(duration int) float64 {
	switch {
	case m.CostPerVideo > 0:
		return m.CostPerVideo
	case m.CostPerSecond > 0:
		return m.CostPerSecond * float64(duration)
	default:
		return 0
	}
}

// Catalog maps public model names to their specs.
type Catalog map[string]ModelSpec

// DefaultCatalog returns the built-in models.
func DefaultCatalog() Catalog {
	return Catalog{
		"kling": {
			Name:         "kling",
			Provider:     ProviderFal,
			ModelID:      "fal-ai/kling-video/v1/pro/text-to-video",
			CostPerVideo: 0.28,
		},
		"kling-i2v": {
			Name:          "kling-i2v",
			Provider:      ProviderFal,
			ModelID:       "fal-ai/kling-video/v1/pro/image-to-video",
			CostPerVideo:  0.28,
			RequiresImage: true,
		},
		"wan": {
			Name:          "wan",
			Provider:      ProviderReplicate,
			ModelID:       "wan-ai/wan-2.1-t2v-14b",
			CostPerSecond: 0.03,
		},
		"ltx": {
			Name:          "ltx",
			Provider:      ProviderFal,
			ModelID:       "fal-ai/ltx-video",
			CostPerSecond: 0.04,
		},
		"hailuo": {
			Name:         "hailuo",
			Provider:     ProviderFal,
			ModelID:      "fal-ai/minimax-video",
			CostPerVideo: 0.28,
		},
		"runway": {
			Name:          "runway",
			Provider:      ProviderRunway,
			ModelID:       "gen4_turbo",
			CostPerSecond: 0.25,
		},
	}
}

// Lookup returns the spec for name. Unknown models are a non-retryable
// MODEL_NOT_FOUND error.
func (c Catalog) Lookup(name string) (ModelSpec, error) {
	spec, ok := c[name]
	if !ok {
		return ModelSpec{}, types.NewError(types.ErrModelNotFound,
			fmt.Sprintf("unsupported model: %s (supported: %v)", name, c.Names())).
			WithRetryable(false)
	}
	if spec.Name == "" {
		spec.Name = name
	}
	return spec, nil
}

// Names returns the sorted model names.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Providers returns the distinct provider names the catalog routes to.
func (c Catalog) Providers() []string {
	var out []string
	for _, spec := range c {
		if !slices.Contains(out, spec.Provider) {
			out = append(out, spec.Provider)
		}
	}
	sort.Strings(out)
	return out
}
