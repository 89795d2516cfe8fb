// Package video provides video generation providers and the batch generator.
package video

import (
	"context"
	"time"
)

// VideoFormat represents supported video formats.
type VideoFormat string

const (
	VideoFormatMP4  VideoFormat = "mp4"
	VideoFormatWebM VideoFormat = "webm"
	VideoFormatMOV  VideoFormat = "mov"
)

// GenerateRequest represents a video generation request.
type GenerateRequest struct {
	Prompt         string            `json:"prompt"`
	NegativePrompt string            `json:"negative_prompt,omitempty"`
	Model          string            `json:"model,omitempty"`    // Provider-side model id
	Duration       int               `json:"duration,omitempty"` // Duration in seconds
	AspectRatio    string            `json:"aspect_ratio,omitempty"`
	Seed           int64             `json:"seed,omitempty"`
	ImageURL       string            `json:"image_url,omitempty"` // Image-to-video URL
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse represents the response from video generation.
type GenerateResponse struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	RequestID string      `json:"request_id,omitempty"`
	Videos    []VideoData `json:"videos"`
	Usage     VideoUsage  `json:"usage,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// VideoData represents a generated video.
type VideoData struct {
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
}

// VideoUsage represents usage statistics.
type VideoUsage struct {
	VideosGenerated int     `json:"videos_generated"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Provider defines the video generation provider interface.
type Provider interface {
	// Generate creates videos from text/image prompts and waits for the
	// provider to finish.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name.
	Name() string
}

// FirstURL returns the first video URL in the response, if any.
func (r *GenerateResponse) FirstURL() string {
	if r == nil {
		return ""
	}
	for _, v := range r.Videos {
		if v.URL != "" {
			return v.URL
		}
	}
	return ""
}
