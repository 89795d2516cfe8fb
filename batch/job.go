package batch

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BaSui01/vidflow/types"
)

// Job defaults applied by the job file loader.
const (
	DefaultModel    = "kling"
	DefaultDuration = 5
	DefaultPriority = 1
)

// Status is the terminal outcome of a job.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Job describes one generation request. Jobs are passed by value and never
// modified once loaded.
type Job struct {
	ID             string   `json:"id"`
	Prompt         string   `json:"prompt"`
	Model          string   `json:"model"`
	Duration       int      `json:"duration"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Priority       int      `json:"priority"`
	Tags           []string `json:"tags"`
}

// Validate checks the fields a provider call cannot do without.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Prompt) == "" {
		return types.InvalidJob("job %s: prompt is required", j.ID)
	}
	if j.Model == "" {
		return types.InvalidJob("job %s: model is required", j.ID)
	}
	if j.Duration <= 0 {
		return types.InvalidJob("job %s: duration must be positive, got %d", j.ID, j.Duration)
	}
	return nil
}

// JobResult is the terminal result of one job, created exactly once.
type JobResult struct {
	JobID      string         `json:"job_id"`
	Status     Status         `json:"status"`
	Model      string         `json:"model,omitempty"`
	Cost       float64        `json:"cost,omitempty"`
	OutputRef  string         `json:"output_path,omitempty"`
	Error      string         `json:"error,omitempty"`
	Tags       []string       `json:"tags"`
	Attempts   int            `json:"attempts"`
	DurationMS int64          `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON always writes cost for a successful job, zero included, and
// never for a failed one.
func (r JobResult) MarshalJSON() ([]byte, error) {
	type plain JobResult
	out := struct {
		plain
		Cost *float64 `json:"cost,omitempty"`
	}{plain: plain(r)}
	if r.Succeeded() {
		out.Cost = &r.Cost
	}
	return json.Marshal(out)
}

// Succeeded reports whether the job produced an artifact.
func (r JobResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

func errorResult(job Job, msg string, attempts int, elapsed time.Duration) JobResult {
	return JobResult{
		JobID:      job.ID,
		Status:     StatusError,
		Model:      job.Model,
		Error:      msg,
		Tags:       copyTags(job.Tags),
		Attempts:   attempts,
		DurationMS: elapsed.Milliseconds(),
	}
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
