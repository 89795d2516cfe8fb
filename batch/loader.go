package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// jobFile is the on-disk layout of a batch job file. Older files use
// "batches" instead of "jobs".
type jobFile struct {
	Jobs    []jobRecord `json:"jobs" yaml:"jobs"`
	Batches []jobRecord `json:"batches" yaml:"batches"`
}

type jobRecord struct {
	ID             string   `json:"id" yaml:"id"`
	Prompt         string   `json:"prompt" yaml:"prompt"`
	Model          string   `json:"model" yaml:"model"`
	Duration       *int     `json:"duration" yaml:"duration"`
	NegativePrompt string   `json:"negative_prompt" yaml:"negative_prompt"`
	ImageURL       string   `json:"image_url" yaml:"image_url"`
	Priority       *int     `json:"priority" yaml:"priority"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// Format is a job file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadJobFile reads and parses a batch job file.
func LoadJobFile(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	jobs, err := ParseJobs(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return jobs, nil
}

// ParseJobs decodes job records and applies defaults. Records with a missing
// prompt are kept; they fail validation when executed.
func ParseJobs(data []byte, format Format) ([]Job, error) {
	var f jobFile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported job file format %q", format)
	}

	records := f.Jobs
	if len(records) == 0 {
		records = f.Batches
	}
	jobs := make([]Job, 0, len(records))
	for i, r := range records {
		jobs = append(jobs, r.toJob(i))
	}
	return jobs, nil
}

func (r jobRecord) toJob(index int) Job {
	j := Job{
		ID:             r.ID,
		Prompt:         r.Prompt,
		Model:          r.Model,
		Duration:       DefaultDuration,
		NegativePrompt: r.NegativePrompt,
		ImageURL:       r.ImageURL,
		Priority:       DefaultPriority,
		Tags:           r.Tags,
	}
	if j.ID == "" {
		j.ID = fmt.Sprintf("job_%d", index)
	}
	if j.Model == "" {
		j.Model = DefaultModel
	}
	if r.Duration != nil {
		j.Duration = *r.Duration
	}
	if r.Priority != nil {
		j.Priority = *r.Priority
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	return j
}
