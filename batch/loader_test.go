package batch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/batch"
)

func TestParseJobs_JSONDefaults(t *testing.T) {
	data := []byte(`{
		"jobs": [
			{"id": "hero", "prompt": "a fox in snow", "model": "wan", "duration": 8, "priority": 3, "tags": ["promo"]},
			{"prompt": "city at night"},
			{"id": "no-prompt", "model": "ltx"}
		]
	}`)

	jobs, err := batch.ParseJobs(data, batch.FormatJSON)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, batch.Job{
		ID: "hero", Prompt: "a fox in snow", Model: "wan", Duration: 8, Priority: 3, Tags: []string{"promo"},
	}, jobs[0])

	assert.Equal(t, "job_1", jobs[1].ID)
	assert.Equal(t, batch.DefaultModel, jobs[1].Model)
	assert.Equal(t, batch.DefaultDuration, jobs[1].Duration)
	assert.Equal(t, batch.DefaultPriority, jobs[1].Priority)
	assert.Equal(t, []string{}, jobs[1].Tags)

	assert.Empty(t, jobs[2].Prompt, "records without a prompt are kept")
	assert.Error(t, jobs[2].Validate())
}

func TestParseJobs_ExplicitZeroPriorityKept(t *testing.T) {
	jobs, err := batch.ParseJobs([]byte(`{"jobs":[{"prompt":"x","priority":0}]}`), batch.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, jobs[0].Priority)
}

func TestParseJobs_BatchesKey(t *testing.T) {
	jobs, err := batch.ParseJobs([]byte(`{"batches":[{"prompt":"x"},{"prompt":"y"}]}`), batch.FormatJSON)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "y", jobs[1].Prompt)
}

func TestParseJobs_YAML(t *testing.T) {
	data := []byte(`
jobs:
  - id: intro
    prompt: sunrise over mountains
    model: kling-i2v
    image_url: https://example.com/frame.png
    negative_prompt: blurry
    tags: [landscape]
  - prompt: waves
    priority: 5
`)
	jobs, err := batch.ParseJobs(data, batch.FormatYAML)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "kling-i2v", jobs[0].Model)
	assert.Equal(t, "https://example.com/frame.png", jobs[0].ImageURL)
	assert.Equal(t, "blurry", jobs[0].NegativePrompt)
	assert.Equal(t, 5, jobs[1].Priority)
	assert.Equal(t, "job_1", jobs[1].ID)
}

func TestParseJobs_Malformed(t *testing.T) {
	_, err := batch.ParseJobs([]byte(`{"jobs": [`), batch.FormatJSON)
	assert.Error(t, err)

	_, err = batch.ParseJobs([]byte(`{}`), "toml")
	assert.Error(t, err)
}

func TestParseJobs_Empty(t *testing.T) {
	jobs, err := batch.ParseJobs([]byte(`{"jobs": []}`), batch.FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestLoadJobFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "jobs.json")
	yamlPath := filepath.Join(dir, "jobs.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"jobs":[{"prompt":"a"}]}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("jobs:\n  - prompt: b\n"), 0o644))

	jobs, err := batch.LoadJobFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "a", jobs[0].Prompt)

	jobs, err = batch.LoadJobFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "b", jobs[0].Prompt)

	_, err = batch.LoadJobFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, batch.FormatYAML, batch.FormatFromPath("a.YAML"))
	assert.Equal(t, batch.FormatYAML, batch.FormatFromPath("a.yml"))
	assert.Equal(t, batch.FormatJSON, batch.FormatFromPath("a.json"))
	assert.Equal(t, batch.FormatJSON, batch.FormatFromPath("jobs"))
}
