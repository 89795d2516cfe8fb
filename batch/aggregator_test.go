package batch_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/testutil"
)

func TestAggregator_CollectsFromManyGoroutines(t *testing.T) {
	const total = 50
	var (
		mu       sync.Mutex
		progress []int
	)
	agg := batch.NewAggregator(total, func(_ batch.JobResult, done, n int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, total, n)
		progress = append(progress, done)
	})

	var wg sync.WaitGroup
	for i := range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := batch.JobResult{JobID: fmt.Sprintf("job_%d", i), Status: batch.StatusSuccess, Cost: 0.1}
			if i%5 == 0 {
				res = batch.JobResult{JobID: res.JobID, Status: batch.StatusError, Error: "boom"}
			}
			agg.Add(res)
		}()
	}
	wg.Wait()

	report := agg.Close("batch-1")

	assert.Equal(t, "batch-1", report.ID)
	assert.Equal(t, total, report.TotalJobs)
	assert.Equal(t, 40, report.Successful)
	assert.Equal(t, 10, report.Failed)
	assert.InDelta(t, 4.0, report.TotalCost, 1e-9)
	assert.Len(t, report.FailedDetails, 10)

	done, n := agg.Progress()
	assert.Equal(t, total, done)
	assert.Equal(t, total, n)

	require.Len(t, progress, total)
	for i, d := range progress {
		assert.Equal(t, i+1, d, "progress must advance by one per result")
	}
}

func TestAggregator_Empty(t *testing.T) {
	agg := batch.NewAggregator(0, nil)
	report := agg.Close("empty")

	assert.Equal(t, 0, report.TotalJobs)
	assert.Equal(t, 0, report.Successful)
	assert.Equal(t, 0, report.Failed)
	assert.Zero(t, report.TotalCost)
	assert.NotNil(t, report.Results)
	assert.NotNil(t, report.FailedDetails)
}

func TestAggregator_CloseIsIdempotent(t *testing.T) {
	agg := batch.NewAggregator(1, nil)
	agg.Add(batch.JobResult{JobID: "a", Status: batch.StatusSuccess, Cost: 1})

	first := agg.Close("x")
	second := agg.Close("x")
	assert.Equal(t, first.TotalJobs, second.TotalJobs)
	assert.Equal(t, first.TotalCost, second.TotalCost)
}

func TestNewReport_CostCountsSuccessOnly(t *testing.T) {
	results := []batch.JobResult{
		{JobID: "a", Status: batch.StatusSuccess, Cost: 0.28},
		{JobID: "b", Status: batch.StatusError, Cost: 9.99, Error: "boom"},
		{JobID: "c", Status: batch.StatusSuccess, Cost: 0.05},
	}

	report := batch.NewReport("r", time.Unix(0, 0), results)

	assert.InDelta(t, 0.33, report.TotalCost, 1e-9)
	assert.Equal(t, []batch.FailedDetail{{ID: "b", Error: "boom"}}, report.FailedDetails)
	assert.Equal(t, report.TotalJobs, report.Successful+report.Failed)
}

func TestBatchReport_JSONFieldNames(t *testing.T) {
	report := batch.NewReport("r", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), []batch.JobResult{
		{JobID: "a", Status: batch.StatusSuccess, Cost: 0.28, OutputRef: "outputs/a.mp4", Tags: []string{}},
		{JobID: "b", Status: batch.StatusError, Error: "boom", Tags: []string{"x"}},
	})
	report.Location = "somewhere"

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"timestamp", "total_jobs", "successful", "failed", "total_cost", "results", "failed_details"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "Location")

	results := raw["results"].([]any)
	failed := results[1].(map[string]any)
	assert.Equal(t, "b", failed["job_id"])
	assert.Equal(t, "error", failed["status"])
	assert.Equal(t, "boom", failed["error"])
	assert.NotContains(t, failed, "cost")
	assert.NotContains(t, failed, "output_path")

	ok := results[0].(map[string]any)
	assert.Equal(t, "outputs/a.mp4", ok["output_path"])
	assert.Equal(t, 0.28, ok["cost"])
	assert.NotContains(t, ok, "error")
}

func TestJobResult_ZeroCostSuccessKeepsCostField(t *testing.T) {
	res := batch.JobResult{JobID: "free", Status: batch.StatusSuccess, OutputRef: "outputs/free.mp4", Tags: []string{}, Attempts: 1}

	raw := testutil.MustParseJSON[map[string]any](testutil.MustJSON(res))
	require.Contains(t, raw, "cost")
	assert.Equal(t, 0.0, raw["cost"])

	testutil.AssertJSONEqual(t, map[string]any{
		"job_id":      "free",
		"status":      "success",
		"cost":        0,
		"output_path": "outputs/free.mp4",
		"tags":        []string{},
		"attempts":    1,
		"duration_ms": 0,
	}, raw)
}

func TestJobResult_JSONRoundTripKeepsCost(t *testing.T) {
	in := batch.JobResult{JobID: "a", Status: batch.StatusSuccess, Cost: 0.15, Tags: []string{"t"}, Attempts: 2}

	out := testutil.MustParseJSON[batch.JobResult](testutil.MustJSON(in))
	assert.Equal(t, in, out)

	failed := testutil.MustParseJSON[map[string]any](testutil.MustJSON(batch.JobResult{JobID: "b", Status: batch.StatusError, Error: "boom"}))
	assert.NotContains(t, failed, "cost")
}
