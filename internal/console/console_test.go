package console

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/storage"
	"github.com/BaSui01/vidflow/testutil"
)

func costReport() *batch.BatchReport {
	return batch.NewReport("b", time.Now(), []batch.JobResult{
		{JobID: "A", Status: batch.StatusSuccess, Cost: 0.28},
		{JobID: "B", Status: batch.StatusSuccess, Cost: 0.15},
		{JobID: "C", Status: batch.StatusError, Error: "provider exploded"},
		{JobID: "D", Status: batch.StatusSuccess, Cost: 0.18},
	})
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(costReport())

	for _, want := range []string{"Batch Summary", "Total Jobs", "4", "Successful", "3", "Failed", "1", "Total Cost", "$0.61"} {
		assert.Contains(t, out, want)
	}
	assert.Greater(t, lipgloss.Height(out), 5)
}

func TestRenderFailures(t *testing.T) {
	out := RenderFailures(costReport())

	assert.Contains(t, out, "Warning: 1 jobs failed")
	assert.Contains(t, out, "  - C: provider exploded")
}

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Summary(batch.NewReport("b", time.Now(), nil))
	assert.Contains(t, buf.String(), "$0.00")
	assert.NotContains(t, buf.String(), "Warning")

	buf.Reset()
	p.Summary(costReport())
	assert.Contains(t, buf.String(), "provider exploded")
}

func TestPrinter_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Progress(batch.JobResult{JobID: "A", Status: batch.StatusSuccess, Cost: 0.28}, 1, 2)
	p.Progress(batch.JobResult{JobID: "B", Status: batch.StatusError, Error: "boom"}, 2, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[1/2]")
	assert.Contains(t, lines[0], "A")
	assert.Contains(t, lines[0], "$0.28")
	assert.Contains(t, lines[1], "B: boom")
}

func TestPrinter_ConcurrentProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.Progress(batch.JobResult{JobID: "job", Status: batch.StatusSuccess}, n, 50)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, strings.Count(buf.String(), "\n"))
}

func TestPrinter_Misc(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Loaded(3, "jobs.json")
	p.Filtered(2, 3, "priority > 1")
	p.Saved("outputs/batch_report.json")
	p.Warn("careful")

	out := buf.String()
	assert.Contains(t, out, "Loaded 3 jobs from jobs.json")
	assert.Contains(t, out, "selected 2 of 3 jobs")
	assert.Contains(t, out, "Report saved to outputs/batch_report.json")
	assert.Contains(t, out, "careful")
}

func TestRenderReportList(t *testing.T) {
	out := RenderReportList([]storage.ReportSummary{
		{ID: "batch-new", Timestamp: time.Now(), TotalJobs: 4, Successful: 3, Failed: 1, TotalCost: 0.61, Location: "outputs/batch_report_b.json"},
		{ID: "batch-old", Timestamp: time.Now().Add(-time.Hour), TotalJobs: 1, Successful: 1, TotalCost: 0.28},
	})

	for _, want := range []string{"Batch Reports (2)", "ID", "Cost", "batch-new", "batch-old", "$0.61", "$0.28", "outputs/batch_report_b.json"} {
		testutil.AssertContains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "batch-new"), strings.Index(out, "batch-old"))

	testutil.AssertContains(t, RenderReportList(nil), "No reports found")
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.61", FormatCost(0.61))
	assert.Equal(t, "$12.00", FormatCost(12))
	assert.Equal(t, "$0.00", FormatCost(0))
}
