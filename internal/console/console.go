// Package console renders batch progress and the final summary for the
// operator.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/storage"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Printer writes operator output. Progress may be called from many
// goroutines.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// Loaded announces the job file.
func (p *Printer) Loaded(n int, path string) {
	p.println(mutedStyle.Render(fmt.Sprintf("Loaded %d jobs from %s", n, path)))
}

// Filtered reports how many jobs a selection filter kept.
func (p *Printer) Filtered(kept, total int, expr string) {
	p.println(mutedStyle.Render(fmt.Sprintf("Filter %q selected %d of %d jobs", expr, kept, total)))
}

// Progress prints one line per finished job. It matches batch.ProgressFunc.
func (p *Printer) Progress(res batch.JobResult, done, total int) {
	counter := mutedStyle.Render(fmt.Sprintf("[%d/%d]", done, total))
	var line string
	if res.Succeeded() {
		line = fmt.Sprintf("%s %s %s %s", counter, okStyle.Render("✓"), res.JobID, mutedStyle.Render(FormatCost(res.Cost)))
	} else {
		line = fmt.Sprintf("%s %s %s: %s", counter, errorStyle.Render("✗"), res.JobID, res.Error)
	}
	p.println(line)
}

// Summary prints the batch statistics table followed by the failed jobs.
func (p *Printer) Summary(report *batch.BatchReport) {
	p.println("\n" + RenderSummary(report))
	if report.Failed > 0 {
		p.println("\n" + RenderFailures(report))
	}
}

// Saved reports where the report went.
func (p *Printer) Saved(location string) {
	p.println(mutedStyle.Render("Report saved to " + location))
}

// Warn prints a highlighted warning line.
func (p *Printer) Warn(msg string) {
	p.println(warnStyle.Render(msg))
}

// RenderSummary renders the summary table.
func RenderSummary(report *batch.BatchReport) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Metric", "Value").
		Row("Total Jobs", fmt.Sprintf("%d", report.TotalJobs)).
		Row("Successful", okStyle.Render(fmt.Sprintf("%d", report.Successful))).
		Row("Failed", failedCell(report.Failed)).
		Row("Total Cost", FormatCost(report.TotalCost)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Batch Summary"), t.String())
}

func failedCell(n int) string {
	s := fmt.Sprintf("%d", n)
	if n > 0 {
		return errorStyle.Render(s)
	}
	return s
}

// RenderFailures lists failed jobs with their last error.
func RenderFailures(report *batch.BatchReport) string {
	out := warnStyle.Render(fmt.Sprintf("Warning: %d jobs failed", report.Failed))
	for _, d := range report.FailedDetails {
		out += fmt.Sprintf("\n  - %s: %s", d.ID, d.Error)
	}
	return out
}

// RenderReportList renders stored reports as a table, newest first as given.
func RenderReportList(rows []storage.ReportSummary) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No reports found")
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "Finished", "Jobs", "OK", "Failed", "Cost", "Location").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(
			r.ID,
			r.Timestamp.Local().Format(time.DateTime),
			fmt.Sprintf("%d", r.TotalJobs),
			fmt.Sprintf("%d", r.Successful),
			failedCell(r.Failed),
			FormatCost(r.TotalCost),
			r.Location,
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Batch Reports (%d)", len(rows))), t.String())
}

// FormatCost renders dollars with two decimals.
func FormatCost(c float64) string {
	return fmt.Sprintf("$%.2f", c)
}
