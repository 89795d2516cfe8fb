package batch

import (
	"context"
	"time"
)

// FailedDetail names a failed job and its last error.
type FailedDetail struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchReport aggregates every result of one batch run. It is built once,
// after the last job finishes, and not modified afterwards.
type BatchReport struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	TotalJobs     int            `json:"total_jobs"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
	TotalCost     float64        `json:"total_cost"`
	Results       []JobResult    `json:"results"`
	FailedDetails []FailedDetail `json:"failed_details"`

	// Location is where the report sink stored the report, if anywhere.
	Location string `json:"-"`
}

// NewReport computes batch statistics over results, which are kept in the
// given (completion) order.
func NewReport(id string, ts time.Time, results []JobResult) *BatchReport {
	r := &BatchReport{
		ID:            id,
		Timestamp:     ts,
		TotalJobs:     len(results),
		Results:       make([]JobResult, len(results)),
		FailedDetails: make([]FailedDetail, 0),
	}
	copy(r.Results, results)

	for _, res := range results {
		if res.Succeeded() {
			r.Successful++
			r.TotalCost += res.Cost
			continue
		}
		r.Failed++
		r.FailedDetails = append(r.FailedDetails, FailedDetail{ID: res.JobID, Error: res.Error})
	}
	return r
}

// ReportSink persists a finished report and returns where it went.
type ReportSink interface {
	SaveReport(ctx context.Context, report *BatchReport) (string, error)
}
