package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/vidflow/batch"
)

// MemoryStore is an in-memory implementation of ReportStore.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	reports map[string]*batch.BatchReport
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStore creates a new in-memory report store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*batch.BatchReport)}
}

// SaveReport stores a copy of report.
func (s *MemoryStore) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	s.reports[report.ID] = cloneReport(report)
	return "memory://" + report.ID, nil
}

// GetReport returns a copy of the stored report.
func (s *MemoryStore) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(r), nil
}

// ListReports returns summaries newest first.
func (s *MemoryStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]ReportSummary, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, summarize(r, "memory://"+r.ID))
	}
	sortNewestFirst(out)
	return limitSummaries(out, limit), nil
}

// Close closes the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func cloneReport(r *batch.BatchReport) *batch.BatchReport {
	c := *r
	c.Results = append([]batch.JobResult(nil), r.Results...)
	c.FailedDetails = append([]batch.FailedDetail(nil), r.FailedDetails...)
	return &c
}

// sortNewestFirst orders by timestamp descending, ties by id.
func sortNewestFirst(s []ReportSummary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Timestamp.Equal(s[j].Timestamp) {
			return s[i].Timestamp.After(s[j].Timestamp)
		}
		return s[i].ID < s[j].ID
	})
}
