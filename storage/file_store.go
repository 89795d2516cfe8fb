package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BaSui01/vidflow/batch"
)

const reportFilePrefix = "batch_report_"

// FileStore writes each report as indented JSON to
// <dir>/batch_report_YYYYMMDD_HHMMSS.json. Reports finishing within the same
// second get a numeric suffix instead of overwriting each other.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty report directory", ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the report directory.
func (s *FileStore) Dir() string { return s.dir }

// SaveReport writes report and returns the file path.
func (s *FileStore) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, path, err := s.create(reportFilePrefix + report.Timestamp.Format("20060102_150405"))
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}

func (s *FileStore) create(stem string) (*os.File, string, error) {
	for i := 0; ; i++ {
		name := stem + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", stem, i)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) || i >= 1000 {
			return nil, "", err
		}
	}
}

// GetReport scans the directory for the report with the given id.
func (s *FileStore) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	var found *batch.BatchReport
	err := s.walk(ctx, func(path string, r *batch.BatchReport) bool {
		if r.ID == id {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ListReports returns summaries newest first.
func (s *FileStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	var out []ReportSummary
	err := s.walk(ctx, func(path string, r *batch.BatchReport) bool {
		out = append(out, summarize(r, path))
		return true
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return limitSummaries(out, limit), nil
}

// walk decodes every report file until fn returns false. Files that are not
// valid reports are skipped.
func (s *FileStore) walk(ctx context.Context, fn func(path string, r *batch.BatchReport) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read report directory: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, reportFilePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var r batch.BatchReport
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if !fn(path, &r) {
			return nil
		}
	}
	return nil
}

// Close closes the store
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks that the directory is still there.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
