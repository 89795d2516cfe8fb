// =============================================================================
// 🧠 MockReportSink - 报告持久化模拟实现
// =============================================================================
// 用于测试的 batch.ReportSink 模拟，支持报告记录与错误注入
//
// 使用方法:
//
//	sink := mocks.NewMockReportSink()
//	pipeline := batch.NewPipeline(cfg, provider, batch.WithSink(sink))
//	reports := sink.Reports()
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/vidflow/batch"
)

// =============================================================================
// 🎯 MockReportSink 结构
// =============================================================================

// MockReportSink 是 ReportSink 的模拟实现
type MockReportSink struct {
	mu sync.Mutex

	reports []*batch.BatchReport
	err     error
	ctxErrs []error
}

// NewMockReportSink 创建新的 MockReportSink
func NewMockReportSink() *MockReportSink {
	return &MockReportSink{}
}

// WithError 让每次保存都返回 err
func (m *MockReportSink) WithError(err error) *MockReportSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// =============================================================================
// 🔧 ReportSink 实现
// =============================================================================

// SaveReport 实现 batch.ReportSink
func (m *MockReportSink) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.err != nil {
		return "", m.err
	}
	m.reports = append(m.reports, report)
	return fmt.Sprintf("mock://reports/%s", report.ID), nil
}

// =============================================================================
// 📊 查询方法
// =============================================================================

// Reports 返回已保存的报告
func (m *MockReportSink) Reports() []*batch.BatchReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*batch.BatchReport, len(m.reports))
	copy(out, m.reports)
	return out
}

// ContextErrors 返回每次保存时 context 的状态
func (m *MockReportSink) ContextErrors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]error, len(m.ctxErrs))
	copy(out, m.ctxErrs)
	return out
}
