// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/batch"
	"github.com/BaSui01/vidflow/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 batch.Observer
type Collector struct {
	// 任务指标
	jobsStarted  *prometheus.CounterVec
	jobsFinished *prometheus.CounterVec
	jobsInFlight prometheus.Gauge
	jobAttempts  *prometheus.HistogramVec
	jobCost      *prometheus.CounterVec

	// 生成调用指标
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec

	// 批次指标
	batchesTotal  *prometheus.CounterVec
	lastBatchJobs *prometheus.GaugeVec
	lastBatchCost prometheus.Gauge
	budgetAlerts  prometheus.Counter

	started sync.Map // job id -> struct{}
	logger  *zap.Logger
}

// NewCollector 创建指标收集器并注册到 reg；reg 为 nil 时使用默认 registry
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.jobsStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of jobs that acquired a slot",
		},
		[]string{"model"},
	)

	c.jobsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs with a terminal result",
		},
		[]string{"model", "status"},
	)

	c.jobsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently holding a concurrency slot",
		},
	)

	c.jobAttempts = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_attempts",
			Help:      "Provider calls made per job",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		},
		[]string{"status"},
	)

	c.jobCost = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_cost_dollars_total",
			Help:      "Total generation cost of successful jobs in USD",
		},
		[]string{"model"},
	)

	c.attemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Total number of provider calls",
		},
		[]string{"model", "outcome"},
	)

	c.attemptDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempt_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"model"},
	)

	c.batchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of finished batches",
		},
		[]string{"persisted"},
	)

	c.lastBatchJobs = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_jobs",
			Help:      "Job counts of the most recent batch",
		},
		[]string{"status"},
	)

	c.lastBatchCost = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_cost_dollars",
			Help:      "Total cost of the most recent batch in USD",
		},
	)

	c.budgetAlerts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_alerts_total",
			Help:      "Total number of cost alerts raised",
		},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 batch.Observer
// =============================================================================

// JobStarted implements batch.Observer.
func (c *Collector) JobStarted(job batch.Job) {
	if _, loaded := c.started.LoadOrStore(job.ID, struct{}{}); loaded {
		return
	}
	c.jobsStarted.WithLabelValues(job.Model).Inc()
	c.jobsInFlight.Inc()
}

// AttemptFinished implements batch.Observer.
func (c *Collector) AttemptFinished(job batch.Job, attempt int, elapsed time.Duration, err error) {
	c.attemptsTotal.WithLabelValues(job.Model, outcome(err)).Inc()
	c.attemptDuration.WithLabelValues(job.Model).Observe(elapsed.Seconds())
}

// JobFinished implements batch.Observer. Jobs that never started (cancelled
// or malformed) are counted but do not touch the in-flight gauge.
func (c *Collector) JobFinished(result batch.JobResult) {
	if _, ok := c.started.LoadAndDelete(result.JobID); ok {
		c.jobsInFlight.Dec()
	}
	c.jobsFinished.WithLabelValues(result.Model, string(result.Status)).Inc()
	c.jobAttempts.WithLabelValues(string(result.Status)).Observe(float64(result.Attempts))
	if result.Succeeded() {
		c.jobCost.WithLabelValues(result.Model).Add(result.Cost)
	}
}

// =============================================================================
// 📦 批次与预算
// =============================================================================

// RecordBatch 记录一个已完成批次；persisted 表示报告是否写入存储
func (c *Collector) RecordBatch(report *batch.BatchReport, persisted bool) {
	if report == nil {
		return
	}
	label := "false"
	if persisted {
		label = "true"
	}
	c.batchesTotal.WithLabelValues(label).Inc()
	c.lastBatchJobs.WithLabelValues("total").Set(float64(report.TotalJobs))
	c.lastBatchJobs.WithLabelValues("success").Set(float64(report.Successful))
	c.lastBatchJobs.WithLabelValues("error").Set(float64(report.Failed))
	c.lastBatchCost.Set(report.TotalCost)
}

// RecordBudgetAlert 记录一次成本告警
func (c *Collector) RecordBudgetAlert() {
	c.budgetAlerts.Inc()
}

// outcome 将错误归类为有限的标签值
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var te *types.Error
	if errors.As(err, &te) {
		return string(te.Code)
	}
	return "error"
}
