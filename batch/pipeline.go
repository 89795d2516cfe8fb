package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/vidflow/internal/ctxkeys"
)

var (
	ErrInvalidConfig      = errors.New("invalid batch config")
	ErrDuplicateJobID     = errors.New("duplicate job id")
	ErrReportNotPersisted = errors.New("batch report not persisted")
)

const tracerName = "github.com/BaSui01/vidflow/batch"

// SlotPolicy decides how long a job holds its concurrency slot.
type SlotPolicy string

const (
	// SlotHold binds the slot to the job for its whole retry lifetime,
	// backoff waits included.
	SlotHold SlotPolicy = "hold"
	// SlotPerAttempt holds the slot only while a provider call is in flight.
	// The first call uses the slot taken at dispatch; each retry reacquires.
	SlotPerAttempt SlotPolicy = "per_attempt"
)

// Config is the batch-level concurrency and retry policy.
type Config struct {
	MaxConcurrent int           `json:"max_concurrent" yaml:"max_concurrent"`
	RetryCount    int           `json:"retry_count" yaml:"retry_count"`
	BackoffUnit   time.Duration `json:"backoff_unit" yaml:"backoff_unit"`
	MaxBackoff    time.Duration `json:"max_backoff" yaml:"max_backoff"`
	SlotPolicy    SlotPolicy    `json:"slot_policy" yaml:"slot_policy"`
}

// DefaultConfig returns 5 slots, 2 retries and a one second backoff unit.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: DefaultMaxConcurrent,
		RetryCount:    DefaultRetryCount,
		BackoffUnit:   time.Second,
		SlotPolicy:    SlotHold,
	}
}

// Validate rejects configurations no batch can run under.
func (c Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max_concurrent must be positive, got %d", ErrInvalidConfig, c.MaxConcurrent)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("%w: retry_count must not be negative, got %d", ErrInvalidConfig, c.RetryCount)
	}
	switch c.SlotPolicy {
	case "", SlotHold, SlotPerAttempt:
	default:
		return fmt.Errorf("%w: unknown slot_policy %q", ErrInvalidConfig, c.SlotPolicy)
	}
	return nil
}

// Pipeline runs batches of jobs against one provider.
type Pipeline struct {
	cfg        Config
	provider   GenerationProvider
	sink       ReportSink
	observer   Observer
	onProgress ProgressFunc
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink persists every report to sink.
func WithSink(sink ReportSink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithObserver registers a lifecycle observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithProgress registers a per-job progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithSleep overrides the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// NewPipeline creates a pipeline. Configuration is validated by Run.
func NewPipeline(cfg Config, provider GenerationProvider, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		provider: provider,
		observer: nopObserver{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.SlotPolicy == "" {
		p.cfg.SlotPolicy = SlotHold
	}
	p.logger = p.logger.With(zap.String("component", "pipeline"))
	p.tracer = otel.Tracer(tracerName)
	return p
}

// Run executes every job and returns the batch report. The returned error is
// non-nil in two cases: the batch was rejected before any job started (nil
// report), or the report could not be persisted (valid report, error wraps
// ErrReportNotPersisted).
func (p *Pipeline) Run(ctx context.Context, jobs []Job) (*BatchReport, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkUniqueIDs(jobs); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	ctx = ctxkeys.WithBatchID(ctx, batchID)
	ctx, span := p.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.jobs", len(jobs)),
		attribute.Int("batch.max_concurrent", p.cfg.MaxConcurrent),
		attribute.Int("batch.retry_count", p.cfg.RetryCount),
	))
	defer span.End()

	p.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("jobs", len(jobs)),
		zap.Int("max_concurrent", p.cfg.MaxConcurrent),
		zap.Int("retry_count", p.cfg.RetryCount),
		zap.String("slot_policy", string(p.cfg.SlotPolicy)),
	)

	ordered := SortByPriority(jobs)
	limiter := NewLimiter(p.cfg.MaxConcurrent)
	agg := NewAggregator(len(ordered), p.onProgress)
	agg.now = p.now

	execCfg := ExecutorConfig{
		RetryCount:  p.cfg.RetryCount,
		BackoffUnit: p.cfg.BackoffUnit,
		MaxBackoff:  p.cfg.MaxBackoff,
		Sleep:       p.sleep,
	}
	executor := NewExecutor(p.provider, execCfg, p.observer, p.logger)

	// The dispatcher acquires every job's first slot in priority order, so
	// dispatch order follows SortByPriority under both slot policies even
	// though completion order does not.
	var g errgroup.Group
	for i, job := range ordered {
		if err := limiter.Acquire(ctx); err != nil {
			p.logger.Warn("batch cancelled before all jobs started",
				zap.Int("not_started", len(ordered)-i),
				zap.Error(err),
			)
			for _, rest := range ordered[i:] {
				res := errorResult(rest, "batch cancelled: "+err.Error(), 0, 0)
				p.observer.JobFinished(res)
				agg.Add(res)
			}
			break
		}
		g.Go(func() error {
			agg.Add(p.runJob(ctx, job, limiter, executor, execCfg))
			return nil
		})
	}
	_ = g.Wait()

	report := agg.Close(batchID)
	span.SetAttributes(
		attribute.Int("batch.successful", report.Successful),
		attribute.Int("batch.failed", report.Failed),
		attribute.Float64("batch.total_cost", report.TotalCost),
	)
	p.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed),
		zap.Float64("total_cost", report.TotalCost),
	)

	if p.sink == nil {
		return report, nil
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	location, err := p.sink.SaveReport(saveCtx, report)
	if err != nil {
		p.logger.Error("failed to persist batch report", zap.String("batch_id", batchID), zap.Error(err))
		span.SetStatus(codes.Error, "report not persisted")
		return report, fmt.Errorf("%w: %v", ErrReportNotPersisted, err)
	}
	report.Location = location
	p.logger.Info("batch report saved", zap.String("location", location))
	return report, nil
}

// runJob executes one job that already holds the slot the dispatcher
// acquired for it, and gives that slot back. A panicking provider turns into
// an error result instead of taking the batch down.
func (p *Pipeline) runJob(ctx context.Context, job Job, limiter *Limiter, executor *Executor, execCfg ExecutorConfig) (res JobResult) {
	release := limiter.Release
	if p.cfg.SlotPolicy == SlotPerAttempt {
		gate := &attemptGate{next: p.provider, limiter: limiter, held: true}
		release = gate.done
		executor = NewExecutor(gate, execCfg, p.observer, p.logger)
	}
	defer release()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			res = errorResult(job, fmt.Sprintf("job panicked: %v", r), 0, 0)
			p.observer.JobFinished(res)
		}
	}()

	ctx, span := p.tracer.Start(ctx, "batch.job", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.model", job.Model),
		attribute.Int("job.priority", job.Priority),
	))
	defer span.End()

	res = executor.Execute(ctxkeys.WithJobID(ctx, job.ID), job)
	span.SetAttributes(attribute.Int("job.attempts", res.Attempts))
	if !res.Succeeded() {
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}

// attemptGate holds a limiter slot only while a provider call is in flight.
// The first call runs on the slot the dispatcher acquired; every retry
// reacquires one. A gate belongs to a single job and is not shared.
type attemptGate struct {
	next    GenerationProvider
	limiter *Limiter
	held    bool
}

func (g *attemptGate) Generate(ctx context.Context, req *GenerationRequest) (*Generation, error) {
	if !g.held {
		if err := g.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}
	g.held = false
	defer g.limiter.Release()
	return g.next.Generate(ctx, req)
}

// done returns the dispatcher's slot if no provider call consumed it, e.g.
// for a job rejected by validation.
func (g *attemptGate) done() {
	if g.held {
		g.held = false
		g.limiter.Release()
	}
}

func checkUniqueIDs(jobs []Job) error {
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateJobID, j.ID)
		}
		seen[j.ID] = struct{}{}
	}
	return nil
}
