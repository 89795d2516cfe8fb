package batch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/retry"
	"github.com/BaSui01/vidflow/types"
)

// DefaultRetryCount is the number of retries after the first attempt.
const DefaultRetryCount = 2

// ExecutorConfig configures the per-job retry loop.
type ExecutorConfig struct {
	// RetryCount is the number of retries after the first attempt.
	RetryCount int
	// BackoffUnit is the wait after the first failure; later waits double.
	BackoffUnit time.Duration
	// MaxBackoff caps a single wait. Zero means uncapped.
	MaxBackoff time.Duration
	// Sleep overrides the backoff wait, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Executor drives one job through the provider with bounded retries.
type Executor struct {
	provider GenerationProvider
	cfg      ExecutorConfig
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExecutor creates an executor. observer and logger may be nil.
func NewExecutor(provider GenerationProvider, cfg ExecutorConfig, observer Observer, logger *zap.Logger) *Executor {
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.SleepContext
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		provider: provider,
		cfg:      cfg,
		observer: observer,
		logger:   logger.With(zap.String("component", "executor")),
		now:      time.Now,
	}
}

// Execute runs job until it succeeds or its attempts are exhausted. It always
// returns a terminal result; failures are reported in the result, never as a
// panic or error.
func (e *Executor) Execute(ctx context.Context, job Job) JobResult {
	start := e.now()
	e.observer.JobStarted(job)

	if err := job.Validate(); err != nil {
		e.logger.Error("job rejected", zap.String("job_id", job.ID), zap.Error(err))
		res := errorResult(job, err.Error(), 0, e.now().Sub(start))
		e.observer.JobFinished(res)
		return res
	}

	policy := &retry.RetryPolicy{
		MaxRetries:   e.cfg.RetryCount,
		InitialDelay: e.cfg.BackoffUnit,
		MaxDelay:     e.cfg.MaxBackoff,
		Multiplier:   2.0,
		ShouldRetry:  types.IsTransient,
		Sleep:        e.cfg.Sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.logger.Warn("retrying job",
				zap.String("job_id", job.ID),
				zap.Int("next_attempt", attempt+2),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)
		},
	}
	retryer := retry.NewBackoffRetryer(policy, e.logger)

	req := requestFor(job)
	attempts := 0
	gen, err := retry.DoWithResultTyped[*Generation](retryer, ctx, func(attempt int) (*Generation, error) {
		attempts++
		callStart := e.now()
		g, err := e.provider.Generate(ctx, req)
		if err == nil && g == nil {
			err = types.NewError(types.ErrGenerationFailed, "provider returned no result").WithRetryable(true)
		}
		e.observer.AttemptFinished(job, attempt, e.now().Sub(callStart), err)
		return g, err
	})
	elapsed := e.now().Sub(start)

	if err != nil {
		res := errorResult(job, failureMessage(err), attempts, elapsed)
		e.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.Int("attempts", attempts),
			zap.String("error", res.Error),
		)
		e.observer.JobFinished(res)
		return res
	}

	res := JobResult{
		JobID:      job.ID,
		Status:     StatusSuccess,
		Model:      job.Model,
		Cost:       gen.Cost,
		OutputRef:  gen.OutputRef,
		Tags:       copyTags(job.Tags),
		Attempts:   attempts,
		DurationMS: elapsed.Milliseconds(),
		Metadata:   gen.Metadata,
	}
	e.logger.Info("job succeeded",
		zap.String("job_id", job.ID),
		zap.Int("attempts", attempts),
		zap.Float64("cost", res.Cost),
	)
	e.observer.JobFinished(res)
	return res
}

// failureMessage extracts the last attempt's error from a retry outcome.
func failureMessage(err error) string {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) && exhausted.Err != nil {
		return exhausted.Err.Error()
	}
	return err.Error()
}
