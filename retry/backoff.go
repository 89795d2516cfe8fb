package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries   int           // 最大重试次数（0 表示不重试，总尝试次数 = MaxRetries+1）
	InitialDelay time.Duration // 第一次重试前的等待时间（退避单位）
	MaxDelay     time.Duration // 最大延迟时间（<=0 表示不封顶）
	Multiplier   float64       // 延迟时间倍增因子（指数退避）
	Jitter       bool          // 是否添加随机抖动

	// ShouldRetry decides whether a failed attempt is worth another try.
	// nil retries every error.
	ShouldRetry func(err error) bool

	// OnRetry is called before each backoff wait. attempt is the zero-based
	// index of the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep waits for d or until ctx is done. nil uses a timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the batch default: 2 retries, waits of 1s then 2s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// Delay returns the wait inserted after the zero-based attempt index a fails:
// InitialDelay * Multiplier^a, capped by MaxDelay.
func (p *RetryPolicy) Delay(a int) time.Duration {
	if a < 0 {
		a = 0
	}
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(a))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时根据策略重试
	Do(ctx context.Context, fn func(attempt int) error) error

	// DoWithResult 执行函数并返回结果，失败时根据策略重试
	DoWithResult(ctx context.Context, fn func(attempt int) (any, error)) (any, error)
}

// ExhaustedError is returned when every allowed attempt failed.
// Err is the error of the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy *RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// 参数校验
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = 1 * time.Second
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = 2.0
	}
	if policy.Sleep == nil {
		policy.Sleep = SleepContext
	}

	return &backoffRetryer{
		policy: policy,
		logger: logger,
	}
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func(attempt int) error) error {
	_, err := r.DoWithResult(ctx, func(attempt int) (any, error) {
		return nil, fn(attempt)
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func(attempt int) (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("retry cancelled: %w (last error: %v)", err, lastErr)
			}
			return nil, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !r.shouldRetry(err) {
			r.logger.Debug("error is not retryable", zap.Error(err))
			return nil, err
		}

		if attempt >= r.policy.MaxRetries {
			break
		}

		delay := r.calculateDelay(attempt)
		r.logger.Debug("retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, delay)
		}

		// 等待延迟，同时监听 context 取消
		if err := r.policy.Sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry cancelled: %w (last error: %v)", err, lastErr)
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)

	return nil, &ExhaustedError{Attempts: r.policy.MaxRetries + 1, Err: lastErr}
}

// calculateDelay 计算延迟时间，可选 ±25% 抖动
func (r *backoffRetryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.policy.Delay(attempt))

	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	return time.Duration(delay)
}

func (r *backoffRetryer) shouldRetry(err error) bool {
	if r.policy.ShouldRetry == nil {
		return true
	}
	return r.policy.ShouldRetry(err)
}

// SleepContext waits for d on a timer, returning early with ctx.Err() when
// ctx is done. Only the calling goroutine is suspended.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
