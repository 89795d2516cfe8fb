// MockProvider 是 batch.GenerationProvider 的测试模拟实现。
//
// 支持按 Job 脚本化每次尝试的结果、模拟耗时与并发观测。
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/vidflow/batch"
)

// --- MockProvider 结构 ---

// Outcome 描述一次调用的脚本化结果
type Outcome struct {
	Generation *batch.Generation
	Err        error
	// Delay 模拟 provider 调用耗时
	Delay time.Duration
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Prompt string
	Model  string
	Err    error
	At     time.Time
}

// MockProvider 是 GenerationProvider 的模拟实现。调用按 prompt 匹配脚本，
// 脚本耗尽后重复最后一个结果；没有脚本时返回默认结果。
type MockProvider struct {
	mu sync.Mutex

	scripts  map[string][]Outcome
	fallback Outcome
	calls    []MockProviderCall
	hook     func(ctx context.Context, req *batch.GenerationRequest)

	inFlight atomic.Int64
	peak     atomic.Int64
}

// ErrMockFailure 是默认注入的失败
var ErrMockFailure = errors.New("mock provider failure")

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider，默认每次调用成功且花费 0.28
func NewMockProvider() *MockProvider {
	return &MockProvider{
		scripts: make(map[string][]Outcome),
		fallback: Outcome{Generation: &batch.Generation{
			Cost:      0.28,
			OutputRef: "outputs/mock.mp4",
		}},
	}
}

// WithDefault 设置没有脚本时的结果
func (m *MockProvider) WithDefault(o Outcome) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = o
	return m
}

// WithDelay 为默认结果设置耗时
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback.Delay = d
	return m
}

// Script 为指定 prompt 设置按顺序返回的结果
func (m *MockProvider) Script(prompt string, outcomes ...Outcome) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[prompt] = outcomes
	return m
}

// Succeed 让指定 prompt 直接成功并返回 cost
func (m *MockProvider) Succeed(prompt string, cost float64) *MockProvider {
	return m.Script(prompt, Outcome{Generation: &batch.Generation{
		Cost:      cost,
		OutputRef: fmt.Sprintf("outputs/%s.mp4", prompt),
	}})
}

// AlwaysFail 让指定 prompt 每次都返回 err
func (m *MockProvider) AlwaysFail(prompt string, err error) *MockProvider {
	return m.Script(prompt, Outcome{Err: err})
}

// OnCall 注册调用钩子，在返回结果之前执行
func (m *MockProvider) OnCall(fn func(ctx context.Context, req *batch.GenerationRequest)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
	return m
}

// --- GenerationProvider 实现 ---

// Generate 实现 batch.GenerationProvider
func (m *MockProvider) Generate(ctx context.Context, req *batch.GenerationRequest) (*batch.Generation, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	out := m.next(req.Prompt)
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}

	if out.Delay > 0 {
		timer := time.NewTimer(out.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.record(req, ctx.Err())
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	m.record(req, out.Err)
	if out.Err != nil {
		return nil, out.Err
	}
	if out.Generation == nil {
		return nil, nil
	}
	g := *out.Generation
	return &g, nil
}

// next 取出下一个脚本结果，调用方持有锁
func (m *MockProvider) next(prompt string) Outcome {
	script, ok := m.scripts[prompt]
	if !ok || len(script) == 0 {
		return m.fallback
	}
	out := script[0]
	if len(script) > 1 {
		m.scripts[prompt] = script[1:]
	}
	return out
}

func (m *MockProvider) record(req *batch.GenerationRequest, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{
		Prompt: req.Prompt,
		Model:  req.Model,
		Err:    err,
		At:     time.Now(),
	})
}

// --- 查询方法 ---

// Calls 返回调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor 返回指定 prompt 的调用次数
func (m *MockProvider) CallsFor(prompt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Prompt == prompt {
			n++
		}
	}
	return n
}

// PeakInFlight 返回观测到的最大并发调用数
func (m *MockProvider) PeakInFlight() int {
	return int(m.peak.Load())
}

// Reset 清空调用记录
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.peak.Store(0)
}

// --- 预设 Provider ---

// NewFailingProvider 创建每次调用都失败的 MockProvider
func NewFailingProvider(err error) *MockProvider {
	if err == nil {
		err = ErrMockFailure
	}
	return NewMockProvider().WithDefault(Outcome{Err: err})
}
