// 包 budget 跟踪视频生成的累计成本并在超出阈值时告警。
package budget

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/types"
)

// DefaultAlertThreshold 是默认的累计成本告警阈值（美元）。
const DefaultAlertThreshold = 50.0

// 成本以微美元存储，便于原子累加。
const microDollars = 1_000_000

// CostConfig 配置成本跟踪。
type CostConfig struct {
	AlertThreshold float64 `json:"alert_threshold" yaml:"alert_threshold" env:"ALERT_THRESHOLD"` // 累计成本超过该值时告警
	MaxTotalCost   float64 `json:"max_total_cost" yaml:"max_total_cost" env:"MAX_TOTAL_COST"`    // 0 表示不限
}

// DefaultCostConfig 返回默认配置。
func DefaultCostConfig() CostConfig {
	return CostConfig{AlertThreshold: DefaultAlertThreshold}
}

// UsageRecord 表示一次成功生成的花费。
type UsageRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	Cost      float64   `json:"cost"`
	Reference string    `json:"reference,omitempty"`
}

// Alert 表示一次成本告警。
type Alert struct {
	Message   string    `json:"message"`
	Threshold float64   `json:"threshold"`
	Current   float64   `json:"current"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertHandler 处理成本告警。处理器在触发告警的 Record 调用中同步执行（不持有锁），
// Record 返回前所有处理器均已完成；处理器应当快速返回。
type AlertHandler func(alert Alert)

// Status 是当前的成本状况。
type Status struct {
	TotalCost   float64            `json:"total_cost"`
	Generations int                `json:"generations"`
	ByModel     map[string]float64 `json:"by_model"`
	Alerted     bool               `json:"alerted"`
	Utilization float64            `json:"utilization"`
}

// CostTracker 累计生成成本。并发安全。
type CostTracker struct {
	config        CostConfig
	logger        *zap.Logger
	alertHandlers []AlertHandler

	total atomic.Int64 // 微美元

	mu      sync.RWMutex
	records []UsageRecord
	alerted bool
}

// NewCostTracker 创建成本跟踪器。AlertThreshold <= 0 时使用默认阈值。
func NewCostTracker(config CostConfig, logger *zap.Logger) *CostTracker {
	if config.AlertThreshold <= 0 {
		config.AlertThreshold = DefaultAlertThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostTracker{
		config: config,
		logger: logger.With(zap.String("component", "cost_tracker")),
	}
}

// OnAlert 注册告警处理器。
func (t *CostTracker) OnAlert(handler AlertHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alertHandlers = append(t.alertHandlers, handler)
}

// CheckBudget 检查再花费 estimatedCost 是否超出总成本上限。
func (t *CostTracker) CheckBudget(estimatedCost float64) error {
	if t.config.MaxTotalCost <= 0 {
		return nil
	}
	current := t.Total()
	if current+estimatedCost > t.config.MaxTotalCost {
		return types.NewError(types.ErrBudgetExceeded,
			fmt.Sprintf("estimated cost %.2f would exceed budget %.2f (spent %.2f)",
				estimatedCost, t.config.MaxTotalCost, current)).
			WithRetryable(false)
	}
	return nil
}

// Record 记录一次花费，累计值首次超过阈值时告警一次。
func (t *CostTracker) Record(record UsageRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	total := float64(t.total.Add(int64(math.Round(record.Cost*microDollars)))) / microDollars

	t.mu.Lock()
	t.records = append(t.records, record)
	fire := total > t.config.AlertThreshold && !t.alerted
	if fire {
		t.alerted = true
	}
	handlers := t.alertHandlers
	t.mu.Unlock()

	t.logger.Debug("cost recorded",
		zap.String("model", record.Model),
		zap.Float64("cost", record.Cost),
		zap.Float64("total", total))

	if fire {
		t.fireAlert(Alert{
			Message:   fmt.Sprintf("cost alert: $%.2f exceeds threshold", total),
			Threshold: t.config.AlertThreshold,
			Current:   total,
			Timestamp: time.Now(),
		}, handlers)
	}
}

// Add 是 Record 的简写。
func (t *CostTracker) Add(model string, cost float64) {
	t.Record(UsageRecord{Model: model, Cost: cost})
}

// Total 返回累计成本。
func (t *CostTracker) Total() float64 {
	return float64(t.total.Load()) / microDollars
}

// Records 返回花费记录的副本。
func (t *CostTracker) Records() []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]UsageRecord, len(t.records))
	copy(out, t.records)
	return out
}

// GetStatus 返回当前成本状况。
func (t *CostTracker) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Status{
		TotalCost:   t.Total(),
		Generations: len(t.records),
		ByModel:     make(map[string]float64),
		Alerted:     t.alerted,
	}
	for _, r := range t.records {
		st.ByModel[r.Model] += r.Cost
	}
	st.Utilization = st.TotalCost / t.config.AlertThreshold
	return st
}

func (t *CostTracker) fireAlert(alert Alert, handlers []AlertHandler) {
	t.logger.Warn("cost alert",
		zap.String("message", alert.Message),
		zap.Float64("threshold", alert.Threshold),
		zap.Float64("current", alert.Current))

	for _, handler := range handlers {
		handler(alert)
	}
}

// Reset 清空所有计数（用于测试）。
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Store(0)
	t.records = nil
	t.alerted = false
}
