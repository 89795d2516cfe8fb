// Package ctxkeys 定义在批次调用链中传递的 context 键。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	jobIDKey   contextKey = "job_id"
)

// WithBatchID 设置批次 ID
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey, batchID)
}

// BatchID 获取批次 ID
func BatchID(ctx context.Context) (string, bool) {
	return stringValue(ctx, batchIDKey)
}

// WithJobID 设置任务 ID
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobID 获取任务 ID
func JobID(ctx context.Context) (string, bool) {
	return stringValue(ctx, jobIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
