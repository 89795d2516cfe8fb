package retry

import "context"

// DoWithResultTyped is a type-safe generic wrapper around Retryer.DoWithResult.
// It eliminates the need for type assertions on the return value.
//
// Usage:
//
//	val, err := retry.DoWithResultTyped[int](r, ctx, func(attempt int) (int, error) {
//	    return 42, nil
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func(attempt int) (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func(attempt int) (any, error) {
		return fn(attempt)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
