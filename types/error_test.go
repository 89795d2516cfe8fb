package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("fal")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestUpstream_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{500, ErrUpstreamError, true},
		{429, ErrRateLimited, true},
		{401, ErrAuthentication, false},
		{403, ErrAuthentication, false},
		{504, ErrUpstreamTimeout, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := Upstream("replicate", tt.status, "boom")
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, "replicate", err.Provider)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(InvalidJob("prompt is required")))
	assert.False(t, IsTransient(fmt.Errorf("wrapped: %w", NewError(ErrModelNotFound, "nope"))))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", Upstream("fal", 503, "busy"))))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("poll: %w", context.DeadlineExceeded)))
}

func TestGetErrorCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("job_1: %w", InvalidJob("duration must be positive, got %d", 0))
	assert.Equal(t, ErrInvalidJob, GetErrorCode(err))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Contains(t, err.Error(), "duration must be positive, got 0")
}
