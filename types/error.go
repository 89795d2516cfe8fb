package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across vidflow.
type ErrorCode string

// Job and configuration error codes. These are never retried.
const (
	ErrInvalidJob     ErrorCode = "INVALID_JOB"
	ErrModelNotFound  ErrorCode = "MODEL_NOT_FOUND"
	ErrInvalidConfig  ErrorCode = "INVALID_CONFIG"
	ErrCancelled      ErrorCode = "CANCELLED"
	ErrBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
)

// Provider error codes. These are retryable unless marked otherwise.
const (
	ErrUpstreamError    ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout  ErrorCode = "UPSTREAM_TIMEOUT"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrAuthentication   ErrorCode = "AUTHENTICATION"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrDownloadFailed   ErrorCode = "DOWNLOAD_FAILED"
	ErrProviderMissing  ErrorCode = "PROVIDER_NOT_CONFIGURED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// InvalidJob builds a non-retryable validation error for a malformed job record.
func InvalidJob(format string, args ...any) *Error {
	return NewError(ErrInvalidJob, fmt.Sprintf(format, args...))
}

// Upstream builds a retryable provider error.
func Upstream(provider string, status int, message string) *Error {
	code := ErrUpstreamError
	switch {
	case status == 429:
		code = ErrRateLimited
	case status == 401 || status == 403:
		code = ErrAuthentication
	case status == 408 || status == 504:
		code = ErrUpstreamTimeout
	}
	// 认证失败重试也无意义
	retryable := code != ErrAuthentication
	return NewError(code, message).
		WithHTTPStatus(status).
		WithProvider(provider).
		WithRetryable(retryable)
}

// IsRetryable checks if an error is retryable. It looks through wrapped errors.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsTransient reports whether the retry loop should try again after err.
// Structured errors decide for themselves. Plain context errors never retry
// and any other plain error is treated as a transient provider failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
