package domain

import (
	"fmt"
	"time"
)

// ErrorKind is the closed failure taxonomy for the generation subsystem.
type ErrorKind string

const (
	ErrScreenshotFailed  ErrorKind = "screenshot_failed"
	ErrAPI               ErrorKind = "api_error"
	ErrRateLimitExceeded ErrorKind = "rate_limit_exceeded"
	ErrInvalidPrompt     ErrorKind = "invalid_prompt"
	ErrStorage           ErrorKind = "storage_error"
	ErrNetwork           ErrorKind = "network_error"
	ErrTimeout           ErrorKind = "timeout_error"
	ErrAuthentication    ErrorKind = "authentication_error"
	ErrContentPolicy     ErrorKind = "content_policy_error"
	ErrQuotaExceeded     ErrorKind = "quota_exceeded"
)

// StructuredError is the unit of failure propagation out of the generation
// subsystem. Callers must branch on Retryable, not on Kind: the same kind can
// arise from both retryable and non-retryable conditions.
type StructuredError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`

	// WaitTime is set only for rate-limit rejections: how long until the
	// window frees up.
	WaitTime time.Duration `json:"wait_time,omitempty"`

	cause error
}

// NewError builds a StructuredError without a wrapped cause.
func NewError(kind ErrorKind, message string, retryable bool) *StructuredError {
	return &StructuredError{Kind: kind, Message: message, Retryable: retryable}
}

// WrapError builds a StructuredError around an underlying failure.
func WrapError(kind ErrorKind, message string, retryable bool, cause error) *StructuredError {
	return &StructuredError{Kind: kind, Message: message, Retryable: retryable, cause: cause}
}

// NewStorageError wraps a store failure into the taxonomy.
func NewStorageError(message string, cause error) *StructuredError {
	return WrapError(ErrStorage, message, false, cause)
}

func (e *StructuredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StructuredError) Unwrap() error {
	return e.cause
}
