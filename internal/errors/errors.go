package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for better error handling
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigLoad     ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"
	ErrCodeOriginNotFound ErrorCode = "ORIGIN_UNRESOLVED"

	// Key-value store errors
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeStoreTimeout     ErrorCode = "STORE_TIMEOUT"
	ErrCodeKeyNotFound      ErrorCode = "STORE_KEY_NOT_FOUND"
	ErrCodeMalformedPayload ErrorCode = "PAYLOAD_MALFORMED"

	// Request processing errors
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeUpstreamFailed       ErrorCode = "UPSTREAM_FAILED"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// RouterError represents a structured error with context
type RouterError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *RouterError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Component, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *RouterError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error code
func (e *RouterError) Is(target error) bool {
	if t, ok := target.(*RouterError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithMetadata adds metadata to the error
func (e *RouterError) WithMetadata(key string, value interface{}) *RouterError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *RouterError) HTTPStatusCode() int {
	switch e.Code {
	case ErrCodeInvalidRequest, ErrCodeMalformedPayload, ErrCodeConfigInvalid:
		return 400
	case ErrCodeAuthenticationFailed:
		return 401
	case ErrCodeKeyNotFound:
		return 404
	case ErrCodeRateLimitExceeded:
		return 429
	case ErrCodeUpstreamFailed:
		return 502
	case ErrCodeStoreUnavailable:
		return 503
	case ErrCodeStoreTimeout:
		return 504
	default:
		return 500
	}
}

// NewError creates a new RouterError
func NewError(code ErrorCode, component, message string) *RouterError {
	return &RouterError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorWithCause creates a new RouterError with an underlying cause
func NewErrorWithCause(code ErrorCode, component, message string, cause error) *RouterError {
	return &RouterError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
		Details:   cause.Error(),
	}
}

// WrapError wraps an existing error with RouterError structure
func WrapError(err error, code ErrorCode, component, message string) *RouterError {
	if err == nil {
		return nil
	}
	return NewErrorWithCause(code, component, message, err)
}

// NewKeyNotFoundError reports an absent key in the configuration store
func NewKeyNotFoundError(key string) *RouterError {
	return NewError(
		ErrCodeKeyNotFound,
		"store",
		fmt.Sprintf("No routing info found for %s", key),
	).WithMetadata("key", key)
}

// NewStoreError classifies a failed store lookup as a timeout or an outage
func NewStoreError(key string, cause error) *RouterError {
	code := ErrCodeStoreUnavailable
	if errors.Is(cause, context.DeadlineExceeded) {
		code = ErrCodeStoreTimeout
	}
	return NewErrorWithCause(
		code,
		"store",
		fmt.Sprintf("Key lookup failed for %s", key),
		cause,
	).WithMetadata("key", key)
}

// NewMalformedPayloadError reports a stored value that could not be decoded
func NewMalformedPayloadError(key string, cause error) *RouterError {
	return NewErrorWithCause(
		ErrCodeMalformedPayload,
		"resolver",
		fmt.Sprintf("Error parsing routing info for %s", key),
		cause,
	).WithMetadata("key", key)
}

// NewOriginNotFoundError reports an origin identifier missing from the origins table
func NewOriginNotFoundError(origin string) *RouterError {
	return NewError(
		ErrCodeOriginNotFound,
		"config",
		fmt.Sprintf("Origin %s has no host configured", origin),
	).WithMetadata("origin", origin)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var rErr *RouterError
	if errors.As(err, &rErr) {
		return rErr.Code
	}
	return ErrCodeInternalError
}

// GetHTTPStatusCode gets the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	var rErr *RouterError
	if errors.As(err, &rErr) {
		return rErr.HTTPStatusCode()
	}
	return 500
}
