package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error for propagation policy decisions
type ErrorType string

const (
	// Sync-tier errors
	ErrorTypeTransport       ErrorType = "TRANSPORT"
	ErrorTypeCacheCorruption ErrorType = "CACHE_CORRUPTION"
	ErrorTypeInvariant       ErrorType = "INVARIANT_VIOLATION"
	ErrorTypeRaceStale       ErrorType = "RACE_STALE"

	// General errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeTimeout    ErrorType = "TIMEOUT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewTransportError creates a transport error for a failed remote operation.
// Transport errors are surfaced to the user once per user-initiated action.
func NewTransportError(operation string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransport,
		Message: fmt.Sprintf("remote operation '%s' failed", operation),
		Cause:   err,
	}
}

// NewCacheCorruptionError creates a cache corruption error.
// These are always absorbed locally and degrade to a cache miss.
func NewCacheCorruptionError(key string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeCacheCorruption,
		Message: fmt.Sprintf("cache entry '%s' is unreadable", key),
		Cause:   err,
	}
}

// NewInvariantError creates an invariant violation error
func NewInvariantError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvariant,
		Message: message,
	}
}

// NewRaceStaleError marks an async result that outlived its context.
// Stale results are silently discarded, never surfaced.
func NewRaceStaleError(operation string) *AppError {
	return &AppError{
		Type:    ErrorTypeRaceStale,
		Message: fmt.Sprintf("result of '%s' no longer matches current selection", operation),
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: fmt.Sprintf("operation '%s' timed out", operation),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsTransport checks if an error is a transport error
func IsTransport(err error) bool {
	return IsType(err, ErrorTypeTransport)
}

// IsCacheCorruption checks if an error is a cache corruption error
func IsCacheCorruption(err error) bool {
	return IsType(err, ErrorTypeCacheCorruption)
}

// IsRaceStale checks if an error is a stale-response marker
func IsRaceStale(err error) bool {
	return IsType(err, ErrorTypeRaceStale)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return IsType(err, ErrorTypeTimeout)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
