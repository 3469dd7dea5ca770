package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - these represent business rule violations
var (
	// Gates
	ErrIncorrectCode      = errors.New("incorrect queue code")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Queue & ticket lifecycle
	ErrQueueEmpty               = errors.New("no waiting tickets in queue")
	ErrQueueNotFound            = errors.New("queue not found")
	ErrTicketNotFound           = errors.New("ticket not found")
	ErrInvalidTransition        = errors.New("invalid ticket status transition")
	ErrServiceSelectionRequired = errors.New("service type selection is required")
	ErrResetNotRequested        = errors.New("reset confirmation token is invalid or expired")

	// Service catalog validation
	ErrServiceTypeNotFound = errors.New("service type not found")
	ErrServiceNameRequired = errors.New("service name is required")
	ErrInvalidServiceIcon  = errors.New("invalid service icon")
	ErrInvalidServiceColor = errors.New("invalid service color")

	// Generic
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("resource not found")
	ErrInternal           = errors.New("internal server error")
	ErrBadRequest         = errors.New("bad request")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// PartialResetError reports a best-effort queue reset where some deletions
// failed. Deletions that succeeded are not rolled back.
type PartialResetError struct {
	FailedIDs []int64
	Deleted   int
}

func (e *PartialResetError) Error() string {
	return fmt.Sprintf("queue reset incomplete: %d deleted, %d failed", e.Deleted, len(e.FailedIDs))
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

// NewStorageError marks a failure of the backing store. Transient, surfaced
// to the user, never auto-retried; manual retry is the only recovery.
func NewStorageError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Storage is temporarily unavailable. Please try again.",
		Code:       "STORAGE_UNAVAILABLE",
		StatusCode: 503,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
