package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/pilahub/queue-backend/internal/adapters/primary/http/middleware"
	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
)

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	// Check for AppError first (our custom error type)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, appErr.Err, requestID)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	// Check for ValidationErrors
	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err, requestID)
		h.writeValidationErrorResponse(w, validationErrs)
		return
	}

	// Map known domain errors to HTTP responses
	statusCode, response := h.mapDomainError(err)
	h.logError(r, statusCode, err, requestID)
	h.writeErrorResponse(w, statusCode, response)
}

// mapDomainError converts domain errors to HTTP status codes and responses
func (h *ErrorHandler) mapDomainError(err error) (int, ErrorResponse) {
	// Partial resets carry data the admin panel needs to show survivors.
	var partial *apperrors.PartialResetError
	if errors.As(err, &partial) {
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Queue reset completed partially",
			Code:  "PARTIAL_RESET_FAILURE",
			Details: map[string]interface{}{
				"deleted":   partial.Deleted,
				"failedIds": partial.FailedIDs,
			},
		}
	}

	switch {
	// Authentication
	case errors.Is(err, apperrors.ErrIncorrectCode):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Incorrect queue code",
			Code:  "INCORRECT_CODE",
		}
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Invalid credentials",
			Code:  "INVALID_CREDENTIALS",
		}
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Authentication required",
			Code:  "UNAUTHORIZED",
		}

	// Not Found errors
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ticket not found",
			Code:  "TICKET_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrQueueNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Queue not found",
			Code:  "QUEUE_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrServiceTypeNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Service type not found",
			Code:  "SERVICE_TYPE_NOT_FOUND",
		}

	// Business rule violations
	case errors.Is(err, apperrors.ErrQueueEmpty):
		return http.StatusConflict, ErrorResponse{
			Error: "No waiting tickets in the queue",
			Code:  "QUEUE_EMPTY",
		}
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict, ErrorResponse{
			Error: "Invalid ticket status transition",
			Code:  "INVALID_TRANSITION",
		}
	case errors.Is(err, apperrors.ErrResetNotRequested):
		return http.StatusConflict, ErrorResponse{
			Error: "No pending reset request, or the request expired",
			Code:  "RESET_NOT_REQUESTED",
		}
	case errors.Is(err, apperrors.ErrServiceSelectionRequired):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: "A service type must be selected to join this queue",
			Code:  "SERVICE_SELECTION_REQUIRED",
		}

	// Validation errors
	case errors.Is(err, apperrors.ErrServiceNameRequired),
		errors.Is(err, apperrors.ErrInvalidServiceIcon),
		errors.Is(err, apperrors.ErrInvalidServiceColor):
		return http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		}

	// Storage
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: "Storage is temporarily unavailable",
			Code:  "STORAGE_UNAVAILABLE",
		}

	// Rate limiting
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests. Please try again later.",
			Code:  "RATE_LIMITED",
		}

	// Default to internal server error
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// logError logs the error with appropriate context
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error, requestID string) {
	logAttrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	// Log at different levels based on status code
	switch {
	case statusCode >= 500:
		h.logger.Error("server error", logAttrs...)
	case statusCode >= 400:
		h.logger.Warn("client error", logAttrs...)
	default:
		h.logger.Info("request error", logAttrs...)
	}
}

// writeErrorResponse writes a JSON error response
func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// writeValidationErrorResponse writes a validation error response
func (h *ErrorHandler) writeValidationErrorResponse(w http.ResponseWriter, errs *apperrors.ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(ValidationErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: errs.Errors,
	})
}
