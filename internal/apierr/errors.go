// Package apierr defines the structured error responses returned by the API.
package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onnwee/tripletree/internal/logger"
)

// ErrorCode represents a structured error code.
type ErrorCode string

const (
	// RUN_ - run lifecycle errors
	ErrRunNotFound     ErrorCode = "RUN_NOT_FOUND"
	ErrRunNotCompleted ErrorCode = "RUN_NOT_COMPLETED"
	ErrRunQueueFailed  ErrorCode = "RUN_QUEUE_FAILED"

	// VALIDATION_ - request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"
	ErrValidationTooLarge     ErrorCode = "VALIDATION_TOO_LARGE"

	// SYSTEM_ - system and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"

	// RATE_LIMIT_ - rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error is a structured API error.
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int
}

// ErrorResponse is the top-level error response wrapper.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates an API error with an HTTP status.
func New(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, status: status}
}

// WithDetails attaches structured details to the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID attaches the request ID to the error.
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code.
func (e *Error) Status() int {
	return e.status
}

// WriteError writes the error as a JSON response.
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// RunNotFound reports a missing run.
func RunNotFound(runID string) *Error {
	return New(ErrRunNotFound, "Run not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"run_id": runID})
}

// RunNotCompleted reports a run whose results are not available yet.
func RunNotCompleted(status string) *Error {
	return New(ErrRunNotCompleted, "Run has not completed", http.StatusConflict).
		WithDetails(map[string]interface{}{"status": status})
}

// RunQueueFailed reports a failure to persist a submitted run.
func RunQueueFailed(message string) *Error {
	if message == "" {
		message = "Failed to queue run"
	}
	return New(ErrRunQueueFailed, message, http.StatusInternalServerError)
}

// ValidationInvalidJSON reports an unparseable request body.
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField reports a missing required field.
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue reports a field with an unusable value.
func ValidationInvalidValue(field, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationTooLarge reports a dataset over the configured point limit.
func ValidationTooLarge(points, limit int) *Error {
	return New(ErrValidationTooLarge, "Dataset exceeds the configured point limit", http.StatusRequestEntityTooLarge).
		WithDetails(map[string]interface{}{"points": points, "limit": limit})
}

// SystemInternal reports an unexpected server error.
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase reports a database failure.
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable reports a temporarily unavailable service.
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// RateLimitGlobal reports the global rate limit being exceeded.
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP reports a per-client rate limit being exceeded.
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes the error with the request ID from the
// request's context attached.
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
