// Package errors defines the service error taxonomy. Every rule violation in the
// tracker surfaces as a *ServiceError so the HTTP layer can map it to a status
// code without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable, machine readable error identifier.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries a code, a client-facing message and the HTTP status the
// API should answer with.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches another *ServiceError by code, so callers can write
// errors.Is(err, errors.NotFound("")).
func (e *ServiceError) Is(target error) bool {
	var other *ServiceError
	if !stderrors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...interface{}) *ServiceError {
	return newError(ErrCodeValidation, http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

// NotFound reports a missing entity.
func NotFound(format string, args ...interface{}) *ServiceError {
	return newError(ErrCodeNotFound, http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

// Conflict reports a request that clashes with current state.
func Conflict(format string, args ...interface{}) *ServiceError {
	return newError(ErrCodeConflict, http.StatusConflict, fmt.Sprintf(format, args...), nil)
}

// Forbidden reports an actor lacking the role an operation needs.
func Forbidden(format string, args ...interface{}) *ServiceError {
	return newError(ErrCodeForbidden, http.StatusForbidden, fmt.Sprintf(format, args...), nil)
}

// Unauthorized reports missing or unusable credentials.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return newError(ErrCodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a bearer token that failed validation.
func InvalidToken(err error) *ServiceError {
	return newError(ErrCodeInvalidToken, http.StatusUnauthorized, "invalid or expired token", err)
}

// RateLimitExceeded reports a throttled client.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(ErrCodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *ServiceError {
	return newError(ErrCodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError extracts a *ServiceError from the chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == ErrCodeNotFound
}

// HTTPStatus returns the status code for err, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
