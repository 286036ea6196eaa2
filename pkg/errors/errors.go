package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes shared across all packages
const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Verification code errors
	ErrCodeExpired          ErrorCode = "CODE_EXPIRED"
	ErrCodeMismatch         ErrorCode = "CODE_MISMATCH"
	ErrCodeAttemptsExceeded ErrorCode = "ATTEMPTS_EXCEEDED"
	ErrCodeThrottled        ErrorCode = "THROTTLED"

	// Account errors
	ErrCodeAccountNotFound  ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrCodeAlreadyConfirmed ErrorCode = "ALREADY_CONFIRMED"
	ErrCodeNotConfirmed     ErrorCode = "NOT_CONFIRMED"

	// Credential errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodePasswordComplexity ErrorCode = "PASSWORD_COMPLEXITY"

	// Notification errors
	ErrCodeDeliveryFailure ErrorCode = "DELIVERY_FAILURE"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable, user-safe error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeValidation, ErrCodeExpired, ErrCodeMismatch,
		ErrCodePasswordComplexity:
		return http.StatusBadRequest

	// 401 Unauthorized
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized

	// 403 Forbidden: valid credentials, email not verified yet
	case ErrCodeNotConfirmed:
		return http.StatusForbidden

	// 404 Not Found
	case ErrCodeNotFound, ErrCodeAccountNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case ErrCodeAlreadyExists, ErrCodeAlreadyConfirmed:
		return http.StatusConflict

	// 410 Gone: the code set was purged after too many attempts
	case ErrCodeAttemptsExceeded:
		return http.StatusGone

	// 429 Too Many Requests
	case ErrCodeThrottled:
		return http.StatusTooManyRequests

	// 502 Bad Gateway: the mail relay refused an explicit send
	case ErrCodeDeliveryFailure:
		return http.StatusBadGateway

	// 500 Internal Server Error (default)
	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// AlreadyExists creates an "already exists" error
func AlreadyExists(resourceType string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s is already registered", resourceType)
}

// Validation creates a "validation failed" error
func Validation(message string) *Error {
	return New(ErrCodeValidation, message)
}

// Unauthorized creates an "unauthorized" error
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// Throttled creates a "throttled" error carrying the seconds left until a
// new code may be issued
func Throttled(remainingSeconds int) *Error {
	return Newf(ErrCodeThrottled, "you must wait %d seconds before requesting another code", remainingSeconds).
		WithDetail("remaining_seconds", remainingSeconds)
}

// RemainingSeconds extracts the throttle wait from an error, or 0
func RemainingSeconds(err error) int {
	details := GetDetails(err)
	if details == nil {
		return 0
	}
	if v, ok := details["remaining_seconds"].(int); ok {
		return v
	}
	return 0
}
