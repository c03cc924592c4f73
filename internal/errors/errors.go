package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeAuthenticationMissing indicates no credential was presented.
	ErrCodeAuthenticationMissing ErrorCode = "authentication_missing"
	// ErrCodeAuthenticationInvalid indicates a credential that is malformed, expired, revoked or wrongly signed.
	ErrCodeAuthenticationInvalid ErrorCode = "authentication_invalid"
	// ErrCodeAuthorizationDenied indicates a valid principal lacking the required role.
	ErrCodeAuthorizationDenied ErrorCode = "authorization_denied"
	// ErrCodeCSRFRejected indicates a state-changing request failed double-submit validation.
	ErrCodeCSRFRejected ErrorCode = "csrf_rejected"
	// ErrCodeBackendUnavailable indicates the identity backend or a store could not be reached.
	ErrCodeBackendUnavailable ErrorCode = "backend_unavailable"
	// ErrCodeInvalidCredential indicates an identity proof that could not be exchanged for a session.
	ErrCodeInvalidCredential ErrorCode = "invalid_credential"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError is a structured application error carrying a code, a message that is
// safe to show callers, and an optional cause for logs.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input for validation errors.
	Field string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps err with an AppError, preserving the cause. Returns nil for a nil err.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with an AppError and a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// AuthenticationMissing reports that no credential was presented.
func AuthenticationMissing() *AppError {
	return New(ErrCodeAuthenticationMissing, "authentication required")
}

// AuthenticationInvalid reports a credential that did not verify.
func AuthenticationInvalid() *AppError {
	return New(ErrCodeAuthenticationInvalid, "session is invalid or expired")
}

// AuthorizationDenied reports a principal without the required role.
func AuthorizationDenied(message string) *AppError {
	return New(ErrCodeAuthorizationDenied, message)
}

// CSRFRejected reports a failed CSRF check.
func CSRFRejected() *AppError {
	return New(ErrCodeCSRFRejected, "invalid or missing CSRF token")
}

// BackendUnavailable wraps an outage of the identity backend or a store.
func BackendUnavailable(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeBackendUnavailable,
		Message: "identity backend unavailable",
		Cause:   cause,
	}
}

// InvalidCredential wraps a failed identity-proof exchange.
func InvalidCredential(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidCredential,
		Message: "identity proof rejected",
		Cause:   cause,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError reports whether err is an AppError with the given code.
func IsAppError(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return IsAppError(err, ErrCodeNotFound) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return IsAppError(err, ErrCodeValidation) }

// IsBackendUnavailable checks if an error is a BackendUnavailable error.
func IsBackendUnavailable(err error) bool { return IsAppError(err, ErrCodeBackendUnavailable) }

// IsInvalidCredential checks if an error is an InvalidCredential error.
func IsInvalidCredential(err error) bool { return IsAppError(err, ErrCodeInvalidCredential) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
