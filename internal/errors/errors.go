package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeInvalidCredential    ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeCredentialIPLocked   ErrorCode = "CREDENTIAL_IP_LOCKED"
	ErrCodeTooManyAdminAttempts ErrorCode = "TOO_MANY_ADMIN_ATTEMPTS"
	ErrCodeInvalidAdminSecret   ErrorCode = "INVALID_ADMIN_SECRET"
	ErrCodeAdminNotConfigured   ErrorCode = "ADMIN_NOT_CONFIGURED"

	// Event processing
	ErrCodeUnauthorizedEvent    ErrorCode = "UNAUTHORIZED_EVENT"
	ErrCodeDuplicateEvent       ErrorCode = "DUPLICATE_EVENT"
	ErrCodeUnknownPendingEffect ErrorCode = "UNKNOWN_PENDING_EFFECT"
	ErrCodeUnknownCommand       ErrorCode = "UNKNOWN_COMMAND"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Chat
	ErrCodeChatDeliveryFailed ErrorCode = "CHAT_DELIVERY_FAILED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func InvalidCredential() *AppError {
	return New(ErrCodeInvalidCredential, "Invalid credential")
}

func CredentialIPLocked() *AppError {
	return New(ErrCodeCredentialIPLocked, "Credential is locked to another network origin")
}

func TooManyAdminAttempts() *AppError {
	return New(ErrCodeTooManyAdminAttempts, "Too many failed attempts")
}

func InvalidAdminSecret() *AppError {
	return New(ErrCodeInvalidAdminSecret, "Invalid admin secret")
}

func AdminNotConfigured() *AppError {
	return New(ErrCodeAdminNotConfigured, "Admin access is not configured")
}

func UnauthorizedEvent(event string) *AppError {
	return New(ErrCodeUnauthorizedEvent, fmt.Sprintf("%s requires a bound credential", event))
}

func DuplicateEvent(key string) *AppError {
	return New(ErrCodeDuplicateEvent, fmt.Sprintf("duplicate event %s", key))
}

func UnknownPendingEffect(id string) *AppError {
	return New(ErrCodeUnknownPendingEffect, fmt.Sprintf("unknown pending effect %s", id))
}

func UnknownCommand(name string) *AppError {
	return New(ErrCodeUnknownCommand, fmt.Sprintf("unknown command %s", name))
}

func ChatDeliveryFailed(cause error) *AppError {
	return Wrap(ErrCodeChatDeliveryFailed, "Chat announcement not delivered", cause)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return GetCode(err) == code
}
