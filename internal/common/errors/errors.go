package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Identity resolution
	ErrCodeNoIdentity      ErrorCode = "NO_IDENTITY"
	ErrCodeInvalidInitData ErrorCode = "INVALID_INIT_DATA"

	// Remote store
	ErrCodeStoreTimeout     ErrorCode = "STORE_TIMEOUT"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeStoreRejected    ErrorCode = "STORE_REJECTED"

	// Cache
	ErrCodeCacheError ErrorCode = "CACHE_ERROR"
	ErrCodeCacheMiss  ErrorCode = "CACHE_MISS"

	// External APIs
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
	ErrCodeRateLimit   ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Referrals
	ErrCodeReferralNotFound ErrorCode = "REFERRAL_NOT_FOUND"
)

// AppError is the typed application error carried across component
// boundaries. The retry-safe writer and the containment layer dispatch on
// its code, so wrapping remote failures into an AppError at the edge is
// what makes the retry/suppress decisions possible downstream.
type AppError struct {
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	Cause     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether retrying the failed operation can help.
func (e *AppError) IsTransient() bool {
	switch e.Code {
	case ErrCodeStoreTimeout, ErrCodeStoreUnavailable, ErrCodeRateLimit:
		return true
	}
	return false
}

// IsPermanent reports whether the operation must not be retried.
func (e *AppError) IsPermanent() bool {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeForbidden, ErrCodeValidation, ErrCodeStoreRejected:
		return true
	}
	return false
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeReferralNotFound
}

// WithContext adds a key/value pair of diagnostic context.
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithUserID(userID string) *AppError {
	e.UserID = userID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// AsAppError extracts an AppError from anywhere in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Transient reports whether err is a retryable failure. Raw errors that
// never went through classification are treated as transient: an
// unclassified driver error is usually a network fault, and retrying an
// idempotent operation is the safer default.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.IsTransient()
	}
	return true
}

// Permanent reports whether err must not be retried.
func Permanent(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.IsPermanent()
	}
	return false
}

// Convenience constructors.

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithContext("field", field)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason))
}

func NewStoreError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStoreUnavailable, fmt.Sprintf("Store operation failed: %s", operation)).
		WithContext("operation", operation)
}

func NewStoreTimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStoreTimeout, fmt.Sprintf("Store operation timed out: %s", operation)).
		WithContext("operation", operation)
}

func NewCacheError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeCacheError, fmt.Sprintf("Cache operation failed: %s", operation)).
		WithContext("operation", operation)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation)).
		WithContext("operation", operation)
}

func NewRateLimitError(service string, retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimit, fmt.Sprintf("Rate limit exceeded for %s", service)).
		WithContext("service", service).
		WithContext("retry_after", retryAfter.String())
}
