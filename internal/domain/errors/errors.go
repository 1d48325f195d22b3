package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors for transport mapping.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeBusiness    ErrorType = "business"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeUnavailable ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewUnavailableError reports a dependency that is not configured or not
// reachable. Save failures surface through this type without touching
// session state.
func NewUnavailableError(dependency, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       "DEPENDENCY_UNAVAILABLE",
		Message:    message,
		Retryable:  true,
		StatusCode: 503,
		Details:    map[string]interface{}{"dependency": dependency},
	}
}

// Predefined common errors
var (
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrSessionNotFound     = NewNotFoundError("session")
	ErrRiskNotFound        = NewNotFoundError("risk")
	ErrControlNotFound     = NewNotFoundError("control")
	ErrQuestionNotFound    = NewNotFoundError("question")
	ErrSubmissionNotFound  = NewNotFoundError("submission")
	ErrUnknownPersona      = NewValidationError("UNKNOWN_PERSONA", "Selected persona is not declared in the catalog")
	ErrPersistenceDisabled = NewUnavailableError("database", "Persistence is not configured")
	ErrNoPersonasSelected  = NewBusinessError("NO_PERSONAS_SELECTED", "At least one persona must be selected")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
