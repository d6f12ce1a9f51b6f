package errors

import (
	"errors"
	"fmt"
)

// FuseError is the structured error type for SchemaFuse.
// It provides rich context for error handling, logging, and user presentation.
type FuseError struct {
	// Code is the unique error code (e.g., "ERR_201_INDEX_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Timeout, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FuseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FuseError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FuseError.
func (e *FuseError) Is(target error) bool {
	if t, ok := target.(*FuseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FuseError) WithDetail(key, value string) *FuseError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *FuseError) WithSuggestion(suggestion string) *FuseError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FuseError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FuseError {
	return &FuseError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FuseError from an existing error.
// The error's message becomes the FuseError message.
func Wrap(code string, err error) *FuseError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IndexUnavailable creates an error for a retrieval method whose
// backing index does not exist or is not ready. The method name is
// recorded as a detail so callers can attribute the failure.
func IndexUnavailable(method string) *FuseError {
	return New(ErrCodeIndexUnavailable,
		fmt.Sprintf("no ready index for method %q", method), nil).
		WithDetail("method", method).
		WithSuggestion("build the backing index for this method before searching")
}

// RetrievalTimeout creates an error for a retrieval method that
// exceeded its per-query deadline. Treated like IndexUnavailable for
// fusion, but reported distinctly for observability.
func RetrievalTimeout(method string, cause error) *FuseError {
	return New(ErrCodeRetrievalTimeout,
		fmt.Sprintf("method %q exceeded its retrieval deadline", method), cause).
		WithDetail("method", method)
}

// AllMethodsUnavailable creates the hard failure returned when every
// requested retrieval method failed.
func AllMethodsUnavailable() *FuseError {
	return New(ErrCodeAllMethodsUnavailable,
		"all requested search methods are unavailable", nil).
		WithSuggestion("check index build status with the methods command")
}

// EmptyQuery creates the validation error for empty/whitespace queries.
func EmptyQuery() *FuseError {
	return New(ErrCodeQueryEmpty, "query is empty or whitespace-only", nil)
}

// InvalidConfig creates a validation error for a bad retrieval
// configuration field.
func InvalidConfig(field, reason string) *FuseError {
	return New(ErrCodeInvalidConfig,
		fmt.Sprintf("invalid config field %q: %s", field, reason), nil).
		WithDetail("field", field)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *FuseError {
	return New(ErrCodeInternal, message, cause)
}

// IsUnavailable reports whether err represents a missing/unready
// backing index (including timeouts, which fusion treats the same way).
func IsUnavailable(err error) bool {
	code := GetCode(err)
	return code == ErrCodeIndexUnavailable || code == ErrCodeRetrievalTimeout
}

// IsTimeout reports whether err is a retrieval timeout.
func IsTimeout(err error) bool {
	return GetCode(err) == ErrCodeRetrievalTimeout
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a FuseError with Retryable flag set.
func IsRetryable(err error) bool {
	var fe *FuseError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// GetCode extracts the error code from a FuseError anywhere in the
// error chain. Returns empty string if no FuseError is present.
func GetCode(err error) string {
	var fe *FuseError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from a FuseError.
// Returns empty string if not a FuseError.
func GetCategory(err error) Category {
	var fe *FuseError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ""
}

// Method extracts the method detail from a FuseError, if present.
func Method(err error) string {
	var fe *FuseError
	if errors.As(err, &fe) {
		return fe.Details["method"]
	}
	return ""
}
