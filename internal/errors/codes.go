// Package errors provides structured error handling for SchemaFuse.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index/backend errors
//   - 3XX: Timeout/network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates retrieval backend and index errors.
	CategoryIndex Category = "INDEX"
	// CategoryTimeout indicates timeout and network errors.
	CategoryTimeout Category = "TIMEOUT"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index errors (200-299)
	ErrCodeIndexUnavailable      = "ERR_201_INDEX_UNAVAILABLE"
	ErrCodeAllMethodsUnavailable = "ERR_202_ALL_METHODS_UNAVAILABLE"
	ErrCodeCatalogUnavailable    = "ERR_203_CATALOG_UNAVAILABLE"

	// Timeout errors (300-399)
	ErrCodeRetrievalTimeout = "ERR_301_RETRIEVAL_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeQueryEmpty    = "ERR_401_QUERY_EMPTY"
	ErrCodeInvalidConfig = "ERR_402_INVALID_CONFIG"
	ErrCodeInvalidMethod = "ERR_403_INVALID_METHOD"
	ErrCodeInvalidScope  = "ERR_404_INVALID_SCOPE"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed    = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_INDEX_UNAVAILABLE")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '3':
		return CategoryTimeout
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeAllMethodsUnavailable:
		return SeverityError
	case ErrCodeIndexUnavailable, ErrCodeRetrievalTimeout:
		// Single-method failures degrade the result set, they never abort it.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeRetrievalTimeout
}
