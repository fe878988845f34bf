package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConversion    ErrorCategory = "conversion"
	CategoryUsage         ErrorCategory = "usage"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeEmptyContent   ErrorCode = "empty_content"

	// Parse errors
	CodeMalformedMarkup  ErrorCode = "malformed_markup"
	CodeMissingElement   ErrorCode = "missing_element"
	CodeInvalidCurrency  ErrorCode = "invalid_currency"
	CodeUnsupportedLevel ErrorCode = "unsupported_level"

	// Validation errors
	CodeInvalidIdentifier ErrorCode = "invalid_identifier"
	CodeMissingField      ErrorCode = "missing_field"
	CodeOutOfRange        ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Usage errors
	CodeNotConfigured     ErrorCode = "not_configured"
	CodeAlreadyConfigured ErrorCode = "already_configured"

	// Conversion errors
	CodeStageFailed ErrorCode = "stage_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ImporterError is the base error type for all application errors
type ImporterError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ImporterError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ImporterError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ImporterError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration, CategoryUsage:
		return 4
	case CategoryConversion, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ImporterError) WithContext(key string, value interface{}) *ImporterError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ImporterError) WithSuggestion(suggestion string) *ImporterError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ImporterError
func New(category ErrorCategory, code ErrorCode, message string) *ImporterError {
	return &ImporterError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ImporterError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ImporterError {
	if err == nil {
		return nil
	}

	return &ImporterError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *ImporterError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates an error about statement content that could not be obtained
func FileError(code ErrorCode, source string, err error) *ImporterError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("statement source not found: %s", source)
		suggestion = "check that the file path or upload key is correct"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading statement source: %s", source)
		suggestion = "check file permissions and ensure you have read access"
	case CodeEmptyContent:
		message = fmt.Sprintf("statement source is empty: %s", source)
		suggestion = "upload or pass a non-empty CAMT.053 document"
	default:
		message = fmt.Sprintf("cannot read statement source: %s", source)
		suggestion = "check the source and try again"
	}

	return newOrWrap(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ImporterError {
	var message, suggestion string

	switch code {
	case CodeInvalidIdentifier:
		message = fmt.Sprintf("invalid identifier in field '%s': %v", field, value)
		suggestion = "use 1-128 characters from A-Z, a-z, 0-9, '-' and '_'"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return newOrWrap(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ImporterError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the mapping profile for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting in the mapping profile"
	case CodeUnsupportedLevel:
		message = fmt.Sprintf("unsupported statement level: %v", value)
		suggestion = "use level A (one record per entry) or B (one record per transaction detail)"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return newOrWrap(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ConversionError creates an error for a pipeline stage that could not run at all
func ConversionError(code ErrorCode, stage string, err error) *ImporterError {
	message := fmt.Sprintf("conversion failed during %s", stage)
	if code != CodeStageFailed {
		message = fmt.Sprintf("conversion error during %s", stage)
	}

	return newOrWrap(err, CategoryConversion, code, message).
		WithSuggestion("inspect the run diagnostics and the statement content").
		WithContext("stage", stage)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ImporterError {
	var message, suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug - please report it with the error details"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "try again or contact support if the problem persists"
	}

	return newOrWrap(err, CategoryInternal, code, message).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ImporterError      `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ImporterError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*ImporterError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsImporterError extracts an ImporterError from an error chain
func AsImporterError(err error) (*ImporterError, bool) {
	var importerErr *ImporterError
	if errors.As(err, &importerErr) {
		return importerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an ImporterError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ImporterError {
	if err == nil {
		return nil
	}

	if importerErr, ok := AsImporterError(err); ok {
		return importerErr
	}

	return Wrap(err, category, code, message)
}
