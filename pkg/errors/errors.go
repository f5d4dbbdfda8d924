package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryCurrency   ErrorCategory = "currency"
	CategoryReview     ErrorCategory = "review"
	CategoryCommit     ErrorCategory = "commit"
	CategoryUndo       ErrorCategory = "undo"
	CategoryStorage    ErrorCategory = "storage"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Currency errors
	CodeInvalidRate     ErrorCode = "invalid_rate"
	CodeRateUnavailable ErrorCode = "rate_unavailable"

	// Review errors
	CodeIncompleteReview ErrorCode = "incomplete_review"
	CodeUnknownAction    ErrorCode = "unknown_action"

	// Commit errors
	CodeCommitFailure ErrorCode = "commit_failure"
	CodeEmptyBatch    ErrorCode = "empty_batch"

	// Undo errors
	CodeAlreadyUndone ErrorCode = "already_undone"
	CodeUndoExpired   ErrorCode = "undo_expired"
	CodeBatchNotFound ErrorCode = "batch_not_found"

	// Storage errors
	CodeWalletNotFound ErrorCode = "wallet_not_found"
	CodeQueryFailed    ErrorCode = "query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ImportError is the base error type for all engine errors
type ImportError struct {
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
func (e *ImportError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ImportError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ImportError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryCurrency, CategoryReview:
		return 3
	case CategoryCommit, CategoryUndo:
		return 4
	case CategoryStorage:
		return 5
	case CategoryInternal:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ImportError) WithContext(key string, value interface{}) *ImportError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ImportError) WithSuggestion(suggestion string) *ImportError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ImportError
func New(category ErrorCategory, code ErrorCode, message string) *ImportError {
	return &ImportError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ImportError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ImportError {
	if err == nil {
		return nil
	}

	return &ImportError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are valid decimal numbers (e.g., '12.34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "check the date value against the configured date format"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", field, value)
		suggestion = "check the configuration documentation for valid values"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// CurrencyError creates a currency-conversion error
func CurrencyError(code ErrorCode, currency string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidRate:
		message = fmt.Sprintf("invalid exchange rate for currency %s", currency)
		suggestion = "manual rates must be greater than zero"
	case CodeRateUnavailable:
		message = fmt.Sprintf("no exchange rate available for currency %s", currency)
		suggestion = "supply a manual rate or configure a rate provider"
	default:
		message = fmt.Sprintf("currency error for %s", currency)
		suggestion = "check the currency code and rate configuration"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryCurrency, code, message)
	} else {
		result = New(CategoryCurrency, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("currency", currency)
}

// ReviewError creates a duplicate-review error
func ReviewError(code ErrorCode, expected, actual int) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeIncompleteReview:
		message = fmt.Sprintf("duplicate review incomplete: %d of %d duplicates resolved", actual, expected)
		suggestion = "resolve every duplicate or switch to an automatic strategy"
	case CodeUnknownAction:
		message = "unknown duplicate action type"
		suggestion = "use one of merge, keep_both, skip or not_duplicate"
	default:
		message = "duplicate review error"
		suggestion = "check the recorded duplicate actions"
	}

	return New(CategoryReview, code, message).
		WithSuggestion(suggestion).
		WithContext("expected", expected).
		WithContext("actual", actual)
}

// CommitError creates a commit-related error
func CommitError(code ErrorCode, walletID int64, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeCommitFailure:
		message = fmt.Sprintf("import commit failed for wallet %d", walletID)
		suggestion = "no rows were written; fix the underlying storage issue and retry"
	case CodeEmptyBatch:
		message = fmt.Sprintf("nothing to import into wallet %d", walletID)
		suggestion = "the batch contains no importable rows after exclusions"
	default:
		message = fmt.Sprintf("commit error for wallet %d", walletID)
		suggestion = "check the batch contents and try again"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryCommit, code, message)
	} else {
		result = New(CategoryCommit, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("wallet_id", walletID)
}

// UndoError creates an undo-related error
func UndoError(code ErrorCode, batchID string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeAlreadyUndone:
		message = fmt.Sprintf("batch %s has already been undone", batchID)
		suggestion = "a batch can only be undone once"
	case CodeUndoExpired:
		message = fmt.Sprintf("undo window for batch %s has expired", batchID)
		suggestion = "batches can only be undone within the undo window after commit"
	case CodeBatchNotFound:
		message = fmt.Sprintf("import batch %s not found", batchID)
		suggestion = "check the batch identifier"
	default:
		message = fmt.Sprintf("undo error for batch %s", batchID)
		suggestion = "check the batch state and try again"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryUndo, code, message)
	} else {
		result = New(CategoryUndo, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("batch_id", batchID)
}

// StorageError creates a storage-related error
func StorageError(code ErrorCode, operation string, err error) *ImportError {
	var message string
	var suggestion string

	switch code {
	case CodeWalletNotFound:
		message = fmt.Sprintf("wallet not found during %s", operation)
		suggestion = "check the wallet identifier"
	case CodeQueryFailed:
		message = fmt.Sprintf("ledger query failed during %s", operation)
		suggestion = "check the ledger database and try again"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the ledger database state"
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ImportError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ImportError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ImportError        `json:"errors"`
	SampleErrors []*ImportError        `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errors []*ImportError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errors),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errors,
	}

	if len(errors) == 0 {
		summary.Errors = []*ImportError{}
		return summary
	}

	for _, err := range errors {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	// Include sample errors (max 5)
	maxSamples := 5
	if len(errors) > maxSamples {
		summary.SampleErrors = errors[:maxSamples]
	} else {
		summary.SampleErrors = errors
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

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
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

// Utility functions

// IsImportError checks if an error is an ImportError
func IsImportError(err error) bool {
	_, ok := err.(*ImportError)
	return ok
}

// AsImportError extracts an ImportError from an error chain
func AsImportError(err error) (*ImportError, bool) {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given engine error code.
// Callers branch on this for engine-fatal conditions such as
// CodeIncompleteReview or CodeAlreadyUndone.
func IsCode(err error, code ErrorCode) bool {
	if importErr, ok := AsImportError(err); ok {
		return importErr.Code == code
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already an ImportError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ImportError {
	if err == nil {
		return nil
	}

	if importErr, ok := AsImportError(err); ok {
		return importErr
	}

	return Wrap(err, category, code, message)
}
