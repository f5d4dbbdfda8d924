package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CategoryReview, CodeIncompleteReview, "review incomplete")

	if err.Category != CategoryReview {
		t.Errorf("Expected category %s, got %s", CategoryReview, err.Category)
	}

	if err.Code != CodeIncompleteReview {
		t.Errorf("Expected code %s, got %s", CodeIncompleteReview, err.Code)
	}

	if err.Error() != "review incomplete" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CategoryCommit, CodeCommitFailure, "commit failed")

	if err.Unwrap() != cause {
		t.Error("Expected wrapped error to expose its cause")
	}

	if Wrap(nil, CategoryCommit, CodeCommitFailure, "ignored") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestWithSuggestionAndContext(t *testing.T) {
	err := New(CategoryUndo, CodeUndoExpired, "undo window expired").
		WithSuggestion("commit a new import instead").
		WithContext("batch_id", "abc-123")

	if !strings.Contains(err.Error(), "suggestion") {
		t.Errorf("Expected suggestion in message, got: %s", err.Error())
	}

	if err.Context["batch_id"] != "abc-123" {
		t.Errorf("Expected context to carry batch_id, got %v", err.Context)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ImportError
		category ErrorCategory
		code     ErrorCode
	}{
		{"validation", ValidationError(CodeInvalidAmount, "amount", "abc", nil), CategoryValidation, CodeInvalidAmount},
		{"currency", CurrencyError(CodeInvalidRate, "USD", nil), CategoryCurrency, CodeInvalidRate},
		{"review", ReviewError(CodeIncompleteReview, 3, 1), CategoryReview, CodeIncompleteReview},
		{"commit", CommitError(CodeCommitFailure, 7, fmt.Errorf("boom")), CategoryCommit, CodeCommitFailure},
		{"undo", UndoError(CodeAlreadyUndone, "batch-1", nil), CategoryUndo, CodeAlreadyUndone},
		{"storage", StorageError(CodeWalletNotFound, "detect_duplicates", nil), CategoryStorage, CodeWalletNotFound},
		{"internal", InternalError("classification", nil), CategoryInternal, CodeUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, tt.err.Category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Suggestion == "" {
				t.Error("Expected a suggestion to be set")
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := ReviewError(CodeIncompleteReview, 2, 0)

	if !IsCode(err, CodeIncompleteReview) {
		t.Error("Expected IsCode to match the error's code")
	}

	if IsCode(err, CodeAlreadyUndone) {
		t.Error("Expected IsCode to reject a different code")
	}

	if IsCode(fmt.Errorf("plain"), CodeIncompleteReview) {
		t.Error("Expected IsCode to reject plain errors")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCode(wrapped, CodeIncompleteReview) {
		t.Error("Expected IsCode to unwrap error chains")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ImportError{
		ValidationError(CodeInvalidDate, "date", "32/13/2024", nil),
		ValidationError(CodeInvalidAmount, "amount", "-", nil),
		UndoError(CodeUndoExpired, "batch-9", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("Expected total 3, got %d", summary.Total)
	}

	if summary.ByCategory[CategoryValidation] != 2 {
		t.Errorf("Expected 2 validation errors, got %d", summary.ByCategory[CategoryValidation])
	}

	if !summary.HasCategory(CategoryUndo) {
		t.Error("Expected summary to report undo category")
	}

	// Undo category carries the highest exit code in this set
	if summary.GetExitCode() != 4 {
		t.Errorf("Expected exit code 4, got %d", summary.GetExitCode())
	}

	empty := NewErrorSummary(nil)
	if empty.GetExitCode() != 0 {
		t.Errorf("Expected exit code 0 for empty summary, got %d", empty.GetExitCode())
	}
}
