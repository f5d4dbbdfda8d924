package classifier

import (
	"testing"
	"time"

	"go-ledger-import/internal/models"
	"go-ledger-import/internal/strategy"
)

func validCandidate(row int, categoryID int64, confidence int) *models.CandidateTransaction {
	return &models.CandidateTransaction{
		RowNumber:          row,
		Date:               time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		Amount:             1000000,
		Currency:           "USD",
		Description:        "classified row",
		Type:               models.TransactionTypeExpense,
		CategoryID:         categoryID,
		CategoryConfidence: confidence,
	}
}

func invalidCandidate(row int) *models.CandidateTransaction {
	c := validCandidate(row, 7, 90)
	c.AddValidationError("date", "date could not be parsed", models.SeverityError)
	return c
}

func TestClassifyBuckets(t *testing.T) {
	candidates := []*models.CandidateTransaction{
		invalidCandidate(1),
		validCandidate(2, 7, 90), // matched, unresolved
		validCandidate(3, 0, 0),  // no category
		validCandidate(4, 7, 50), // low confidence
		validCandidate(5, 7, 90), // clean
	}
	matches := []models.DuplicateMatch{
		{CandidateRowNumber: 2, ExistingTransactionID: 101, Confidence: 95},
	}

	result := Classify(candidates, matches, strategy.ReviewEach, nil)

	counts := result.Counts()
	if counts.Errors != 1 || counts.Duplicates != 1 || counts.NeedsCategoryReview != 2 || counts.ReadyToImport != 1 {
		t.Errorf("Unexpected bucket counts: %+v", counts)
	}
	if counts.Total != 5 {
		t.Errorf("Expected total 5, got %d", counts.Total)
	}

	if result.Errors[0].RowNumber != 1 {
		t.Errorf("Expected row 1 in errors, got %d", result.Errors[0].RowNumber)
	}
	if result.Duplicates[0].RowNumber != 2 {
		t.Errorf("Expected row 2 in duplicates, got %d", result.Duplicates[0].RowNumber)
	}
	if result.ReadyToImport[0].RowNumber != 5 {
		t.Errorf("Expected row 5 ready to import, got %d", result.ReadyToImport[0].RowNumber)
	}
}

func TestClassifyValidityDominatesDuplicate(t *testing.T) {
	// An invalid row with an unresolved match lands in Errors, not Duplicates.
	candidates := []*models.CandidateTransaction{invalidCandidate(1)}
	matches := []models.DuplicateMatch{
		{CandidateRowNumber: 1, ExistingTransactionID: 101, Confidence: 95},
	}

	result := Classify(candidates, matches, strategy.SkipAll, nil)
	if len(result.Errors) != 1 || len(result.Duplicates) != 0 {
		t.Errorf("Expected invalid row in errors bucket, got %+v", result.Counts())
	}
}

func TestClassifyResolvedMatchFallsThrough(t *testing.T) {
	candidates := []*models.CandidateTransaction{validCandidate(1, 7, 90)}
	matches := []models.DuplicateMatch{
		{CandidateRowNumber: 1, ExistingTransactionID: 101, Confidence: 95},
	}
	recorded := []models.DuplicateAction{
		{CandidateRowNumber: 1, ExistingTransactionID: 101, Action: models.ActionNotDuplicate},
	}

	result := Classify(candidates, matches, strategy.ReviewEach, recorded)
	if len(result.ReadyToImport) != 1 {
		t.Errorf("Expected resolved duplicate ready to import, got %+v", result.Counts())
	}
}

func TestClassifyNonBlockingStrategies(t *testing.T) {
	// AutoMerge and KeepAll resolve matches implicitly; matched rows go
	// straight to category checks.
	candidates := []*models.CandidateTransaction{validCandidate(1, 7, 90)}
	matches := []models.DuplicateMatch{
		{CandidateRowNumber: 1, ExistingTransactionID: 101, Confidence: 95},
	}

	for _, strat := range []strategy.Strategy{strategy.AutoMerge, strategy.KeepAll} {
		result := Classify(candidates, matches, strat, nil)
		if len(result.ReadyToImport) != 1 {
			t.Errorf("%v: expected matched row ready to import, got %+v", strat, result.Counts())
		}
	}
}

func TestClassifyConfidenceBoundary(t *testing.T) {
	tests := []struct {
		confidence int
		ready      bool
	}{
		{79, false},
		{80, true},
		{100, true},
	}

	for _, tt := range tests {
		result := Classify([]*models.CandidateTransaction{validCandidate(1, 7, tt.confidence)}, nil, strategy.SkipAll, nil)
		gotReady := len(result.ReadyToImport) == 1
		if gotReady != tt.ready {
			t.Errorf("Confidence %d: ready=%v, want %v", tt.confidence, gotReady, tt.ready)
		}
	}
}

func TestClassifyZeroCategoryNeedsReview(t *testing.T) {
	// High confidence but no assigned category still needs review.
	result := Classify([]*models.CandidateTransaction{validCandidate(1, 0, 95)}, nil, strategy.SkipAll, nil)
	if len(result.NeedsCategoryReview) != 1 {
		t.Errorf("Expected category review bucket, got %+v", result.Counts())
	}
}

func TestClassifyRecomputeAfterEdit(t *testing.T) {
	candidate := validCandidate(1, 0, 0)

	first := Classify([]*models.CandidateTransaction{candidate}, nil, strategy.SkipAll, nil)
	if len(first.NeedsCategoryReview) != 1 {
		t.Fatalf("Expected review bucket before edit, got %+v", first.Counts())
	}

	// Caller assigns a category during review; reclassification moves the
	// row into exactly one new bucket.
	candidate.CategoryID = 12
	candidate.CategoryConfidence = 100

	second := Classify([]*models.CandidateTransaction{candidate}, nil, strategy.SkipAll, nil)
	if len(second.ReadyToImport) != 1 || len(second.NeedsCategoryReview) != 0 {
		t.Errorf("Expected row ready after edit, got %+v", second.Counts())
	}
}

func TestClassifyEmptyBatch(t *testing.T) {
	result := Classify(nil, nil, strategy.SkipAll, nil)
	if result.Counts().Total != 0 {
		t.Errorf("Expected empty classification, got %+v", result.Counts())
	}
}
