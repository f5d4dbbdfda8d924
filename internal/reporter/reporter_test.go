package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go-ledger-import/internal/classifier"
	"go-ledger-import/internal/models"
)

func testConfig(format OutputFormat) *Config {
	config := DefaultConfig()
	config.Format = format
	config.UseColors = false
	return config
}

func reviewCandidate(row int, amount int64) *models.CandidateTransaction {
	return &models.CandidateTransaction{
		RowNumber:          row,
		Date:               time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		Amount:             amount,
		Currency:           "USD",
		Description:        "reported row",
		Type:               models.TransactionTypeExpense,
		CategoryID:         3,
		CategoryConfidence: 90,
	}
}

func testReviewReport() *ReviewReport {
	errored := reviewCandidate(1, 100000)
	errored.AddValidationError("date", "date could not be parsed", models.SeverityError)

	return &ReviewReport{
		Classification: &classifier.Classification{
			Errors:        []*models.CandidateTransaction{errored},
			Duplicates:    []*models.CandidateTransaction{reviewCandidate(2, 250000)},
			ReadyToImport: []*models.CandidateTransaction{reviewCandidate(3, 500000)},
		},
		Matches: []models.DuplicateMatch{
			{CandidateRowNumber: 2, ExistingTransactionID: 42, Confidence: 95, MatchReason: "exact amount, same date"},
		},
		Conversions: []models.CurrencyConversion{
			{FromCurrency: "EUR", ToCurrency: "USD", Rate: "1.1", RateSource: models.RateSourceManual,
				TransactionCount: 2, TotalOriginal: 1000000, TotalConverted: 1100000},
		},
	}
}

func testSummary() *models.ImportSummary {
	return &models.ImportSummary{
		BatchID:           "batch-abc",
		TotalImported:     5,
		TotalSkipped:      2,
		TotalIncome:       10000000,
		TotalExpenses:     4000000,
		NetChange:         6000000,
		NewWalletBalance:  16000000,
		DuplicatesMerged:  1,
		DuplicatesSkipped: 1,
		CanUndo:           true,
		UndoExpiresAt:     time.Date(2024, 8, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteReviewConsole(t *testing.T) {
	r, err := New(testConfig(FormatConsole))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteReview(testReviewReport(), &buf); err != nil {
		t.Fatalf("WriteReview failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"IMPORT REVIEW",
		"Total Rows: 3",
		"Ready to Import:       1",
		"Unresolved Duplicates: 1",
		"Errors:                1",
		"date could not be parsed",
		"confidence 95%",
		"EUR -> USD @ 1.1 (manual)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Console review missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReviewJSON(t *testing.T) {
	r, err := New(testConfig(FormatJSON))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteReview(testReviewReport(), &buf); err != nil {
		t.Fatalf("WriteReview failed: %v", err)
	}

	var decoded struct {
		Counts classifier.Counts `json:"counts"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if decoded.Counts.Total != 3 || decoded.Counts.ReadyToImport != 1 {
		t.Errorf("Unexpected counts in JSON: %+v", decoded.Counts)
	}
}

func TestWriteReviewCSV(t *testing.T) {
	r, err := New(testConfig(FormatCSV))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteReview(testReviewReport(), &buf); err != nil {
		t.Fatalf("WriteReview failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header plus one line per candidate.
	if len(lines) != 4 {
		t.Fatalf("Expected 4 CSV lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Row,Bucket,") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "errors") {
		t.Errorf("Expected error bucket first, got: %s", lines[1])
	}
}

func TestWriteSummaryConsole(t *testing.T) {
	r, err := New(testConfig(FormatConsole))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteSummary(testSummary(), &buf); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"IMPORT COMPLETE",
		"Batch: batch-abc",
		"Imported: 5",
		"Skipped:  2",
		"Net Change:  600",
		"New Balance: 1600",
		"Undo available until",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Console summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	r, err := New(testConfig(FormatJSON))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteSummary(testSummary(), &buf); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	var decoded models.ImportSummary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if decoded.BatchID != "batch-abc" || decoded.NetChange != 6000000 {
		t.Errorf("Unexpected summary JSON: %+v", decoded)
	}
}

func TestWriteSummaryNil(t *testing.T) {
	r, err := New(testConfig(FormatConsole))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var buf bytes.Buffer
	if err := r.WriteSummary(nil, &buf); err == nil {
		t.Error("Expected error for nil summary")
	}
}

func TestWriteUndo(t *testing.T) {
	r, err := New(testConfig(FormatConsole))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	undoneAt := time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC)
	batch := &models.ImportBatch{
		BatchID:        "batch-abc",
		WalletID:       1,
		InsertedIDs:    []int64{10, 11},
		MergeSnapshots: []*models.Transaction{{ID: 42}},
		BalanceDelta:   6000000,
		UndoneAt:       &undoneAt,
	}

	var buf bytes.Buffer
	if err := r.WriteUndo(batch, &buf); err != nil {
		t.Fatalf("WriteUndo failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"IMPORT UNDONE",
		"Rows Deleted:    2",
		"Rows Restored:   1",
		"Balance Change:  -600",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Undo output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	bad := DefaultConfig()
	bad.Format = "xml"
	if _, err := New(bad); err == nil {
		t.Error("Expected error for unsupported format")
	}

	bad = DefaultConfig()
	bad.MaxRowsPerBucket = 0
	if _, err := New(bad); err == nil {
		t.Error("Expected error for zero row limit")
	}
}

func TestRowLimitTruncation(t *testing.T) {
	config := testConfig(FormatConsole)
	config.MaxRowsPerBucket = 2
	r, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var errored []*models.CandidateTransaction
	for i := 1; i <= 5; i++ {
		c := reviewCandidate(i, 100000)
		c.AddValidationError("amount", "amount is zero", models.SeverityError)
		errored = append(errored, c)
	}

	var buf bytes.Buffer
	err = r.WriteReview(&ReviewReport{
		Classification: &classifier.Classification{Errors: errored},
	}, &buf)
	if err != nil {
		t.Fatalf("WriteReview failed: %v", err)
	}

	if !strings.Contains(buf.String(), "... and 3 more") {
		t.Errorf("Expected truncation marker:\n%s", buf.String())
	}
}

func TestSafeReporterFallback(t *testing.T) {
	sr, err := NewSafeReporter(testConfig(FormatConsole), nil)
	if err != nil {
		t.Fatalf("NewSafeReporter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := sr.WriteSummarySafely(testSummary(), &buf); err != nil {
		t.Fatalf("WriteSummarySafely failed: %v", err)
	}
	if !strings.Contains(buf.String(), "IMPORT COMPLETE") {
		t.Errorf("Missing summary output:\n%s", buf.String())
	}

	if err := sr.WriteSummarySafely(nil, &buf); err == nil {
		t.Error("Expected error for nil summary")
	}
	if err := sr.WriteSummarySafely(testSummary(), nil); err == nil {
		t.Error("Expected error for nil writer")
	}
}
