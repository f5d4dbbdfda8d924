package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"whole number", "10", 100000, false},
		{"two decimals", "10.00", 100000, false},
		{"fraction", "0.5", 5000, false},
		{"four decimals", "1.2345", 12345, false},
		{"negative", "-42.50", -425000, false},
		{"currency symbol", "$1,234.56", 12345600, false},
		{"whitespace", "  7.25  ", 72500, false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for input %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	// Serializing then parsing an amount yields the identical integer
	amounts := []int64{0, 1, -1, 5000, 100000, -425000, 999999999999}

	for _, amount := range amounts {
		formatted := FormatAmount(amount)
		parsed, err := ParseAmount(formatted)
		if err != nil {
			t.Fatalf("Failed to parse formatted amount %q: %v", formatted, err)
		}
		if parsed != amount {
			t.Errorf("Round trip of %d via %q gave %d", amount, formatted, parsed)
		}
	}
}

func TestConvertAmount(t *testing.T) {
	// 100.00 at rate 0.5 is 50.00
	rate := decimal.NewFromFloat(0.5)
	if got := ConvertAmount(1000000, rate); got != 500000 {
		t.Errorf("ConvertAmount(1000000, 0.5) = %d, want 500000", got)
	}

	// Rounding at the fourth decimal place
	rate = decimal.RequireFromString("0.33335")
	if got := ConvertAmount(10000, rate); got != 3334 {
		t.Errorf("ConvertAmount(10000, 0.33335) = %d, want 3334", got)
	}
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input   string
		want    TransactionType
		wantErr bool
	}{
		{"income", TransactionTypeIncome, false},
		{"CREDIT", TransactionTypeIncome, false},
		{"expense", TransactionTypeExpense, false},
		{"debit", TransactionTypeExpense, false},
		{" DR ", TransactionTypeExpense, false},
		{"transfer", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTransactionType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Expected error for input %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTransactionType(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestCandidateIsValid(t *testing.T) {
	candidate := &CandidateTransaction{RowNumber: 1}

	if !candidate.IsValid() {
		t.Error("Candidate without findings should be valid")
	}

	candidate.AddValidationError("referenceNumber", "missing reference", SeverityWarning)
	candidate.AddValidationError("date", "date in the future", SeverityInfo)

	if !candidate.IsValid() {
		t.Error("Warnings and infos should not invalidate a candidate")
	}

	candidate.AddValidationError("amount", "unparsable amount", SeverityError)

	if candidate.IsValid() {
		t.Error("Error-severity finding should invalidate the candidate")
	}
}

func TestCandidateClone(t *testing.T) {
	original := &CandidateTransaction{
		RowNumber:   3,
		Amount:      100000,
		Currency:    "VND",
		Description: "coffee",
	}
	original.AddValidationError("date", "ambiguous format", SeverityWarning)

	clone := original.Clone()
	clone.Amount = 200000
	clone.ValidationErrors[0].Message = "changed"

	if original.Amount != 100000 {
		t.Error("Mutating clone amount affected the original")
	}
	if original.ValidationErrors[0].Message != "ambiguous format" {
		t.Error("Mutating clone validation errors affected the original")
	}
}

func TestCandidateJSONRoundTrip(t *testing.T) {
	candidate := &CandidateTransaction{
		RowNumber:           7,
		Date:                time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Amount:              100000,
		Currency:            "VND",
		OriginalAmount:      100000,
		OriginalCurrency:    "VND",
		Description:         "grocery run",
		OriginalDescription: "GROCERY*STORE 0042",
		Type:                TransactionTypeExpense,
		CategoryID:          12,
		CategoryConfidence:  90,
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded CandidateTransaction
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Amount != candidate.Amount {
		t.Errorf("Amount changed through round trip: %d != %d", decoded.Amount, candidate.Amount)
	}
	if !decoded.Date.Equal(candidate.Date) {
		t.Errorf("Date changed through round trip: %s != %s", decoded.Date, candidate.Date)
	}
	if decoded.Type != candidate.Type {
		t.Errorf("Type changed through round trip: %s != %s", decoded.Type, candidate.Type)
	}
}

func TestActionTypeWire(t *testing.T) {
	tests := []struct {
		action ActionType
		wire   string
	}{
		{ActionMerge, "merge"},
		{ActionKeepBoth, "keep_both"},
		{ActionSkip, "skip"},
		{ActionNotDuplicate, "not_duplicate"},
	}

	for _, tt := range tests {
		if tt.action.String() != tt.wire {
			t.Errorf("Expected wire %q, got %q", tt.wire, tt.action.String())
		}

		parsed, err := ParseActionType(tt.wire)
		if err != nil {
			t.Fatalf("ParseActionType(%q) failed: %v", tt.wire, err)
		}
		if parsed != tt.action {
			t.Errorf("ParseActionType(%q) = %v, want %v", tt.wire, parsed, tt.action)
		}

		data, err := json.Marshal(tt.action)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var decoded ActionType
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if decoded != tt.action {
			t.Errorf("JSON round trip of %v gave %v", tt.action, decoded)
		}
	}

	if _, err := ParseActionType("replace"); err == nil {
		t.Error("Expected error for unknown action type")
	}

	if ActionType(42).IsValid() {
		t.Error("Out-of-range action type should be invalid")
	}
}

func TestImportBatchUndoState(t *testing.T) {
	committed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := &ImportBatch{
		BatchID:       "batch-1",
		CommittedAt:   committed,
		UndoExpiresAt: committed.Add(24 * time.Hour),
	}

	if !batch.UndoableAt(committed.Add(time.Hour)) {
		t.Error("Batch should be undoable within the window")
	}

	if batch.UndoableAt(committed.Add(25 * time.Hour)) {
		t.Error("Batch should not be undoable after the window")
	}

	undoneAt := committed.Add(2 * time.Hour)
	batch.UndoneAt = &undoneAt

	if !batch.IsUndone() {
		t.Error("Batch with UndoneAt should report as undone")
	}
	if batch.UndoableAt(committed.Add(3 * time.Hour)) {
		t.Error("Undone batch should never be undoable again")
	}
}

func TestClampConfidence(t *testing.T) {
	if ClampConfidence(-5) != 0 {
		t.Error("Negative confidence should clamp to 0")
	}
	if ClampConfidence(150) != 100 {
		t.Error("Overflowing confidence should clamp to 100")
	}
	if ClampConfidence(73) != 73 {
		t.Error("In-range confidence should pass through")
	}
}
