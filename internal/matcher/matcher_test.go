package matcher

import (
	"testing"
	"time"

	"go-ledger-import/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func createTestLedger() []*models.Transaction {
	return []*models.Transaction{
		{
			ID:          101,
			WalletID:    1,
			Date:        day(15),
			Amount:      1005000, // 100.50
			Currency:    "USD",
			Description: "Grocery Store 0042",
			Type:        models.TransactionTypeExpense,
		},
		{
			ID:          102,
			WalletID:    1,
			Date:        day(15),
			Amount:      2500000, // 250.00
			Currency:    "USD",
			Description: "Monthly salary",
			Type:        models.TransactionTypeIncome,
		},
		{
			ID:          103,
			WalletID:    1,
			Date:        day(20),
			Amount:      752500, // 75.25
			Currency:    "USD",
			Description: "Fuel station",
			Type:        models.TransactionTypeExpense,
		},
	}
}

func createCandidate(row int, d time.Time, amount int64, description string, txType models.TransactionType) *models.CandidateTransaction {
	return &models.CandidateTransaction{
		RowNumber:   row,
		Date:        d,
		Amount:      amount,
		Currency:    "USD",
		Description: description,
		Type:        txType,
	}
}

func TestNew(t *testing.T) {
	m := New(nil)
	if m.config == nil {
		t.Fatal("Expected default config to be set")
	}

	custom := StrictConfig()
	m = New(custom)
	if m.config.MinConfidence != custom.MinConfidence {
		t.Error("Expected custom config to be used")
	}
}

func TestDetectDuplicates_ExactMatch(t *testing.T) {
	m := New(DefaultConfig())
	ledger := createTestLedger()

	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(15), 1005000, "GROCERY*STORE 0042", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}

	match := matches[0]
	if match.CandidateRowNumber != 1 {
		t.Errorf("Expected candidate row 1, got %d", match.CandidateRowNumber)
	}
	if match.ExistingTransactionID != 101 {
		t.Errorf("Expected match against transaction 101, got %d", match.ExistingTransactionID)
	}
	if match.Confidence < 90 {
		t.Errorf("Exact amount, same date, same tokens should score high, got %d", match.Confidence)
	}
	if match.MatchReason == "" {
		t.Error("Expected a human-readable match reason")
	}
}

func TestDetectDuplicates_OutsideDateWindow(t *testing.T) {
	m := New(DefaultConfig()) // 3 day window
	ledger := createTestLedger()

	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(25), 1005000, "Grocery Store 0042", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	if len(matches) != 0 {
		t.Errorf("Expected no matches outside the date window, got %d", len(matches))
	}
}

func TestDetectDuplicates_BelowThresholdSuppressed(t *testing.T) {
	m := New(DefaultConfig())
	ledger := createTestLedger()

	// Different amount, different description, two days apart: weak signal
	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(17), 999000, "Completely unrelated merchant", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	if len(matches) != 0 {
		t.Errorf("Expected weak matches to be suppressed, got %d", len(matches))
	}
}

func TestDetectDuplicates_SkipsInvalidCandidates(t *testing.T) {
	m := New(DefaultConfig())
	ledger := createTestLedger()

	invalid := createCandidate(1, day(15), 1005000, "Grocery Store 0042", models.TransactionTypeExpense)
	invalid.AddValidationError("date", "unparsable", models.SeverityError)

	matches := m.DetectDuplicates([]*models.CandidateTransaction{invalid}, ledger)
	if len(matches) != 0 {
		t.Errorf("Invalid candidates must not be matched, got %d matches", len(matches))
	}
}

func TestDetectDuplicates_TypeMismatchScoresNoAmount(t *testing.T) {
	m := New(DefaultConfig())
	ledger := createTestLedger()

	// Same amount and date as transaction 102 but opposite direction
	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(15), 2500000, "refund transfer", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	for _, match := range matches {
		if match.ExistingTransactionID == 102 && match.Confidence >= 60 {
			t.Errorf("Opposite direction should not produce a confident match, got %d", match.Confidence)
		}
	}
}

func TestDetectDuplicates_AtMostOneMatchPerExistingID(t *testing.T) {
	m := New(RelaxedConfig())
	ledger := createTestLedger()

	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(15), 1005000, "Grocery Store 0042", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)

	seen := make(map[int64]int)
	for _, match := range matches {
		seen[match.ExistingTransactionID]++
	}
	for id, count := range seen {
		if count > 1 {
			t.Errorf("Transaction %d matched %d times for one candidate", id, count)
		}
	}
}

func TestDetectDuplicates_CapsMatchesPerCandidate(t *testing.T) {
	config := RelaxedConfig()
	config.MaxMatchesPerCandidate = 2
	config.MinConfidence = 10
	m := New(config)

	// Five near-identical ledger rows in the window
	var ledger []*models.Transaction
	for i := 0; i < 5; i++ {
		ledger = append(ledger, &models.Transaction{
			ID:          int64(200 + i),
			WalletID:    1,
			Date:        day(15),
			Amount:      500000,
			Description: "subscription renewal",
			Type:        models.TransactionTypeExpense,
		})
	}

	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(15), 500000, "subscription renewal", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	if len(matches) != 2 {
		t.Errorf("Expected matches capped at 2, got %d", len(matches))
	}
}

func TestDetectDuplicates_SortedByConfidence(t *testing.T) {
	config := RelaxedConfig()
	config.MinConfidence = 10
	m := New(config)

	ledger := []*models.Transaction{
		{ID: 1, Date: day(17), Amount: 500000, Description: "coffee shop", Type: models.TransactionTypeExpense},
		{ID: 2, Date: day(15), Amount: 500000, Description: "coffee shop", Type: models.TransactionTypeExpense},
	}

	candidates := []*models.CandidateTransaction{
		createCandidate(1, day(15), 500000, "coffee shop", models.TransactionTypeExpense),
	}

	matches := m.DetectDuplicates(candidates, ledger)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}

	if matches[0].Confidence < matches[1].Confidence {
		t.Error("Expected matches sorted by confidence descending")
	}
	if matches[0].ExistingTransactionID != 2 {
		t.Errorf("Same-day row should rank first, got id %d", matches[0].ExistingTransactionID)
	}
}

func TestDescriptionSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "grocery store", "grocery store", 1.0, 1.0},
		{"formatting noise", "GROCERY*STORE-0042", "grocery store 0042", 1.0, 1.0},
		{"partial overlap", "grocery store downtown", "grocery store", 0.5, 0.99},
		{"no overlap", "fuel station", "monthly salary", 0.0, 0.0},
		{"both empty", "", "", 1.0, 1.0},
		{"one empty", "grocery", "", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := descriptionSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("descriptionSimilarity(%q, %q) = %f, want in [%f, %f]",
					tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestMatchesByRow(t *testing.T) {
	matches := []models.DuplicateMatch{
		{CandidateRowNumber: 1, ExistingTransactionID: 10, Confidence: 90},
		{CandidateRowNumber: 1, ExistingTransactionID: 11, Confidence: 70},
		{CandidateRowNumber: 3, ExistingTransactionID: 12, Confidence: 80},
	}

	byRow := MatchesByRow(matches)
	if len(byRow[1]) != 2 {
		t.Errorf("Expected 2 matches for row 1, got %d", len(byRow[1]))
	}
	if len(byRow[3]) != 1 {
		t.Errorf("Expected 1 match for row 3, got %d", len(byRow[3]))
	}
}

func TestUpdateConfig(t *testing.T) {
	m := New(DefaultConfig())

	bad := DefaultConfig()
	bad.MinConfidence = 200
	if err := m.UpdateConfig(bad); err == nil {
		t.Error("Expected invalid config to be rejected")
	}

	good := StrictConfig()
	if err := m.UpdateConfig(good); err != nil {
		t.Errorf("Expected valid config to be accepted, got %v", err)
	}
	if m.config.MinConfidence != good.MinConfidence {
		t.Error("Expected config to be updated")
	}
}
