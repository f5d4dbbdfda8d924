// Package models defines the canonical data model for the import
// reconciliation engine: candidate transactions pending an import decision,
// duplicate matches against the existing ledger, currency conversions,
// duplicate actions, committed import batches and their summaries.
//
// All monetary amounts are signed integers at a fixed 1/10000 scale of the
// currency's natural unit (see money.go). Dates serialize as epoch seconds.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	// TransactionTypeIncome represents money flowing into the wallet
	TransactionTypeIncome TransactionType = "income"
	// TransactionTypeExpense represents money flowing out of the wallet
	TransactionTypeExpense TransactionType = "expense"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// ParseTransactionType parses and validates a transaction type from string
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "credit", "cr", "in":
		return TransactionTypeIncome, nil
	case "expense", "debit", "dr", "out":
		return TransactionTypeExpense, nil
	default:
		return "", fmt.Errorf("invalid transaction type '%s': must be income or expense", s)
	}
}

// Severity grades a row-level validation finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError describes a field-level problem found while normalizing
// a statement row. Only error-severity findings exclude a row from commit.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// RawRow is a parsed statement row as delivered by an external statement
// parser. The engine never interprets file formats; it only sees field maps.
type RawRow struct {
	RowNumber int               `json:"rowNumber"`
	Fields    map[string]string `json:"fields"`
}

// CandidateTransaction is a normalized statement row pending an import
// decision. RowNumber is unique within a batch. OriginalAmount and
// OriginalCurrency always hold the pre-conversion values so currency
// conversion can be re-derived from scratch at any time.
type CandidateTransaction struct {
	RowNumber           int               `json:"rowNumber"`
	Date                time.Time         `json:"-"`
	Amount              int64             `json:"amount"`
	Currency            string            `json:"currency"`
	OriginalAmount      int64             `json:"originalAmount"`
	OriginalCurrency    string            `json:"originalCurrency"`
	Description         string            `json:"description"`
	OriginalDescription string            `json:"originalDescription"`
	Type                TransactionType   `json:"type"`
	CategoryID          int64             `json:"suggestedCategoryId"`
	CategoryConfidence  int               `json:"categoryConfidence"`
	ReferenceNumber     string            `json:"referenceNumber,omitempty"`
	ValidationErrors    []ValidationError `json:"validationErrors,omitempty"`
}

// IsValid reports whether the candidate carries no error-severity
// validation findings. Warnings and infos keep a row importable.
func (c *CandidateTransaction) IsValid() bool {
	for _, ve := range c.ValidationErrors {
		if ve.Severity == SeverityError {
			return false
		}
	}
	return true
}

// AddValidationError records a field-level finding on the candidate
func (c *CandidateTransaction) AddValidationError(field, message string, severity Severity) {
	c.ValidationErrors = append(c.ValidationErrors, ValidationError{
		Field:    field,
		Message:  message,
		Severity: severity,
	})
}

// HasCategory reports whether a category has been assigned. A CategoryID
// of 0 means "no category assigned"; the storage layer maps 0 to SQL NULL.
func (c *CandidateTransaction) HasCategory() bool {
	return c.CategoryID != 0
}

// Clone returns a deep copy of the candidate
func (c *CandidateTransaction) Clone() *CandidateTransaction {
	clone := *c
	if c.ValidationErrors != nil {
		clone.ValidationErrors = make([]ValidationError, len(c.ValidationErrors))
		copy(clone.ValidationErrors, c.ValidationErrors)
	}
	return &clone
}

// String returns a string representation of the candidate
func (c *CandidateTransaction) String() string {
	return fmt.Sprintf("Candidate{Row: %d, Amount: %s %s, Type: %s, Date: %s}",
		c.RowNumber, FormatAmount(c.Amount), c.Currency, c.Type, c.Date.Format("2006-01-02"))
}

// MarshalJSON implements custom JSON marshaling for CandidateTransaction.
// Dates go on the wire as epoch seconds; the derived validity flag is
// included for consumers.
func (c *CandidateTransaction) MarshalJSON() ([]byte, error) {
	type Alias CandidateTransaction
	return json.Marshal(&struct {
		Date    int64 `json:"date"`
		IsValid bool  `json:"isValid"`
		*Alias
	}{
		Date:    c.Date.Unix(),
		IsValid: c.IsValid(),
		Alias:   (*Alias)(c),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for CandidateTransaction
func (c *CandidateTransaction) UnmarshalJSON(data []byte) error {
	type Alias CandidateTransaction
	aux := &struct {
		Date int64 `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Date = time.Unix(aux.Date, 0).UTC()
	return nil
}

// DuplicateMatch pairs a candidate with an existing ledger transaction
// above the similarity threshold. Confidence is 0-100.
type DuplicateMatch struct {
	CandidateRowNumber    int    `json:"candidateRowNumber"`
	ExistingTransactionID int64  `json:"existingTransactionId"`
	Confidence            int    `json:"confidence"`
	MatchReason           string `json:"matchReason"`
}

// ActionType is the closed set of per-row duplicate dispositions
type ActionType int

const (
	// ActionMerge updates the matched existing transaction in place
	ActionMerge ActionType = iota
	// ActionKeepBoth imports the candidate as a new row alongside the match
	ActionKeepBoth
	// ActionSkip omits the candidate from the import entirely
	ActionSkip
	// ActionNotDuplicate dismisses the match and imports the candidate as new
	ActionNotDuplicate
)

// String returns the wire representation of the action type
func (a ActionType) String() string {
	switch a {
	case ActionMerge:
		return "merge"
	case ActionKeepBoth:
		return "keep_both"
	case ActionSkip:
		return "skip"
	case ActionNotDuplicate:
		return "not_duplicate"
	default:
		return "unknown"
	}
}

// IsValid checks if the action type is one of the closed set
func (a ActionType) IsValid() bool {
	switch a {
	case ActionMerge, ActionKeepBoth, ActionSkip, ActionNotDuplicate:
		return true
	default:
		return false
	}
}

// ParseActionType parses an action type from its wire representation
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge":
		return ActionMerge, nil
	case "keep_both":
		return ActionKeepBoth, nil
	case "skip":
		return ActionSkip, nil
	case "not_duplicate":
		return ActionNotDuplicate, nil
	default:
		return 0, fmt.Errorf("invalid duplicate action '%s'", s)
	}
}

// MarshalJSON encodes the action type as its wire string
func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the action type from its wire string
func (a *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DuplicateAction records the caller's disposition for one duplicate match
type DuplicateAction struct {
	CandidateRowNumber    int        `json:"candidateRowNumber"`
	ExistingTransactionID int64      `json:"existingTransactionId"`
	Action                ActionType `json:"actionType"`
}

// RateSource identifies where an exchange rate came from
type RateSource string

const (
	RateSourceAuto     RateSource = "auto"
	RateSourceManual   RateSource = "manual"
	RateSourceFallback RateSource = "fallback"
)

// CurrencyConversion summarizes one (fromCurrency, toCurrency) conversion
// group: the rate applied and the aggregate totals before and after.
type CurrencyConversion struct {
	FromCurrency     string     `json:"fromCurrency"`
	ToCurrency       string     `json:"toCurrency"`
	Rate             string     `json:"rate"`
	RateSource       RateSource `json:"rateSource"`
	RateDate         time.Time  `json:"rateDate"`
	TransactionCount int        `json:"transactionCount"`
	TotalOriginal    int64      `json:"totalOriginal"`
	TotalConverted   int64      `json:"totalConverted"`
}

// Transaction is an existing ledger row. CategoryID of 0 maps to SQL NULL
// at the storage boundary.
type Transaction struct {
	ID              int64           `json:"id"`
	WalletID        int64           `json:"walletId"`
	Date            time.Time       `json:"date"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Type            TransactionType `json:"type"`
	CategoryID      int64           `json:"categoryId"`
	ReferenceNumber string          `json:"referenceNumber,omitempty"`
}

// Clone returns a deep copy of the transaction
func (t *Transaction) Clone() *Transaction {
	clone := *t
	return &clone
}

// Wallet is the ledger account an import targets. Balance is in the
// wallet's currency at the fixed amount scale.
type Wallet struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

// ImportSummary reports the outcome of a committed import batch
type ImportSummary struct {
	BatchID           string    `json:"batchId"`
	TotalImported     int       `json:"totalImported"`
	TotalSkipped      int       `json:"totalSkipped"`
	TotalIncome       int64     `json:"totalIncome"`
	TotalExpenses     int64     `json:"totalExpenses"`
	NetChange         int64     `json:"netChange"`
	NewWalletBalance  int64     `json:"newWalletBalance"`
	DuplicatesMerged  int       `json:"duplicatesMerged"`
	DuplicatesSkipped int       `json:"duplicatesSkipped"`
	CanUndo           bool      `json:"canUndo"`
	UndoExpiresAt     time.Time `json:"undoExpiresAt"`
}

// ImportBatch is the committed, immutable record of one import. It carries
// everything needed for an exact undo: the ids of inserted rows, the
// pre-merge snapshot of every merged row, and the exact balance delta that
// was applied at commit time.
type ImportBatch struct {
	BatchID        string         `json:"batchId"`
	WalletID       int64          `json:"walletId"`
	CommittedAt    time.Time      `json:"committedAt"`
	UndoExpiresAt  time.Time      `json:"undoExpiresAt"`
	InsertedIDs    []int64        `json:"insertedIds"`
	MergeSnapshots []*Transaction `json:"mergeSnapshots"`
	BalanceDelta   int64          `json:"balanceDelta"`
	Summary        ImportSummary  `json:"summary"`
	UndoneAt       *time.Time     `json:"undoneAt,omitempty"`
}

// IsUndone reports whether the batch has already been reversed
func (b *ImportBatch) IsUndone() bool {
	return b.UndoneAt != nil
}

// UndoableAt reports whether the batch can still be undone at the given time
func (b *ImportBatch) UndoableAt(now time.Time) bool {
	return !b.IsUndone() && now.Before(b.UndoExpiresAt)
}

// ClampConfidence bounds a confidence score to [0, 100]
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
