// Package normalizer converts raw parsed statement rows into canonical
// candidate transactions. It never drops a row: anything that cannot be
// resolved surfaces as an invalid candidate with field-level findings, so
// the caller can account for every input row.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/logger"
)

// CategorySuggester proposes a category for a normalized candidate. The
// heuristics behind it are an external collaborator; the engine only
// records the suggestion and its confidence.
type CategorySuggester interface {
	Suggest(candidate *models.CandidateTransaction) (categoryID int64, confidence int)
}

// Config controls how raw statement fields map onto candidates
type Config struct {
	// DateFormat is the caller-provided hint, tried before the fallbacks
	DateFormat string

	// Currency is the statement currency applied to every row
	Currency string

	DateColumn        string
	AmountColumn      string
	DescriptionColumn string
	TypeColumn        string
	ReferenceColumn   string
}

// DefaultConfig returns a configuration with common column names
func DefaultConfig() *Config {
	return &Config{
		DateFormat:        "2006-01-02",
		Currency:          "USD",
		DateColumn:        "date",
		AmountColumn:      "amount",
		DescriptionColumn: "description",
		TypeColumn:        "type",
		ReferenceColumn:   "reference",
	}
}

// Validate checks if the normalizer configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("statement currency cannot be empty")
	}
	if strings.TrimSpace(c.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if strings.TrimSpace(c.DescriptionColumn) == "" {
		return fmt.Errorf("description column cannot be empty")
	}
	return nil
}

// fallbackDateFormats are tried after the configured hint, covering the
// formats banks commonly emit.
var fallbackDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
}

// Normalizer converts raw rows into candidate transactions
type Normalizer struct {
	config    *Config
	suggester CategorySuggester
	logger    logger.Logger
}

// New creates a normalizer. The suggester may be nil, in which case
// candidates are produced without category suggestions.
func New(config *Config, suggester CategorySuggester) *Normalizer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Normalizer{
		config:    config,
		suggester: suggester,
		logger:    logger.GetGlobalLogger().WithComponent("normalizer"),
	}
}

// Normalize converts every raw row into a candidate transaction. The output
// has exactly one candidate per input row; unparsable rows come back as
// invalid candidates rather than being omitted.
func (n *Normalizer) Normalize(rows []models.RawRow) []*models.CandidateTransaction {
	candidates := make([]*models.CandidateTransaction, 0, len(rows))

	for _, row := range rows {
		candidates = append(candidates, n.normalizeRow(row))
	}

	invalid := 0
	for _, c := range candidates {
		if !c.IsValid() {
			invalid++
		}
	}

	n.logger.WithFields(logger.Fields{
		"rows":    len(rows),
		"invalid": invalid,
	}).Debug("Normalized statement rows")

	return candidates
}

func (n *Normalizer) normalizeRow(row models.RawRow) *models.CandidateTransaction {
	candidate := &models.CandidateTransaction{
		RowNumber: row.RowNumber,
		Currency:  n.config.Currency,
	}

	n.resolveDate(row, candidate)
	n.resolveAmountAndType(row, candidate)
	n.resolveDescription(row, candidate)
	n.resolveReference(row, candidate)

	// Originals are the pre-conversion audit values; currency conversion
	// always re-derives from these.
	candidate.OriginalAmount = candidate.Amount
	candidate.OriginalCurrency = candidate.Currency

	if n.suggester != nil && candidate.IsValid() {
		categoryID, confidence := n.suggester.Suggest(candidate)
		candidate.CategoryID = categoryID
		candidate.CategoryConfidence = models.ClampConfidence(confidence)
	}

	return candidate
}

func (n *Normalizer) resolveDate(row models.RawRow, candidate *models.CandidateTransaction) {
	raw := strings.TrimSpace(row.Fields[n.config.DateColumn])
	if raw == "" {
		candidate.AddValidationError(n.config.DateColumn, "date is missing", models.SeverityError)
		return
	}

	date, err := n.parseDate(raw)
	if err != nil {
		candidate.AddValidationError(n.config.DateColumn,
			fmt.Sprintf("unable to parse date '%s'", raw), models.SeverityError)
		return
	}

	candidate.Date = date

	if date.After(time.Now().Add(24 * time.Hour)) {
		candidate.AddValidationError(n.config.DateColumn,
			"date is more than one day in the future", models.SeverityWarning)
	}
}

// parseDate tries the configured hint format first, then common fallbacks
func (n *Normalizer) parseDate(raw string) (time.Time, error) {
	formats := fallbackDateFormats
	if n.config.DateFormat != "" {
		formats = append([]string{n.config.DateFormat}, fallbackDateFormats...)
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", raw, lastErr)
}

func (n *Normalizer) resolveAmountAndType(row models.RawRow, candidate *models.CandidateTransaction) {
	raw := strings.TrimSpace(row.Fields[n.config.AmountColumn])
	if raw == "" {
		candidate.AddValidationError(n.config.AmountColumn, "amount is missing", models.SeverityError)
		return
	}

	amount, err := models.ParseAmount(raw)
	if err != nil {
		candidate.AddValidationError(n.config.AmountColumn,
			fmt.Sprintf("unable to parse amount '%s'", raw), models.SeverityError)
		return
	}

	if amount == 0 {
		candidate.AddValidationError(n.config.AmountColumn, "amount cannot be zero", models.SeverityError)
		return
	}

	// Explicit type column wins; otherwise the sign decides. Stored
	// amounts are magnitudes, direction lives in the type.
	typeRaw := strings.TrimSpace(row.Fields[n.config.TypeColumn])
	if typeRaw != "" {
		txType, err := models.ParseTransactionType(typeRaw)
		if err != nil {
			candidate.AddValidationError(n.config.TypeColumn,
				fmt.Sprintf("unknown transaction type '%s'", typeRaw), models.SeverityError)
			return
		}
		candidate.Type = txType
	} else if amount < 0 {
		candidate.Type = models.TransactionTypeExpense
	} else {
		candidate.Type = models.TransactionTypeIncome
	}

	if amount < 0 {
		amount = -amount
	}
	candidate.Amount = amount
}

func (n *Normalizer) resolveDescription(row models.RawRow, candidate *models.CandidateTransaction) {
	raw := strings.TrimSpace(row.Fields[n.config.DescriptionColumn])
	if raw == "" {
		candidate.AddValidationError(n.config.DescriptionColumn, "description is missing", models.SeverityError)
		return
	}

	candidate.Description = raw
	candidate.OriginalDescription = raw
}

func (n *Normalizer) resolveReference(row models.RawRow, candidate *models.CandidateTransaction) {
	raw := strings.TrimSpace(row.Fields[n.config.ReferenceColumn])
	if raw == "" {
		candidate.AddValidationError(n.config.ReferenceColumn, "no reference number", models.SeverityInfo)
		return
	}

	candidate.ReferenceNumber = raw
}
