// Package reporter renders import review and commit results for the CLI.
//
// Supported output formats:
//   - Console: human-readable output for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: per-row dump for spreadsheet review
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"go-ledger-import/internal/classifier"
	"go-ledger-import/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config holds configuration options for report generation
type Config struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeRowDetails  bool `json:"include_row_details"`
	IncludeConversions bool `json:"include_conversions"`
	MaxRowsPerBucket   int  `json:"max_rows_per_bucket"`

	// Console formatting options
	UseColors bool `json:"use_colors"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultConfig returns a default report configuration
func DefaultConfig() *Config {
	return &Config{
		Format:             FormatConsole,
		IncludeRowDetails:  true,
		IncludeConversions: true,
		MaxRowsPerBucket:   10,
		UseColors:          true,
		CSVDelimiter:       ',',
		CSVHeaders:         true,
	}
}

// Validate validates the report configuration
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxRowsPerBucket < 1 {
		return fmt.Errorf("max rows per bucket must be at least 1, got %d", c.MaxRowsPerBucket)
	}
	return nil
}

// Reporter renders classification, conversion and commit results
type Reporter struct {
	config *Config

	headerColor *color.Color
	okColor     *color.Color
	warnColor   *color.Color
	errColor    *color.Color
}

// New creates a reporter with the specified configuration
func New(config *Config) (*Reporter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	r := &Reporter{
		config:      config,
		headerColor: color.New(color.Bold),
		okColor:     color.New(color.FgGreen),
		warnColor:   color.New(color.FgYellow),
		errColor:    color.New(color.FgRed),
	}
	if !config.UseColors {
		for _, c := range []*color.Color{r.headerColor, r.okColor, r.warnColor, r.errColor} {
			c.DisableColor()
		}
	}
	return r, nil
}

// ReviewReport is the reviewable state of a batch before commit.
type ReviewReport struct {
	Classification *classifier.Classification  `json:"-"`
	Counts         classifier.Counts           `json:"counts"`
	Matches        []models.DuplicateMatch     `json:"duplicateMatches,omitempty"`
	Conversions    []models.CurrencyConversion `json:"conversions,omitempty"`
}

// WriteReview renders the pre-commit review state.
func (r *Reporter) WriteReview(report *ReviewReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("review report cannot be nil")
	}
	report.Counts = report.Classification.Counts()

	switch r.config.Format {
	case FormatConsole:
		return r.writeReviewConsole(report, writer)
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case FormatCSV:
		return r.writeReviewCSV(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", r.config.Format)
	}
}

// WriteSummary renders a committed import summary.
func (r *Reporter) WriteSummary(summary *models.ImportSummary, writer io.Writer) error {
	if summary == nil {
		return fmt.Errorf("import summary cannot be nil")
	}

	switch r.config.Format {
	case FormatConsole:
		return r.writeSummaryConsole(summary, writer)
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	case FormatCSV:
		return r.writeSummaryCSV(summary, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", r.config.Format)
	}
}

// WriteUndo renders the result of an undo.
func (r *Reporter) WriteUndo(batch *models.ImportBatch, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("import batch cannot be nil")
	}

	if r.config.Format == FormatJSON {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(batch)
	}

	r.headerColor.Fprintf(writer, "IMPORT UNDONE\n")
	fmt.Fprintf(writer, "Batch:           %s\n", batch.BatchID)
	fmt.Fprintf(writer, "Wallet:          %d\n", batch.WalletID)
	fmt.Fprintf(writer, "Rows Deleted:    %d\n", len(batch.InsertedIDs))
	fmt.Fprintf(writer, "Rows Restored:   %d\n", len(batch.MergeSnapshots))
	fmt.Fprintf(writer, "Balance Change:  %s\n", models.FormatAmount(-batch.BalanceDelta))
	return nil
}

func (r *Reporter) writeReviewConsole(report *ReviewReport, writer io.Writer) error {
	counts := report.Counts

	r.headerColor.Fprintf(writer, "IMPORT REVIEW\n")
	fmt.Fprintf(writer, "Total Rows: %d\n\n", counts.Total)

	r.okColor.Fprintf(writer, "Ready to Import:       %d (%.1f%%)\n",
		counts.ReadyToImport, percentage(counts.ReadyToImport, counts.Total))
	r.warnColor.Fprintf(writer, "Needs Category Review: %d (%.1f%%)\n",
		counts.NeedsCategoryReview, percentage(counts.NeedsCategoryReview, counts.Total))
	r.warnColor.Fprintf(writer, "Unresolved Duplicates: %d (%.1f%%)\n",
		counts.Duplicates, percentage(counts.Duplicates, counts.Total))
	r.errColor.Fprintf(writer, "Errors:                %d (%.1f%%)\n",
		counts.Errors, percentage(counts.Errors, counts.Total))

	if r.config.IncludeConversions && len(report.Conversions) > 0 {
		fmt.Fprintf(writer, "\n")
		r.headerColor.Fprintf(writer, "CURRENCY CONVERSIONS\n")
		for _, conv := range report.Conversions {
			fmt.Fprintf(writer, "  %s -> %s @ %s (%s): %d rows, %s -> %s\n",
				conv.FromCurrency, conv.ToCurrency, conv.Rate, conv.RateSource,
				conv.TransactionCount,
				models.FormatAmount(conv.TotalOriginal),
				models.FormatAmount(conv.TotalConverted))
		}
	}

	if r.config.IncludeRowDetails {
		if len(report.Classification.Errors) > 0 {
			fmt.Fprintf(writer, "\n")
			r.errColor.Fprintf(writer, "ERROR ROWS\n")
			r.printErrorRows(report.Classification.Errors, writer)
		}
		if len(report.Classification.Duplicates) > 0 {
			fmt.Fprintf(writer, "\n")
			r.warnColor.Fprintf(writer, "UNRESOLVED DUPLICATES\n")
			r.printDuplicateRows(report.Classification.Duplicates, report.Matches, writer)
		}
	}

	return nil
}

func (r *Reporter) printErrorRows(candidates []*models.CandidateTransaction, writer io.Writer) {
	for i, candidate := range candidates {
		if i >= r.config.MaxRowsPerBucket {
			fmt.Fprintf(writer, "  ... and %d more\n", len(candidates)-r.config.MaxRowsPerBucket)
			break
		}

		var findings []string
		for _, ve := range candidate.ValidationErrors {
			if ve.Severity == models.SeverityError {
				findings = append(findings, fmt.Sprintf("%s: %s", ve.Field, ve.Message))
			}
		}
		fmt.Fprintf(writer, "  row %d: %s\n", candidate.RowNumber, strings.Join(findings, "; "))
	}
}

func (r *Reporter) printDuplicateRows(candidates []*models.CandidateTransaction, matches []models.DuplicateMatch, writer io.Writer) {
	matchByRow := make(map[int]models.DuplicateMatch, len(matches))
	for _, match := range matches {
		best, seen := matchByRow[match.CandidateRowNumber]
		if !seen || match.Confidence > best.Confidence {
			matchByRow[match.CandidateRowNumber] = match
		}
	}

	for i, candidate := range candidates {
		if i >= r.config.MaxRowsPerBucket {
			fmt.Fprintf(writer, "  ... and %d more\n", len(candidates)-r.config.MaxRowsPerBucket)
			break
		}

		line := fmt.Sprintf("  row %d: %s %s (%s)",
			candidate.RowNumber,
			models.FormatAmount(candidate.Amount),
			candidate.Currency,
			candidate.Description)
		if match, ok := matchByRow[candidate.RowNumber]; ok {
			line += fmt.Sprintf(" ~ transaction %d, confidence %d%% [%s]",
				match.ExistingTransactionID, match.Confidence, match.MatchReason)
		}
		fmt.Fprintln(writer, line)
	}
}

func (r *Reporter) writeReviewCSV(report *ReviewReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = r.config.CSVDelimiter
	defer csvWriter.Flush()

	if r.config.CSVHeaders {
		headers := []string{"Row", "Bucket", "Date", "Amount", "Currency", "Type", "Description", "Notes"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	buckets := []struct {
		name string
		rows []*models.CandidateTransaction
	}{
		{"errors", report.Classification.Errors},
		{"duplicates", report.Classification.Duplicates},
		{"needs_category_review", report.Classification.NeedsCategoryReview},
		{"ready_to_import", report.Classification.ReadyToImport},
	}

	for _, bucket := range buckets {
		for _, candidate := range bucket.rows {
			var notes []string
			for _, ve := range candidate.ValidationErrors {
				notes = append(notes, fmt.Sprintf("%s: %s", ve.Field, ve.Message))
			}
			record := []string{
				strconv.Itoa(candidate.RowNumber),
				bucket.name,
				candidate.Date.Format("2006-01-02"),
				models.FormatAmount(candidate.Amount),
				candidate.Currency,
				string(candidate.Type),
				candidate.Description,
				strings.Join(notes, "; "),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write review record: %w", err)
			}
		}
	}

	return nil
}

func (r *Reporter) writeSummaryConsole(summary *models.ImportSummary, writer io.Writer) error {
	r.headerColor.Fprintf(writer, "IMPORT COMPLETE\n")
	fmt.Fprintf(writer, "Batch: %s\n\n", summary.BatchID)

	r.okColor.Fprintf(writer, "Imported: %d\n", summary.TotalImported)
	if summary.TotalSkipped > 0 {
		r.warnColor.Fprintf(writer, "Skipped:  %d\n", summary.TotalSkipped)
	}
	if summary.DuplicatesMerged > 0 {
		fmt.Fprintf(writer, "Merged:   %d\n", summary.DuplicatesMerged)
	}
	if summary.DuplicatesSkipped > 0 {
		fmt.Fprintf(writer, "Duplicates Skipped: %d\n", summary.DuplicatesSkipped)
	}

	fmt.Fprintf(writer, "\nIncome:      %s\n", models.FormatAmount(summary.TotalIncome))
	fmt.Fprintf(writer, "Expenses:    %s\n", models.FormatAmount(summary.TotalExpenses))
	fmt.Fprintf(writer, "Net Change:  %s\n", models.FormatAmount(summary.NetChange))
	fmt.Fprintf(writer, "New Balance: %s\n", models.FormatAmount(summary.NewWalletBalance))

	if summary.CanUndo {
		fmt.Fprintf(writer, "\nUndo available until %s\n",
			summary.UndoExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (r *Reporter) writeSummaryCSV(summary *models.ImportSummary, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = r.config.CSVDelimiter
	defer csvWriter.Flush()

	if r.config.CSVHeaders {
		headers := []string{
			"Batch_ID", "Total_Imported", "Total_Skipped", "Total_Income",
			"Total_Expenses", "Net_Change", "New_Wallet_Balance",
			"Duplicates_Merged", "Duplicates_Skipped", "Undo_Expires_At",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	record := []string{
		summary.BatchID,
		strconv.Itoa(summary.TotalImported),
		strconv.Itoa(summary.TotalSkipped),
		models.FormatAmount(summary.TotalIncome),
		models.FormatAmount(summary.TotalExpenses),
		models.FormatAmount(summary.NetChange),
		models.FormatAmount(summary.NewWalletBalance),
		strconv.Itoa(summary.DuplicatesMerged),
		strconv.Itoa(summary.DuplicatesSkipped),
		summary.UndoExpiresAt.Format(time.RFC3339),
	}
	if err := csvWriter.Write(record); err != nil {
		return fmt.Errorf("failed to write summary record: %w", err)
	}
	return nil
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
