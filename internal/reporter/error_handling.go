package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/errors"
	"go-ledger-import/pkg/logger"
)

// SafeReporter wraps Reporter with fallback handling so a formatting
// failure never hides the result of a committed import.
type SafeReporter struct {
	*Reporter
	logger logger.Logger
}

// NewSafeReporter creates a safe reporter with error handling
func NewSafeReporter(config *Config, log logger.Logger) (*SafeReporter, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	reporter, err := New(config)
	if err != nil {
		return nil, errors.ValidationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReporter{
		Reporter: reporter,
		logger:   log.WithComponent("reporter"),
	}, nil
}

// WriteSummarySafely renders an import summary, falling back to console
// format when the requested format fails. The commit already happened at
// this point, so the caller must see the batch id one way or another.
func (sr *SafeReporter) WriteSummarySafely(summary *models.ImportSummary, writer io.Writer) error {
	if summary == nil {
		return errors.ValidationError(errors.CodeMissingField, "summary", nil, nil)
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil)
	}

	err := sr.WriteSummary(summary, writer)
	if err == nil {
		return nil
	}

	sr.logger.WithError(err).Warn("Report generation failed, attempting console fallback")

	if sr.config.Format == FormatConsole {
		return errors.InternalError("report generation", err)
	}

	fallbackConfig := *sr.config
	fallbackConfig.Format = FormatConsole
	fallback, fbErr := New(&fallbackConfig)
	if fbErr != nil {
		return errors.InternalError("report generation", err)
	}

	fmt.Fprintf(writer, "NOTE: falling back to console output, %s rendering failed: %v\n\n",
		sr.config.Format, err)
	if fbErr := fallback.WriteSummary(summary, writer); fbErr != nil {
		return errors.InternalError("report fallback",
			fmt.Errorf("primary: %v, fallback: %v", err, fbErr))
	}
	return nil
}

// WriteReviewToFile renders a review report to a file. When the target
// cannot be written it retries against a timestamped sibling path so the
// review output is not lost.
func (sr *SafeReporter) WriteReviewToFile(report *ReviewReport, path string) error {
	file, err := os.Create(path)
	if err == nil {
		defer file.Close()
		return sr.WriteReview(report, file)
	}

	backupPath := backupPathFor(path)
	sr.logger.WithError(err).WithFields(logger.Fields{
		"path":   path,
		"backup": backupPath,
	}).Warn("Report file not writable, using backup path")

	backup, backupErr := os.Create(backupPath)
	if backupErr != nil {
		return errors.InternalError("report output",
			fmt.Errorf("primary: %v, backup: %v", err, backupErr))
	}
	defer backup.Close()

	return sr.WriteReview(report, backup)
}

func backupPathFor(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, fmt.Sprintf("%s.%d.bak", base, time.Now().Unix()))
}
