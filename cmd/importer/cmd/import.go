package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go-ledger-import/cmd/importer/config"
	"go-ledger-import/internal/engine"
	"go-ledger-import/internal/executor"
	"go-ledger-import/internal/ledger"
	"go-ledger-import/internal/models"
	"go-ledger-import/internal/normalizer"
	"go-ledger-import/internal/reporter"
	"go-ledger-import/internal/strategy"
	"go-ledger-import/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the import command
var (
	ledgerFile    string
	walletID      int64
	statementFile string
	currency      string
	dateFormat    string
	strategyName  string
	manualRates   []string
	actionsFile   string
	excludedRows  []int
	outputFormat  string
	outputFile    string
	dateWindow    int
	minConfidence int
	dryRun        bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement into a wallet",
	Long: `Import reads a CSV bank statement, normalizes the rows, detects
duplicates against the wallet's existing ledger, converts currencies when
needed, and commits the batch atomically. Every commit records an undo
token valid for 24 hours.

The statement file needs a header row; date, amount and description
columns are required, type and reference columns are optional.

Examples:
  # Review what would be imported without committing
  importer import --ledger ledger.db --wallet 1 --statement rows.csv --dry-run

  # Commit, skipping anything that looks like a duplicate
  importer import --ledger ledger.db --wallet 1 --statement rows.csv

  # Merge duplicates automatically
  importer import --ledger ledger.db --wallet 1 --statement rows.csv --strategy auto_merge

  # EUR statement into a USD wallet with a manual rate
  importer import --ledger ledger.db --wallet 1 --statement eur.csv \
    --currency EUR --rate EUR=1.08

  # Review each duplicate with recorded decisions
  importer import --ledger ledger.db --wallet 1 --statement rows.csv \
    --strategy review_each --actions decisions.json`,

	PreRunE: validateImportFlags,
	RunE:    runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	// Required flags
	importCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to the ledger database (required)")
	importCmd.Flags().Int64VarP(&walletID, "wallet", "w", 0, "target wallet id (required)")
	importCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "path to statement CSV file (required)")

	// Statement interpretation flags
	importCmd.Flags().StringVar(&currency, "currency", "", "statement currency (default: wallet currency)")
	importCmd.Flags().StringVar(&dateFormat, "date-format", "2006-01-02", "statement date format")

	// Duplicate handling flags
	importCmd.Flags().StringVar(&strategyName, "strategy", "skip_all", "duplicate strategy: skip_all, auto_merge, review_each, keep_all")
	importCmd.Flags().StringVar(&actionsFile, "actions", "", "JSON file of recorded duplicate actions")
	importCmd.Flags().IntSliceVar(&excludedRows, "exclude", nil, "statement row numbers to exclude")
	importCmd.Flags().IntVar(&dateWindow, "date-window", -1, "duplicate match window in days")
	importCmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "minimum duplicate confidence (1-100)")

	// Currency flags
	importCmd.Flags().StringSliceVar(&manualRates, "rate", nil, "manual exchange rate as CUR=VALUE (repeatable)")

	// Output flags
	importCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	importCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "review only, do not commit")

	// Mark required flags
	importCmd.MarkFlagRequired("ledger")
	importCmd.MarkFlagRequired("wallet")
	importCmd.MarkFlagRequired("statement")

	// Bind flags to viper
	viper.BindPFlag("ledger", importCmd.Flags().Lookup("ledger"))
	viper.BindPFlag("strategy", importCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("output-format", importCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("date-window", importCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("min-confidence", importCmd.Flags().Lookup("min-confidence"))
}

func validateImportFlags(cmd *cobra.Command, args []string) error {
	if walletID <= 0 {
		return fmt.Errorf("wallet id must be positive, got %d", walletID)
	}

	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "ledger database"); err != nil {
		return err
	}

	if _, err := strategy.Parse(strategyName); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if actionsFile != "" {
		if err := validateFileExists(actionsFile, "actions file"); err != nil {
			return err
		}
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := buildLogger()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Importing %s into wallet %d of %s\n", statementFile, walletID, ledgerFile)
	}

	store, err := ledger.Open(ledgerFile)
	if err != nil {
		return err
	}
	defer store.Close()

	wallet, err := store.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}

	statementCurrency := currency
	if statementCurrency == "" {
		statementCurrency = wallet.Currency
	}

	matcherConfig, err := config.CreateMatcherConfig(dateWindow, minConfidence)
	if err != nil {
		return err
	}

	provider, err := config.CreateRateProvider(viper.GetStringMapString("rates"))
	if err != nil {
		return err
	}

	eng, err := engine.New(store, provider, config.CreateEngineConfig(matcherConfig, 0), log)
	if err != nil {
		return err
	}

	// Normalize
	rows, err := readStatementRows(statementFile)
	if err != nil {
		return err
	}

	normalizerConfig := config.CreateNormalizerConfig(statementCurrency, dateFormat)
	candidates := normalizer.New(normalizerConfig, nil).Normalize(rows)

	// Detect duplicates
	matches, err := eng.DetectDuplicates(ctx, candidates, walletID)
	if err != nil {
		return err
	}

	// Convert currency
	rates, err := config.ParseManualRates(manualRates)
	if err != nil {
		return err
	}
	conversions, err := eng.ConvertCurrency(ctx, candidates, walletID, rates)
	if err != nil {
		return err
	}

	// Classify
	strat, _ := strategy.Parse(strategyName)
	actions, err := loadActions(actionsFile)
	if err != nil {
		return err
	}
	classification := eng.Classify(candidates, matches, strat, actions)

	reportConfig, err := config.CreateReportConfig(outputFormat, outputFile == "")
	if err != nil {
		return err
	}
	rep, err := reporter.New(reportConfig)
	if err != nil {
		return err
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	review := &reporter.ReviewReport{
		Classification: classification,
		Matches:        matches,
		Conversions:    conversions,
	}
	if err := rep.WriteReview(review, output); err != nil {
		return err
	}

	if dryRun {
		return nil
	}

	// Commit
	excluded := make(map[int]bool, len(excludedRows))
	for _, row := range excludedRows {
		excluded[row] = true
	}

	// Error rows ride along so the executor counts them as skipped.
	importable := append([]*models.CandidateTransaction{},
		classification.ReadyToImport...)
	importable = append(importable, classification.NeedsCategoryReview...)
	importable = append(importable, classification.Duplicates...)
	importable = append(importable, classification.Errors...)

	summary, err := eng.ExecuteImport(ctx, &executor.Request{
		WalletID:     walletID,
		Candidates:   importable,
		Matches:      matches,
		Strategy:     strat,
		Actions:      actions,
		ExcludedRows: excluded,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(output)
	if err := rep.WriteSummary(summary, output); err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nCommitted batch %s, undo with:\n  importer undo --ledger %s --batch %s\n",
			summary.BatchID, ledgerFile, summary.BatchID)
	}

	return nil
}

// loadActions reads recorded duplicate actions from a JSON file.
func loadActions(path string) ([]models.DuplicateAction, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file: %w", err)
	}

	var actions []models.DuplicateAction
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("invalid actions file: %w", err)
	}
	return actions, nil
}

// buildLogger configures logging from the global flags.
func buildLogger() logger.Logger {
	logConfig := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		logConfig = logger.DebugConfig()
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return logger.GetGlobalLogger()
	}
	return log
}
