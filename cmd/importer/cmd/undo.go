package cmd

import (
	"context"
	"fmt"
	"os"

	"go-ledger-import/cmd/importer/config"
	"go-ledger-import/internal/engine"
	"go-ledger-import/internal/ledger"
	"go-ledger-import/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the undo command
var (
	undoLedgerFile   string
	undoBatchID      string
	undoOutputFormat string
)

// undoCmd represents the undo command
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo a committed import batch",
	Long: `Undo reverts a committed import batch: rows inserted by the batch are
deleted, rows overwritten by merges are restored from their snapshots,
and the wallet balance is returned to its pre-import value.

A batch can be undone once, within 24 hours of the commit.

Examples:
  importer undo --ledger ledger.db --batch 7f3c9a2e-5b1d-4e8f-9c6a-2d4b8e1f0a3c`,

	PreRunE: validateUndoFlags,
	RunE:    runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)

	undoCmd.Flags().StringVarP(&undoLedgerFile, "ledger", "l", "", "path to the ledger database (required)")
	undoCmd.Flags().StringVarP(&undoBatchID, "batch", "b", "", "batch id printed at commit time (required)")
	undoCmd.Flags().StringVarP(&undoOutputFormat, "output-format", "f", "console", "output format: console, json, csv")

	undoCmd.MarkFlagRequired("ledger")
	undoCmd.MarkFlagRequired("batch")
}

func validateUndoFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(undoLedgerFile, "ledger database"); err != nil {
		return err
	}

	if undoBatchID == "" {
		return fmt.Errorf("batch id cannot be empty")
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[undoOutputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", undoOutputFormat)
	}

	return nil
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := buildLogger()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Undoing batch %s in %s\n", undoBatchID, undoLedgerFile)
	}

	store, err := ledger.Open(undoLedgerFile)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.New(store, nil, engine.DefaultConfig(), log)
	if err != nil {
		return err
	}

	batch, err := eng.UndoImport(ctx, undoBatchID)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(undoOutputFormat, true)
	if err != nil {
		return err
	}
	rep, err := reporter.New(reportConfig)
	if err != nil {
		return err
	}

	return rep.WriteUndo(batch, os.Stdout)
}
