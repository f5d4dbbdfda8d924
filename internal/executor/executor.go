// Package executor commits a reviewed batch into the ledger and reverses
// committed batches within the undo window.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-ledger-import/internal/ledger"
	"go-ledger-import/internal/models"
	"go-ledger-import/internal/strategy"
	"go-ledger-import/pkg/errors"
	"go-ledger-import/pkg/logger"
)

// DefaultUndoWindow is how long after commit a batch remains reversible.
const DefaultUndoWindow = 24 * time.Hour

// Request carries everything needed to commit one reviewed batch.
type Request struct {
	WalletID     int64
	Candidates   []*models.CandidateTransaction
	Matches      []models.DuplicateMatch
	Strategy     strategy.Strategy
	Actions      []models.DuplicateAction
	ExcludedRows map[int]bool
}

// Executor commits reviewed batches atomically.
type Executor struct {
	store      ledger.Store
	undoWindow time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithUndoWindow overrides the default undo window.
func WithUndoWindow(d time.Duration) Option {
	return func(e *Executor) { e.undoWindow = d }
}

// WithClock overrides the time source. Tests use this to control the
// undo window deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor over a ledger store.
func New(store ledger.Store, log logger.Logger, opts ...Option) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	e := &Executor{
		store:      store,
		undoWindow: DefaultUndoWindow,
		logger:     log.WithComponent("executor"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute commits the batch in one store transaction: resolves duplicate
// actions, drops excluded, skipped and invalid rows, merges with pre-merge
// snapshot capture, inserts the rest, applies the balance delta and
// persists the undo record. Any storage failure rolls back the whole
// commit and surfaces as a commit_failure.
func (e *Executor) Execute(ctx context.Context, req *Request) (*models.ImportSummary, error) {
	resolved, err := strategy.Resolve(req.Strategy, req.Matches, req.Actions)
	if err != nil {
		return nil, err
	}

	actionByRow := make(map[int]models.DuplicateAction, len(resolved))
	for _, action := range resolved {
		actionByRow[action.CandidateRowNumber] = action
	}

	op := logger.NewOperationLogger("execute import", e.logger).
		WithField("wallet_id", req.WalletID)

	tx, err := e.store.Begin(ctx)
	if err != nil {
		op.Error(err, "Failed to begin commit transaction")
		return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
	}
	defer tx.Rollback()

	wallet, err := tx.GetWallet(ctx, req.WalletID)
	if err != nil {
		op.Error(err, "Wallet lookup failed")
		return nil, err
	}

	batchID := uuid.New().String()
	committedAt := e.now().UTC()

	summary := &models.ImportSummary{
		BatchID:       batchID,
		CanUndo:       true,
		UndoExpiresAt: committedAt.Add(e.undoWindow),
	}
	batch := &models.ImportBatch{
		BatchID:        batchID,
		WalletID:       req.WalletID,
		CommittedAt:    committedAt,
		UndoExpiresAt:  summary.UndoExpiresAt,
		InsertedIDs:    []int64{},
		MergeSnapshots: []*models.Transaction{},
	}

	imported := 0
	for _, candidate := range req.Candidates {
		if !candidate.IsValid() || req.ExcludedRows[candidate.RowNumber] {
			summary.TotalSkipped++
			continue
		}

		action, hasAction := actionByRow[candidate.RowNumber]
		if hasAction && action.Action == models.ActionSkip {
			summary.TotalSkipped++
			summary.DuplicatesSkipped++
			continue
		}

		if hasAction && action.Action == models.ActionMerge {
			if err := e.merge(ctx, tx, candidate, action.ExistingTransactionID, batch); err != nil {
				op.Error(err, "Merge failed")
				return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
			}
			summary.DuplicatesMerged++
		} else {
			// keep_both, not_duplicate and plain rows insert as new.
			id, err := tx.InsertTransaction(ctx, candidateToTransaction(candidate, req.WalletID, wallet.Currency))
			if err != nil {
				op.Error(err, "Insert failed")
				return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
			}
			batch.InsertedIDs = append(batch.InsertedIDs, id)
		}

		imported++
		if candidate.Type == models.TransactionTypeIncome {
			summary.TotalIncome += candidate.Amount
		} else {
			summary.TotalExpenses += candidate.Amount
		}
	}

	if imported == 0 {
		return nil, errors.CommitError(errors.CodeEmptyBatch, req.WalletID, nil)
	}

	summary.TotalImported = imported
	summary.NetChange = summary.TotalIncome - summary.TotalExpenses
	summary.NewWalletBalance = wallet.Balance + summary.NetChange
	batch.BalanceDelta = summary.NetChange
	batch.Summary = *summary

	if err := tx.UpdateWalletBalance(ctx, req.WalletID, summary.NewWalletBalance); err != nil {
		op.Error(err, "Balance update failed")
		return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
	}
	if err := tx.SaveBatch(ctx, batch); err != nil {
		op.Error(err, "Batch save failed")
		return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
	}
	if err := tx.Commit(); err != nil {
		op.Error(err, "Commit failed")
		return nil, errors.CommitError(errors.CodeCommitFailure, req.WalletID, err)
	}

	op.WithField("batch_id", batchID).
		WithField("imported", summary.TotalImported).
		WithField("skipped", summary.TotalSkipped).
		Success("Import committed")

	return summary, nil
}

// merge overwrites the matched existing row with the candidate's fields,
// capturing the pre-merge values into the batch snapshot first.
func (e *Executor) merge(ctx context.Context, tx ledger.Tx, candidate *models.CandidateTransaction, existingID int64, batch *models.ImportBatch) error {
	existing, err := tx.GetTransaction(ctx, existingID)
	if err != nil {
		return err
	}
	batch.MergeSnapshots = append(batch.MergeSnapshots, existing.Clone())

	merged := candidateToTransaction(candidate, existing.WalletID, candidate.Currency)
	merged.ID = existing.ID
	return tx.UpdateTransaction(ctx, merged)
}

func candidateToTransaction(c *models.CandidateTransaction, walletID int64, currency string) *models.Transaction {
	return &models.Transaction{
		WalletID:        walletID,
		Date:            c.Date,
		Amount:          c.Amount,
		Currency:        currency,
		Description:     c.Description,
		Type:            c.Type,
		CategoryID:      c.CategoryID,
		ReferenceNumber: c.ReferenceNumber,
	}
}
