package executor

import (
	"context"
	"time"

	"go-ledger-import/internal/ledger"
	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/errors"
	"go-ledger-import/pkg/logger"
)

// UndoCoordinator reverses committed batches. A batch can be undone
// exactly once, and only before its recorded expiry.
type UndoCoordinator struct {
	store  ledger.Store
	logger logger.Logger
	now    func() time.Time
}

// UndoOption configures an UndoCoordinator.
type UndoOption func(*UndoCoordinator)

// WithUndoClock overrides the time source for window checks.
func WithUndoClock(now func() time.Time) UndoOption {
	return func(u *UndoCoordinator) { u.now = now }
}

// NewUndoCoordinator creates an UndoCoordinator over a ledger store.
func NewUndoCoordinator(store ledger.Store, log logger.Logger, opts ...UndoOption) *UndoCoordinator {
	if log == nil {
		log = logger.Nop()
	}
	u := &UndoCoordinator{
		store:  store,
		logger: log.WithComponent("undo"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Undo reverses a committed batch in one store transaction: deletes every
// inserted row, restores every merged row to its pre-merge snapshot, and
// applies the exact negated balance delta recorded at commit time. Fails
// with already_undone on a repeat undo and undo_expired outside the window.
func (u *UndoCoordinator) Undo(ctx context.Context, batchID string) (*models.ImportBatch, error) {
	op := logger.NewOperationLogger("undo import", u.logger).
		WithField("batch_id", batchID)

	tx, err := u.store.Begin(ctx)
	if err != nil {
		op.Error(err, "Failed to begin undo transaction")
		return nil, errors.UndoError(errors.CodeUnexpectedError, batchID, err)
	}
	defer tx.Rollback()

	batch, err := tx.GetBatch(ctx, batchID)
	if err != nil {
		op.Error(err, "Batch lookup failed")
		return nil, err
	}

	now := u.now().UTC()
	if batch.IsUndone() {
		return nil, errors.UndoError(errors.CodeAlreadyUndone, batchID, nil)
	}
	if !now.Before(batch.UndoExpiresAt) {
		return nil, errors.UndoError(errors.CodeUndoExpired, batchID, nil).
			WithContext("expired_at", batch.UndoExpiresAt)
	}

	for _, id := range batch.InsertedIDs {
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			op.Error(err, "Row delete failed")
			return nil, errors.UndoError(errors.CodeUnexpectedError, batchID, err)
		}
	}

	for _, snapshot := range batch.MergeSnapshots {
		if err := tx.UpdateTransaction(ctx, snapshot); err != nil {
			op.Error(err, "Snapshot restore failed")
			return nil, errors.UndoError(errors.CodeUnexpectedError, batchID, err)
		}
	}

	wallet, err := tx.GetWallet(ctx, batch.WalletID)
	if err != nil {
		op.Error(err, "Wallet lookup failed")
		return nil, err
	}

	// The recorded delta, not a recomputation, so reversal is exact even
	// if ledger rows changed since commit.
	if err := tx.UpdateWalletBalance(ctx, batch.WalletID, wallet.Balance-batch.BalanceDelta); err != nil {
		op.Error(err, "Balance restore failed")
		return nil, errors.UndoError(errors.CodeUnexpectedError, batchID, err)
	}

	if err := tx.MarkBatchUndone(ctx, batchID, now); err != nil {
		op.Error(err, "Batch state update failed")
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		op.Error(err, "Undo commit failed")
		return nil, errors.UndoError(errors.CodeUnexpectedError, batchID, err)
	}

	batch.UndoneAt = &now
	op.WithField("wallet_id", batch.WalletID).
		WithField("rows_deleted", len(batch.InsertedIDs)).
		WithField("rows_restored", len(batch.MergeSnapshots)).
		Success("Import undone")

	return batch, nil
}
