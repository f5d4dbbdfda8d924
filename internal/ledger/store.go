// Package ledger defines the persistence boundary for wallets, ledger
// transactions and import batches, plus a SQLite implementation.
package ledger

import (
	"context"
	"time"

	"go-ledger-import/internal/models"
)

// Store is the read side of the ledger plus the transaction boundary.
// GetTransactions reads through a single query so duplicate detection sees
// one consistent snapshot of the wallet.
type Store interface {
	// GetWallet loads a wallet by id.
	GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error)

	// GetTransactions returns the wallet's ledger rows with dates inside
	// [from, to] inclusive. A zero from/to means unbounded on that side.
	GetTransactions(ctx context.Context, walletID int64, from, to time.Time) ([]*models.Transaction, error)

	// GetBatch loads a committed import batch by id.
	GetBatch(ctx context.Context, batchID string) (*models.ImportBatch, error)

	// Begin opens a write transaction. The caller must Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the underlying connection.
	Close() error
}

// Tx is one atomic unit of ledger mutation. Either every operation inside
// it becomes visible at Commit, or none do.
type Tx interface {
	// InsertTransaction inserts a ledger row and returns its new id.
	InsertTransaction(ctx context.Context, tx *models.Transaction) (int64, error)

	// UpdateTransaction overwrites an existing row's mutable fields.
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error

	// DeleteTransaction removes a row by id.
	DeleteTransaction(ctx context.Context, id int64) error

	// GetTransaction loads a single row by id.
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)

	// GetWallet loads a wallet inside the transaction.
	GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error)

	// UpdateWalletBalance sets the wallet balance to an absolute value.
	UpdateWalletBalance(ctx context.Context, walletID int64, balance int64) error

	// SaveBatch persists a committed import batch.
	SaveBatch(ctx context.Context, batch *models.ImportBatch) error

	// GetBatch loads a batch inside the transaction.
	GetBatch(ctx context.Context, batchID string) (*models.ImportBatch, error)

	// MarkBatchUndone records the undo timestamp on a batch.
	MarkBatchUndone(ctx context.Context, batchID string, undoneAt time.Time) error

	Commit() error
	Rollback() error
}
