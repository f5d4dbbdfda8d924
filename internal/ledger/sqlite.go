package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	currency TEXT NOT NULL,
	balance  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	wallet_id        INTEGER NOT NULL REFERENCES wallets(id),
	date             INTEGER NOT NULL,
	amount           INTEGER NOT NULL,
	currency         TEXT NOT NULL,
	description      TEXT NOT NULL,
	type             TEXT NOT NULL,
	category_id      INTEGER,
	reference_number TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_transactions_wallet_date
	ON transactions(wallet_id, date);

CREATE TABLE IF NOT EXISTS import_batches (
	batch_id        TEXT PRIMARY KEY,
	wallet_id       INTEGER NOT NULL REFERENCES wallets(id),
	committed_at    INTEGER NOT NULL,
	undo_expires_at INTEGER NOT NULL,
	inserted_ids    TEXT NOT NULL,
	merge_snapshots TEXT NOT NULL,
	balance_delta   INTEGER NOT NULL,
	summary         TEXT NOT NULL,
	undone_at       INTEGER
);
`

// SQLiteStore implements Store over a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and initializes if needed) a SQLite ledger at path.
// Use ":memory:" for an in-process test ledger.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "open ledger", err)
	}

	// The sqlite driver serializes writes; a single connection keeps
	// in-memory databases coherent across goroutines as well.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeQueryFailed, "initialize schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateWallet inserts a wallet row and returns its id. Used by the CLI
// and by tests; imports never create wallets.
func (s *SQLiteStore) CreateWallet(ctx context.Context, wallet *models.Wallet) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (name, currency, balance) VALUES (?, ?, ?)`,
		wallet.Name, wallet.Currency, wallet.Balance)
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "create wallet", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "create wallet", err)
	}
	wallet.ID = id
	return id, nil
}

// GetWallet implements Store.
func (s *SQLiteStore) GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return getWallet(ctx, s.db, walletID)
}

// GetTransactions implements Store.
func (s *SQLiteStore) GetTransactions(ctx context.Context, walletID int64, from, to time.Time) ([]*models.Transaction, error) {
	query := `SELECT id, wallet_id, date, amount, currency, description, type, category_id, reference_number
		FROM transactions WHERE wallet_id = ?`
	args := []interface{}{walletID}

	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.Unix())
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "query transactions", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.StorageError(errors.CodeQueryFailed, "scan transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "query transactions", err)
	}

	return transactions, nil
}

// GetBatch implements Store.
func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*models.ImportBatch, error) {
	return getBatch(ctx, s.db, batchID)
}

// Begin implements Store.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "begin transaction", err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertTransaction(ctx context.Context, tr *models.Transaction) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions (wallet_id, date, amount, currency, description, type, category_id, reference_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.WalletID, tr.Date.Unix(), tr.Amount, tr.Currency, tr.Description,
		string(tr.Type), nullableCategory(tr.CategoryID), tr.ReferenceNumber)
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "insert transaction", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.StorageError(errors.CodeQueryFailed, "insert transaction", err)
	}
	tr.ID = id
	return id, nil
}

func (t *sqliteTx) UpdateTransaction(ctx context.Context, tr *models.Transaction) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount = ?, currency = ?, description = ?,
		 type = ?, category_id = ?, reference_number = ? WHERE id = ?`,
		tr.Date.Unix(), tr.Amount, tr.Currency, tr.Description,
		string(tr.Type), nullableCategory(tr.CategoryID), tr.ReferenceNumber, tr.ID)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "update transaction", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "update transaction", err)
	}
	if affected == 0 {
		return errors.StorageError(errors.CodeQueryFailed, "update transaction",
			sql.ErrNoRows)
	}
	return nil
}

func (t *sqliteTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "delete transaction", err)
	}
	return nil
}

func (t *sqliteTx) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT id, wallet_id, date, amount, currency, description, type, category_id, reference_number
		 FROM transactions WHERE id = ?`, id)
	tr, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get transaction", err)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get transaction", err)
	}
	return tr, nil
}

func (t *sqliteTx) GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error) {
	return getWallet(ctx, t.tx, walletID)
}

func (t *sqliteTx) UpdateWalletBalance(ctx context.Context, walletID int64, balance int64) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = ? WHERE id = ?`, balance, walletID)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "update wallet balance", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "update wallet balance", err)
	}
	if affected == 0 {
		return errors.StorageError(errors.CodeWalletNotFound, "update wallet balance", nil)
	}
	return nil
}

func (t *sqliteTx) SaveBatch(ctx context.Context, batch *models.ImportBatch) error {
	insertedIDs, err := json.Marshal(batch.InsertedIDs)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "encode batch", err)
	}
	snapshots, err := json.Marshal(batch.MergeSnapshots)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "encode batch", err)
	}
	summary, err := json.Marshal(batch.Summary)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "encode batch", err)
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO import_batches
		 (batch_id, wallet_id, committed_at, undo_expires_at, inserted_ids, merge_snapshots, balance_delta, summary, undone_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		batch.BatchID, batch.WalletID, batch.CommittedAt.Unix(), batch.UndoExpiresAt.Unix(),
		string(insertedIDs), string(snapshots), batch.BalanceDelta, string(summary))
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "save batch", err)
	}
	return nil
}

func (t *sqliteTx) GetBatch(ctx context.Context, batchID string) (*models.ImportBatch, error) {
	return getBatch(ctx, t.tx, batchID)
}

func (t *sqliteTx) MarkBatchUndone(ctx context.Context, batchID string, undoneAt time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE import_batches SET undone_at = ? WHERE batch_id = ? AND undone_at IS NULL`,
		undoneAt.Unix(), batchID)
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "mark batch undone", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "mark batch undone", err)
	}
	if affected == 0 {
		return errors.UndoError(errors.CodeAlreadyUndone, batchID, nil)
	}
	return nil
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errors.StorageError(errors.CodeQueryFailed, "commit", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier is the shared query surface of *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getWallet(ctx context.Context, q querier, walletID int64) (*models.Wallet, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, currency, balance FROM wallets WHERE id = ?`, walletID)

	wallet := &models.Wallet{}
	err := row.Scan(&wallet.ID, &wallet.Name, &wallet.Currency, &wallet.Balance)
	if err == sql.ErrNoRows {
		return nil, errors.StorageError(errors.CodeWalletNotFound, "get wallet", nil).
			WithContext("wallet_id", walletID)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get wallet", err)
	}
	return wallet, nil
}

func getBatch(ctx context.Context, q querier, batchID string) (*models.ImportBatch, error) {
	row := q.QueryRowContext(ctx,
		`SELECT batch_id, wallet_id, committed_at, undo_expires_at, inserted_ids, merge_snapshots, balance_delta, summary, undone_at
		 FROM import_batches WHERE batch_id = ?`, batchID)

	var (
		batch         models.ImportBatch
		committedAt   int64
		undoExpiresAt int64
		insertedIDs   string
		snapshots     string
		summary       string
		undoneAt      sql.NullInt64
	)
	err := row.Scan(&batch.BatchID, &batch.WalletID, &committedAt, &undoExpiresAt,
		&insertedIDs, &snapshots, &batch.BalanceDelta, &summary, &undoneAt)
	if err == sql.ErrNoRows {
		return nil, errors.UndoError(errors.CodeBatchNotFound, batchID, nil)
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "get batch", err)
	}

	batch.CommittedAt = time.Unix(committedAt, 0).UTC()
	batch.UndoExpiresAt = time.Unix(undoExpiresAt, 0).UTC()
	if undoneAt.Valid {
		at := time.Unix(undoneAt.Int64, 0).UTC()
		batch.UndoneAt = &at
	}

	if err := json.Unmarshal([]byte(insertedIDs), &batch.InsertedIDs); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "decode batch", err)
	}
	if err := json.Unmarshal([]byte(snapshots), &batch.MergeSnapshots); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "decode batch", err)
	}
	if err := json.Unmarshal([]byte(summary), &batch.Summary); err != nil {
		return nil, errors.StorageError(errors.CodeQueryFailed, "decode batch", err)
	}

	return &batch, nil
}

// scanner is the shared Scan surface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (*models.Transaction, error) {
	var (
		tr       models.Transaction
		date     int64
		txType   string
		category sql.NullInt64
	)
	err := s.Scan(&tr.ID, &tr.WalletID, &date, &tr.Amount, &tr.Currency,
		&tr.Description, &txType, &category, &tr.ReferenceNumber)
	if err != nil {
		return nil, err
	}

	tr.Date = time.Unix(date, 0).UTC()
	tr.Type = models.TransactionType(txType)
	if category.Valid {
		tr.CategoryID = category.Int64
	}
	return &tr, nil
}

// nullableCategory maps the in-memory "no category" zero to SQL NULL.
func nullableCategory(categoryID int64) interface{} {
	if categoryID == 0 {
		return nil
	}
	return categoryID
}
