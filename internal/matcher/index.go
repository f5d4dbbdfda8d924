package matcher

import (
	"time"

	"go-ledger-import/internal/models"
)

// LedgerIndex provides date- and amount-keyed lookups over a single
// consistent snapshot of a wallet's ledger. It is built once per detection
// run; the caller's per-wallet lock guarantees nothing is inserted into the
// wallet between snapshot and commit.
type LedgerIndex struct {
	// DateIndex maps date strings (YYYY-MM-DD) to transaction slices
	DateIndex map[string][]*models.Transaction

	// AmountIndex maps exact fixed-point amounts to transaction slices
	AmountIndex map[int64][]*models.Transaction

	// All holds every indexed transaction
	All []*models.Transaction
}

// NewLedgerIndex builds an index over a snapshot of ledger transactions
func NewLedgerIndex(transactions []*models.Transaction) *LedgerIndex {
	index := &LedgerIndex{
		DateIndex:   make(map[string][]*models.Transaction),
		AmountIndex: make(map[int64][]*models.Transaction),
		All:         transactions,
	}

	for _, tx := range transactions {
		dateKey := tx.Date.Format("2006-01-02")
		index.DateIndex[dateKey] = append(index.DateIndex[dateKey], tx)
		index.AmountIndex[tx.Amount] = append(index.AmountIndex[tx.Amount], tx)
	}

	return index
}

// GetByDate returns transactions dated on the given day
func (li *LedgerIndex) GetByDate(date time.Time) []*models.Transaction {
	return li.DateIndex[date.Format("2006-01-02")]
}

// GetByExactAmount returns transactions with the exact fixed-point amount
func (li *LedgerIndex) GetByExactAmount(amount int64) []*models.Transaction {
	return li.AmountIndex[amount]
}

// GetCandidates returns the ledger transactions within the configured date
// window around the candidate's date. Comparison against everything in the
// window keeps near-amount duplicates visible to the scorer.
func (li *LedgerIndex) GetCandidates(candidate *models.CandidateTransaction, config *Config) []*models.Transaction {
	var result []*models.Transaction

	start := candidate.Date.AddDate(0, 0, -config.DateWindowDays)
	end := candidate.Date.AddDate(0, 0, config.DateWindowDays)

	current := start
	for !current.After(end) {
		if txs, exists := li.DateIndex[current.Format("2006-01-02")]; exists {
			result = append(result, txs...)
		}
		current = current.AddDate(0, 0, 1)
	}

	return result
}

// Stats provides statistics about index usage
type Stats struct {
	TotalTransactions int
	UniqueDates       int
	UniqueAmounts     int
}

// GetStats returns statistics about the ledger index
func (li *LedgerIndex) GetStats() Stats {
	return Stats{
		TotalTransactions: len(li.All),
		UniqueDates:       len(li.DateIndex),
		UniqueAmounts:     len(li.AmountIndex),
	}
}
