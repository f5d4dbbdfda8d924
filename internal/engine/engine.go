// Package engine exposes the import reconciliation surface: duplicate
// detection, currency conversion, classification, commit and undo.
//
// Operations that touch shared ledger state (detection, commit, undo) are
// serialized per wallet; everything else is pure and safe to call
// concurrently across batches.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"go-ledger-import/internal/classifier"
	"go-ledger-import/internal/converter"
	"go-ledger-import/internal/executor"
	"go-ledger-import/internal/ledger"
	"go-ledger-import/internal/matcher"
	"go-ledger-import/internal/models"
	"go-ledger-import/internal/strategy"
	"go-ledger-import/pkg/errors"
	"go-ledger-import/pkg/logger"
)

// Config bundles the tunables of one engine instance.
type Config struct {
	Matcher    *matcher.Config
	UndoWindow time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Matcher:    matcher.DefaultConfig(),
		UndoWindow: executor.DefaultUndoWindow,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Matcher == nil {
		return errors.ValidationError(errors.CodeInvalidConfig, "matcher", nil, nil)
	}
	if err := c.Matcher.Validate(); err != nil {
		return err
	}
	if c.UndoWindow <= 0 {
		return errors.ValidationError(errors.CodeInvalidConfig, "undoWindow", c.UndoWindow.String(), nil)
	}
	return nil
}

// Engine is the public import surface. All collaborators are injected at
// construction; the engine holds no process-wide state.
type Engine struct {
	store     ledger.Store
	matcher   *matcher.Matcher
	converter *converter.Converter
	executor  *executor.Executor
	undo      *executor.UndoCoordinator
	config    *Config
	logger    logger.Logger

	mu          sync.Mutex
	walletLocks map[int64]*sync.Mutex
}

// New creates an Engine. The fx provider may be nil; conversion then
// relies on manual rates and the fallback.
func New(store ledger.Store, fx converter.FxRateProvider, config *Config, log logger.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Engine{
		store:       store,
		matcher:     matcher.New(config.Matcher),
		converter:   converter.New(fx, log),
		executor:    executor.New(store, log, executor.WithUndoWindow(config.UndoWindow)),
		undo:        executor.NewUndoCoordinator(store, log),
		config:      config,
		logger:      log.WithComponent("engine"),
		walletLocks: make(map[int64]*sync.Mutex),
	}, nil
}

// walletLock returns the mutex serializing ledger access for one wallet.
func (e *Engine) walletLock(walletID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.walletLocks[walletID]
	if !ok {
		lock = &sync.Mutex{}
		e.walletLocks[walletID] = lock
	}
	return lock
}

// DetectDuplicates compares the candidates against the wallet's existing
// ledger rows. The ledger is read through a single snapshot query bounded
// by the candidates' date range plus the match window.
func (e *Engine) DetectDuplicates(ctx context.Context, candidates []*models.CandidateTransaction, walletID int64) ([]models.DuplicateMatch, error) {
	lock := e.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}

	from, to := candidateDateRange(candidates, e.config.Matcher.DateWindowDays)
	existing, err := e.store.GetTransactions(ctx, walletID, from, to)
	if err != nil {
		return nil, err
	}

	matches := e.matcher.DetectDuplicates(candidates, existing)

	e.logger.WithFields(logger.Fields{
		"wallet_id":  walletID,
		"candidates": len(candidates),
		"existing":   len(existing),
		"matches":    len(matches),
	}).Debug("Duplicate detection complete")

	return matches, nil
}

// ConvertCurrency rewrites candidate amounts into the wallet's currency.
func (e *Engine) ConvertCurrency(ctx context.Context, candidates []*models.CandidateTransaction, walletID int64, manualRates map[string]decimal.Decimal) ([]models.CurrencyConversion, error) {
	wallet, err := e.store.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return e.converter.Convert(ctx, candidates, wallet.Currency, manualRates)
}

// Classify buckets every candidate by validity, duplicate status and
// category status. Pure; recompute after every review edit.
func (e *Engine) Classify(candidates []*models.CandidateTransaction, matches []models.DuplicateMatch, strat strategy.Strategy, actions []models.DuplicateAction) *classifier.Classification {
	return classifier.Classify(candidates, matches, strat, actions)
}

// ExecuteImport commits the batch atomically under the wallet lock.
func (e *Engine) ExecuteImport(ctx context.Context, req *executor.Request) (*models.ImportSummary, error) {
	lock := e.walletLock(req.WalletID)
	lock.Lock()
	defer lock.Unlock()

	return e.executor.Execute(ctx, req)
}

// UndoImport reverses a committed batch under its wallet's lock.
func (e *Engine) UndoImport(ctx context.Context, batchID string) (*models.ImportBatch, error) {
	batch, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	lock := e.walletLock(batch.WalletID)
	lock.Lock()
	defer lock.Unlock()

	return e.undo.Undo(ctx, batchID)
}

// candidateDateRange bounds the snapshot query to the candidates' dates
// widened by the match window. Zero times mean an unbounded query when
// the batch is empty.
func candidateDateRange(candidates []*models.CandidateTransaction, windowDays int) (time.Time, time.Time) {
	var from, to time.Time
	for _, candidate := range candidates {
		if candidate.Date.IsZero() {
			continue
		}
		if from.IsZero() || candidate.Date.Before(from) {
			from = candidate.Date
		}
		if to.IsZero() || candidate.Date.After(to) {
			to = candidate.Date
		}
	}
	if !from.IsZero() {
		from = from.AddDate(0, 0, -windowDays)
		to = to.AddDate(0, 0, windowDays)
	}
	return from, to
}
