// Package converter rewrites candidate amounts into the wallet currency.
//
// Conversion always re-derives from the original amount and currency the
// normalizer recorded on each candidate, so running it again with a
// different manual rate produces the same result as running it once.
package converter

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/errors"
	"go-ledger-import/pkg/logger"
)

// FxRateProvider supplies automatic exchange rates. Implementations may
// call out to an external service; the converter treats any error as
// "rate unavailable" and falls back to a rate of 1.
type FxRateProvider interface {
	GetRate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error)
}

// StaticRateProvider serves rates from a fixed table keyed by "FROM/TO".
// Used by the CLI (rates loaded from config) and by tests.
type StaticRateProvider struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateProvider creates a provider over a fixed rate table.
func NewStaticRateProvider(rates map[string]decimal.Decimal) *StaticRateProvider {
	if rates == nil {
		rates = make(map[string]decimal.Decimal)
	}
	return &StaticRateProvider{rates: rates}
}

// SetRate registers or replaces the rate for a currency pair.
func (p *StaticRateProvider) SetRate(from, to string, rate decimal.Decimal) {
	p.rates[from+"/"+to] = rate
}

// GetRate implements FxRateProvider.
func (p *StaticRateProvider) GetRate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	rate, ok := p.rates[from+"/"+to]
	if !ok {
		return decimal.Zero, errors.CurrencyError(errors.CodeRateUnavailable, from+"/"+to, nil)
	}
	return rate, nil
}

// Converter rewrites candidate money fields into the wallet currency.
type Converter struct {
	provider FxRateProvider
	logger   logger.Logger
}

// New creates a Converter. The provider may be nil, in which case every
// group without a manual rate uses the fallback rate.
func New(provider FxRateProvider, log logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{
		provider: provider,
		logger:   log.WithComponent("converter"),
	}
}

// resolvedRate is the rate chosen for one currency group.
type resolvedRate struct {
	rate   decimal.Decimal
	source models.RateSource
	date   time.Time
}

// Convert rewrites each candidate's Amount and Currency into the wallet
// currency and returns one CurrencyConversion summary per source currency
// that differed from it. Candidates already in the wallet currency are
// restored to their original amounts and produce no summary entry.
//
// Rate resolution per group: manualRates (keyed by source currency) wins,
// then the provider, then a fallback rate of 1. A manual rate that is zero
// or negative fails the whole call before any candidate is touched.
func (c *Converter) Convert(ctx context.Context, candidates []*models.CandidateTransaction, walletCurrency string, manualRates map[string]decimal.Decimal) ([]models.CurrencyConversion, error) {
	for currency, rate := range manualRates {
		if rate.Sign() <= 0 {
			return nil, errors.CurrencyError(errors.CodeInvalidRate, currency, nil).
				WithContext("rate", rate.String())
		}
	}

	// Group by source currency. Conversion reads the original fields so
	// already-converted candidates regroup under their true currency.
	groups := make(map[string][]*models.CandidateTransaction)
	for _, candidate := range candidates {
		from := candidate.OriginalCurrency
		if from == "" {
			from = candidate.Currency
		}
		if from == walletCurrency {
			candidate.Amount = candidate.OriginalAmount
			candidate.Currency = walletCurrency
			continue
		}
		groups[from] = append(groups[from], candidate)
	}

	conversions := make([]models.CurrencyConversion, 0, len(groups))
	for from, group := range groups {
		resolved := c.resolveRate(ctx, from, walletCurrency, group, manualRates)

		conversion := models.CurrencyConversion{
			FromCurrency:     from,
			ToCurrency:       walletCurrency,
			Rate:             resolved.rate.String(),
			RateSource:       resolved.source,
			RateDate:         resolved.date,
			TransactionCount: len(group),
		}

		for _, candidate := range group {
			conversion.TotalOriginal += candidate.OriginalAmount
			candidate.Amount = models.ConvertAmount(candidate.OriginalAmount, resolved.rate)
			candidate.Currency = walletCurrency
			conversion.TotalConverted += candidate.Amount
		}

		c.logger.WithFields(logger.Fields{
			"from":         from,
			"to":           walletCurrency,
			"rate":         conversion.Rate,
			"rate_source":  conversion.RateSource,
			"transactions": conversion.TransactionCount,
		}).Debug("Converted currency group")

		conversions = append(conversions, conversion)
	}

	sort.Slice(conversions, func(i, j int) bool {
		return conversions[i].FromCurrency < conversions[j].FromCurrency
	})

	return conversions, nil
}

func (c *Converter) resolveRate(ctx context.Context, from, to string, group []*models.CandidateTransaction, manualRates map[string]decimal.Decimal) resolvedRate {
	if rate, ok := manualRates[from]; ok {
		return resolvedRate{rate: rate, source: models.RateSourceManual, date: time.Now().UTC()}
	}

	if c.provider != nil {
		// Quote against the most recent statement date in the group.
		quoteDate := group[0].Date
		for _, candidate := range group[1:] {
			if candidate.Date.After(quoteDate) {
				quoteDate = candidate.Date
			}
		}

		rate, err := c.provider.GetRate(ctx, from, to, quoteDate)
		if err == nil && rate.Sign() > 0 {
			return resolvedRate{rate: rate, source: models.RateSourceAuto, date: quoteDate}
		}
		if err != nil {
			c.logger.WithError(err).WithFields(logger.Fields{
				"from": from,
				"to":   to,
			}).Warn("Rate provider unavailable, using fallback rate")
		}
	}

	return resolvedRate{rate: decimal.NewFromInt(1), source: models.RateSourceFallback, date: time.Now().UTC()}
}
