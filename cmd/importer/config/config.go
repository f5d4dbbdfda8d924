// Package config builds component configurations from CLI inputs.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-ledger-import/internal/converter"
	"go-ledger-import/internal/engine"
	"go-ledger-import/internal/matcher"
	"go-ledger-import/internal/normalizer"
	"go-ledger-import/internal/reporter"
)

// CreateNormalizerConfig creates a normalizer configuration for a statement
func CreateNormalizerConfig(currency, dateFormat string) *normalizer.Config {
	config := normalizer.DefaultConfig()

	if currency != "" {
		config.Currency = strings.ToUpper(currency)
	}
	if dateFormat != "" {
		config.DateFormat = dateFormat
	}

	return config
}

// CreateMatcherConfig creates a matcher configuration with CLI overrides
func CreateMatcherConfig(dateWindow int, minConfidence int) (*matcher.Config, error) {
	config := matcher.DefaultConfig()

	if dateWindow >= 0 {
		config.DateWindowDays = dateWindow
	}
	if minConfidence > 0 {
		config.MinConfidence = minConfidence
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}
	return config, nil
}

// CreateEngineConfig creates an engine configuration
func CreateEngineConfig(matcherConfig *matcher.Config, undoWindow time.Duration) *engine.Config {
	config := engine.DefaultConfig()
	config.Matcher = matcherConfig
	if undoWindow > 0 {
		config.UndoWindow = undoWindow
	}
	return config
}

// CreateReportConfig creates a report configuration for the output format
func CreateReportConfig(outputFormat string, useColors bool) (*reporter.Config, error) {
	config := reporter.DefaultConfig()
	config.Format = reporter.OutputFormat(outputFormat)
	config.UseColors = useColors

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return config, nil
}

// ParseManualRates parses --rate flags of the form CUR=VALUE into a rate
// table keyed by source currency.
func ParseManualRates(rates []string) (map[string]decimal.Decimal, error) {
	if len(rates) == 0 {
		return nil, nil
	}

	parsed := make(map[string]decimal.Decimal, len(rates))
	for _, rate := range rates {
		parts := strings.SplitN(rate, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid rate '%s', expected CUR=VALUE", rate)
		}

		currency := strings.ToUpper(strings.TrimSpace(parts[0]))
		if currency == "" {
			return nil, fmt.Errorf("invalid rate '%s', currency cannot be empty", rate)
		}

		value, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid rate value '%s': %w", parts[1], err)
		}
		parsed[currency] = value
	}

	return parsed, nil
}

// CreateRateProvider builds a static provider from config-file rate pairs
// of the form "FROM/TO": value. Returns nil when no rates are configured,
// leaving conversion to manual rates and the fallback.
func CreateRateProvider(pairs map[string]string) (converter.FxRateProvider, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	rates := make(map[string]decimal.Decimal, len(pairs))
	for pair, value := range pairs {
		if !strings.Contains(pair, "/") {
			return nil, fmt.Errorf("invalid rate pair '%s', expected FROM/TO", pair)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid rate value for '%s': %w", pair, err)
		}
		rates[strings.ToUpper(pair)] = rate
	}

	return converter.NewStaticRateProvider(rates), nil
}
