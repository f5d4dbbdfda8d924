// Package matcher detects probable duplicates between candidate
// transactions and the existing ledger rows of a wallet.
//
// Detection is a three-stage process:
//  1. Candidate selection from a date-indexed snapshot of the wallet ledger
//  2. Scoring on exact amount, date proximity and description similarity
//  3. Confidence-based filtering and per-candidate ranking
//
// Example usage:
//
//	m := matcher.New(matcher.DefaultConfig())
//	matches := m.DetectDuplicates(candidates, ledgerRows)
package matcher

import (
	"fmt"
)

// Config holds configuration parameters for duplicate detection.
// Use the factory functions for common scenarios:
//   - DefaultConfig(): balanced approach for most statements
//   - StrictConfig(): tight window and threshold for noisy ledgers
//   - RelaxedConfig(): wide window for exploratory review
type Config struct {
	// DateWindowDays bounds how far apart a candidate and an existing
	// transaction may be dated and still be compared
	DateWindowDays int `json:"date_window_days"`

	// MinConfidence is the 0-100 threshold below which matches are not emitted
	MinConfidence int `json:"min_confidence"`

	// MaxMatchesPerCandidate caps how many matches one candidate may carry
	MaxMatchesPerCandidate int `json:"max_matches_per_candidate"`

	// Weights are the relative importance of each scoring criterion
	Weights Weights `json:"weights"`
}

// Weights defines the relative importance of the scoring criteria.
// They should sum to approximately 1.0.
type Weights struct {
	AmountWeight      float64 `json:"amount_weight"`
	DateWeight        float64 `json:"date_weight"`
	DescriptionWeight float64 `json:"description_weight"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DateWindowDays:         3,
		MinConfidence:          60,
		MaxMatchesPerCandidate: 5,
		Weights: Weights{
			AmountWeight:      0.5,
			DateWeight:        0.25,
			DescriptionWeight: 0.25,
		},
	}
}

// StrictConfig returns a configuration for strict duplicate detection
func StrictConfig() *Config {
	return &Config{
		DateWindowDays:         1,
		MinConfidence:          85,
		MaxMatchesPerCandidate: 3,
		Weights: Weights{
			AmountWeight:      0.6,
			DateWeight:        0.25,
			DescriptionWeight: 0.15,
		},
	}
}

// RelaxedConfig returns a configuration for relaxed duplicate detection
func RelaxedConfig() *Config {
	return &Config{
		DateWindowDays:         7,
		MinConfidence:          45,
		MaxMatchesPerCandidate: 10,
		Weights: Weights{
			AmountWeight:      0.4,
			DateWeight:        0.3,
			DescriptionWeight: 0.3,
		},
	}
}

// Validate checks if the matcher configuration is valid
func (c *Config) Validate() error {
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window days cannot be negative: %d", c.DateWindowDays)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("minimum confidence must be between 0 and 100: %d", c.MinConfidence)
	}

	if c.MaxMatchesPerCandidate <= 0 {
		return fmt.Errorf("max matches per candidate must be positive: %d", c.MaxMatchesPerCandidate)
	}

	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Validate checks if the scoring weights are valid
func (w *Weights) Validate() error {
	if w.AmountWeight < 0.0 || w.AmountWeight > 1.0 {
		return fmt.Errorf("amount weight must be between 0.0 and 1.0: %f", w.AmountWeight)
	}

	if w.DateWeight < 0.0 || w.DateWeight > 1.0 {
		return fmt.Errorf("date weight must be between 0.0 and 1.0: %f", w.DateWeight)
	}

	if w.DescriptionWeight < 0.0 || w.DescriptionWeight > 1.0 {
		return fmt.Errorf("description weight must be between 0.0 and 1.0: %f", w.DescriptionWeight)
	}

	total := w.AmountWeight + w.DateWeight + w.DescriptionWeight
	if total < 0.9 || total > 1.1 {
		return fmt.Errorf("weights should sum to approximately 1.0, got %f", total)
	}

	return nil
}

// Clone creates a deep copy of the matcher configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("MatcherConfig{Window: %d days, MinConfidence: %d, MaxMatches: %d}",
		c.DateWindowDays, c.MinConfidence, c.MaxMatchesPerCandidate)
}
