package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/logger"
)

// Matcher scores candidate transactions against a wallet's existing ledger
// rows and emits confidence-scored duplicate matches.
type Matcher struct {
	config *Config
	logger logger.Logger
}

// New creates a matcher with the specified configuration
func New(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}

	return &Matcher{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// DetectDuplicates compares every valid candidate against the ledger
// snapshot and returns all matches at or above the confidence threshold.
// At most one match is emitted per (candidate, existing transaction) pair;
// per-candidate matches are sorted by confidence and capped. Ties between
// existing transactions are left for the caller to review.
func (m *Matcher) DetectDuplicates(candidates []*models.CandidateTransaction, ledger []*models.Transaction) []models.DuplicateMatch {
	index := NewLedgerIndex(ledger)

	var matches []models.DuplicateMatch
	for _, candidate := range candidates {
		if !candidate.IsValid() {
			continue
		}
		matches = append(matches, m.matchCandidate(candidate, index)...)
	}

	m.logger.WithFields(logger.Fields{
		"candidates":  len(candidates),
		"ledger_rows": len(ledger),
		"matches":     len(matches),
	}).Debug("Duplicate detection completed")

	return matches
}

// matchCandidate scores one candidate against every ledger row in the date
// window around it.
func (m *Matcher) matchCandidate(candidate *models.CandidateTransaction, index *LedgerIndex) []models.DuplicateMatch {
	var results []models.DuplicateMatch
	seen := make(map[int64]bool)

	for _, existing := range index.GetCandidates(candidate, m.config) {
		if seen[existing.ID] {
			continue
		}
		seen[existing.ID] = true

		confidence, reason := m.score(candidate, existing)
		if confidence < m.config.MinConfidence {
			continue
		}

		results = append(results, models.DuplicateMatch{
			CandidateRowNumber:    candidate.RowNumber,
			ExistingTransactionID: existing.ID,
			Confidence:            confidence,
			MatchReason:           reason,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	if len(results) > m.config.MaxMatchesPerCandidate {
		results = results[:m.config.MaxMatchesPerCandidate]
	}

	return results
}

// score computes the 0-100 confidence that a candidate duplicates an
// existing transaction, and the human-readable basis for it.
func (m *Matcher) score(candidate *models.CandidateTransaction, existing *models.Transaction) (int, string) {
	amountScore := m.amountScore(candidate, existing)
	dateScore := m.dateScore(candidate, existing)
	descScore := descriptionSimilarity(candidate.Description, existing.Description)

	weights := m.config.Weights
	weighted := (amountScore * weights.AmountWeight) +
		(dateScore * weights.DateWeight) +
		(descScore * weights.DescriptionWeight)

	confidence := models.ClampConfidence(int(math.Round(weighted * 100)))
	reason := m.buildReason(amountScore, dateScore, descScore)

	return confidence, reason
}

// amountScore is 1.0 only for an exact fixed-point amount match in the same
// direction. Amounts are integers, so there is no tolerance band.
func (m *Matcher) amountScore(candidate *models.CandidateTransaction, existing *models.Transaction) float64 {
	if candidate.Type != existing.Type {
		return 0.0
	}
	if candidate.Amount == existing.Amount {
		return 1.0
	}
	return 0.0
}

// dateScore decays linearly from 1.0 (same day) to 0.0 at the window edge
func (m *Matcher) dateScore(candidate *models.CandidateTransaction, existing *models.Transaction) float64 {
	diff := candidate.Date.Sub(existing.Date)
	if diff < 0 {
		diff = -diff
	}

	days := diff.Hours() / 24
	window := float64(m.config.DateWindowDays)
	if window == 0 {
		if days < 1 {
			return 1.0
		}
		return 0.0
	}

	if days > window {
		return 0.0
	}

	return math.Max(0.0, 1.0-days/window)
}

// buildReason generates the human-readable basis for a match
func (m *Matcher) buildReason(amountScore, dateScore, descScore float64) string {
	var parts []string

	if amountScore == 1.0 {
		parts = append(parts, "exact amount")
	}

	if dateScore == 1.0 {
		parts = append(parts, "same date")
	} else if dateScore > 0.0 {
		parts = append(parts, "date within window")
	}

	if descScore >= 0.8 {
		parts = append(parts, "matching description")
	} else if descScore >= 0.4 {
		parts = append(parts, "similar description")
	}

	if len(parts) == 0 {
		return "weak similarity"
	}

	return strings.Join(parts, ", ")
}

// MatchesByRow groups matches by candidate row number
func MatchesByRow(matches []models.DuplicateMatch) map[int][]models.DuplicateMatch {
	byRow := make(map[int][]models.DuplicateMatch)
	for _, match := range matches {
		byRow[match.CandidateRowNumber] = append(byRow[match.CandidateRowNumber], match)
	}
	return byRow
}

// Config returns a copy of the matcher configuration
func (m *Matcher) Config() *Config {
	return m.config.Clone()
}

// UpdateConfig replaces the matcher configuration after validating it
func (m *Matcher) UpdateConfig(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m.config = config.Clone()
	return nil
}
