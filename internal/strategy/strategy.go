// Package strategy resolves duplicate matches into per-row actions.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"go-ledger-import/internal/models"
	"go-ledger-import/pkg/errors"
)

// Strategy selects how unresolved duplicate matches are handled at commit.
type Strategy int

const (
	// SkipAll excludes every unresolved duplicate from the import
	SkipAll Strategy = iota
	// AutoMerge merges every unresolved duplicate regardless of confidence
	AutoMerge
	// ReviewEach requires an explicit recorded action for every match
	ReviewEach
	// KeepAll imports every unresolved duplicate as a new row
	KeepAll
)

// String returns the wire representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case SkipAll:
		return "skip_all"
	case AutoMerge:
		return "auto_merge"
	case ReviewEach:
		return "review_each"
	case KeepAll:
		return "keep_all"
	default:
		return "unknown"
	}
}

// IsValid checks if the strategy is one of the closed set.
func (s Strategy) IsValid() bool {
	switch s {
	case SkipAll, AutoMerge, ReviewEach, KeepAll:
		return true
	default:
		return false
	}
}

// Parse parses a strategy from its wire representation.
func Parse(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip_all":
		return SkipAll, nil
	case "auto_merge":
		return AutoMerge, nil
	case "review_each":
		return ReviewEach, nil
	case "keep_all":
		return KeepAll, nil
	default:
		return 0, fmt.Errorf("invalid strategy '%s'", s)
	}
}

// defaultAction returns the action the strategy assigns to an unresolved
// match. ReviewEach has no default; it never auto-resolves.
func (s Strategy) defaultAction() models.ActionType {
	switch s {
	case SkipAll:
		return models.ActionSkip
	case AutoMerge:
		return models.ActionMerge
	case KeepAll:
		return models.ActionKeepBoth
	default:
		return models.ActionSkip
	}
}

// Resolve produces the final action set for a batch of duplicate matches.
// Recorded manual actions always win, so switching strategy after partial
// review only changes how the remaining unresolved matches are treated.
// Under ReviewEach every matched candidate row must carry a recorded
// action or the call fails with an incomplete-review error.
func Resolve(s Strategy, matches []models.DuplicateMatch, recorded []models.DuplicateAction) ([]models.DuplicateAction, error) {
	if !s.IsValid() {
		return nil, errors.ValidationError(errors.CodeInvalidConfig, "strategy", int(s), nil)
	}

	for _, action := range recorded {
		if !action.Action.IsValid() {
			return nil, errors.ReviewError(errors.CodeUnknownAction, 0, int(action.Action)).
				WithContext("candidateRow", action.CandidateRowNumber)
		}
	}

	// Index recorded actions by candidate row. Recording an action for a
	// row resolves all of that row's matches at once.
	recordedByRow := make(map[int]models.DuplicateAction, len(recorded))
	for _, action := range recorded {
		recordedByRow[action.CandidateRowNumber] = action
	}

	// One action per matched candidate row.
	matchedRows := make(map[int]models.DuplicateMatch)
	for _, match := range matches {
		best, seen := matchedRows[match.CandidateRowNumber]
		if !seen || match.Confidence > best.Confidence {
			matchedRows[match.CandidateRowNumber] = match
		}
	}

	if s == ReviewEach {
		unresolved := 0
		for row := range matchedRows {
			if _, ok := recordedByRow[row]; !ok {
				unresolved++
			}
		}
		if unresolved > 0 {
			return nil, errors.ReviewError(errors.CodeIncompleteReview,
				len(matchedRows), len(matchedRows)-unresolved)
		}
	}

	resolved := make([]models.DuplicateAction, 0, len(matchedRows))
	for row, match := range matchedRows {
		if action, ok := recordedByRow[row]; ok {
			resolved = append(resolved, action)
			continue
		}
		resolved = append(resolved, models.DuplicateAction{
			CandidateRowNumber:    row,
			ExistingTransactionID: match.ExistingTransactionID,
			Action:                s.defaultAction(),
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].CandidateRowNumber < resolved[j].CandidateRowNumber
	})

	return resolved, nil
}

// Unresolved reports the matched candidate rows that have no recorded
// action yet. Callers use it to drive the review UI under ReviewEach.
func Unresolved(matches []models.DuplicateMatch, recorded []models.DuplicateAction) []int {
	recordedRows := make(map[int]bool, len(recorded))
	for _, action := range recorded {
		recordedRows[action.CandidateRowNumber] = true
	}

	seen := make(map[int]bool)
	var rows []int
	for _, match := range matches {
		if recordedRows[match.CandidateRowNumber] || seen[match.CandidateRowNumber] {
			continue
		}
		seen[match.CandidateRowNumber] = true
		rows = append(rows, match.CandidateRowNumber)
	}

	sort.Ints(rows)
	return rows
}
