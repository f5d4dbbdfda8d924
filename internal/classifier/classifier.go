// Package classifier assigns every candidate to exactly one review bucket.
//
// Classification is a pure function of the current batch state and is
// recomputed in full after every edit; there is no incremental update path.
package classifier

import (
	"go-ledger-import/internal/models"
	"go-ledger-import/internal/strategy"
)

// MinAutoConfidence is the category confidence below which a candidate
// still needs manual category review.
const MinAutoConfidence = 80

// Classification holds the four review buckets. Every candidate appears
// in exactly one of them.
type Classification struct {
	Errors              []*models.CandidateTransaction
	Duplicates          []*models.CandidateTransaction
	NeedsCategoryReview []*models.CandidateTransaction
	ReadyToImport       []*models.CandidateTransaction
}

// Counts summarizes a classification for reporting.
type Counts struct {
	Errors              int `json:"errors"`
	Duplicates          int `json:"duplicates"`
	NeedsCategoryReview int `json:"needsCategoryReview"`
	ReadyToImport       int `json:"readyToImport"`
	Total               int `json:"total"`
}

// Counts returns the per-bucket sizes.
func (c *Classification) Counts() Counts {
	return Counts{
		Errors:              len(c.Errors),
		Duplicates:          len(c.Duplicates),
		NeedsCategoryReview: len(c.NeedsCategoryReview),
		ReadyToImport:       len(c.ReadyToImport),
		Total:               len(c.Errors) + len(c.Duplicates) + len(c.NeedsCategoryReview) + len(c.ReadyToImport),
	}
}

// Classify buckets each candidate by strict priority: validity first,
// then unresolved duplicate status, then category status. Duplicates only
// block a row when the active strategy actually requires a decision
// (ReviewEach) or an exclusion (SkipAll); AutoMerge and KeepAll resolve
// matches implicitly, so their rows fall through to category checks.
func Classify(candidates []*models.CandidateTransaction, matches []models.DuplicateMatch, strat strategy.Strategy, recorded []models.DuplicateAction) *Classification {
	recordedRows := make(map[int]bool, len(recorded))
	for _, action := range recorded {
		recordedRows[action.CandidateRowNumber] = true
	}

	matchedRows := make(map[int]bool, len(matches))
	for _, match := range matches {
		matchedRows[match.CandidateRowNumber] = true
	}

	blocking := strat == strategy.ReviewEach || strat == strategy.SkipAll

	result := &Classification{}
	for _, candidate := range candidates {
		switch {
		case !candidate.IsValid():
			result.Errors = append(result.Errors, candidate)
		case blocking && matchedRows[candidate.RowNumber] && !recordedRows[candidate.RowNumber]:
			result.Duplicates = append(result.Duplicates, candidate)
		case candidate.CategoryID == 0 || candidate.CategoryConfidence < MinAutoConfidence:
			result.NeedsCategoryReview = append(result.NeedsCategoryReview, candidate)
		default:
			result.ReadyToImport = append(result.ReadyToImport, candidate)
		}
	}

	return result
}
