package matcher

import (
	"strings"
	"unicode"
)

// normalizeDescription lowercases a statement description, strips
// punctuation, and collapses whitespace so token comparison survives the
// formatting noise banks add (e.g. "GROCERY*STORE-0042").
func normalizeDescription(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Fields(b.String())
}

// descriptionSimilarity returns the token overlap between two descriptions
// as a 0.0-1.0 score (Jaccard over normalized tokens). Two empty
// descriptions count as identical.
func descriptionSimilarity(a, b string) float64 {
	tokensA := normalizeDescription(a)
	tokensB := normalizeDescription(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = true
	}

	setB := make(map[string]bool, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = true
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}
