package drip

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Normalize lower-cases text and collapses whitespace runs so similarity
// scoring ignores formatting noise.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SimilarityPct scores two normalized strings 0..100 using Levenshtein
// distance over the longer length. This is a character heuristic, not a
// paraphrase detector; the acceptance threshold is configured policy.
func SimilarityPct(a, b string) int {
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 100 - (dist * 100 / longest)
}

// isNearDuplicate reports whether candidate matches any existing comment
// exactly (after normalization) or scores at or above the threshold.
func isNearDuplicate(candidate string, existing []string, thresholdPct int) bool {
	normalized := Normalize(candidate)
	for _, e := range existing {
		other := Normalize(e)
		if normalized == other {
			return true
		}
		if SimilarityPct(normalized, other) >= thresholdPct {
			return true
		}
	}
	return false
}
