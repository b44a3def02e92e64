package relevance

import "github.com/agnivade/levenshtein"

// SimilarityRatio is 1 - distance/longer length, both counted in runes;
// identical strings score 1.
func SimilarityRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
