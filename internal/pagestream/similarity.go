// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestream

// Ratio returns the normalized similarity of a and b in [0, 1], computed from
// the insertion/deletion edit distance over runes: (|a|+|b|-d)/(|a|+|b|).
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return float64(total-indelDistance(ra, rb)) / float64(total)
}

// indelDistance is the Levenshtein distance with substitutions costing two,
// which equals the number of insertions and deletions needed.
func indelDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
