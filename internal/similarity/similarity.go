// Package similarity decides whether two chapter titles name the same chapter.
//
// Titles are compared after normalization (lower-cased, everything except
// letters and digits removed) using a Levenshtein ratio. The threshold is
// close to 1 so that only formatting differences are tolerated: case,
// whitespace and punctuation match, paraphrases and different numbers do not.
package similarity

import (
	"strings"
	"unicode"
)

// Threshold is the minimum ratio at which two titles are considered equal.
const Threshold = 0.98

// IsMatch reports whether candidate and target refer to the same chapter.
func IsMatch(candidate, target string) bool {
	return Ratio(candidate, target) >= Threshold
}

// Ratio returns 1 - distance/maxLen for the normalized forms of a and b.
// Two strings that both normalize to empty have ratio 1.
func Ratio(a, b string) float64 {
	na := []rune(Normalize(a))
	nb := []rune(Normalize(b))

	longest := max(len(na), len(nb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(distance(na, nb))/float64(longest)
}

// Normalize lower-cases s and drops every rune that is not a letter or digit.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Distance returns the Levenshtein edit distance between a and b in runes.
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

// distance uses the two-row formulation; memory is O(len(b)).
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Best returns the entry of candidates with the highest ratio against title
// and that ratio. ok is false when candidates is empty.
func Best(title string, candidates []string) (best string, ratio float64, ok bool) {
	for _, c := range candidates {
		r := Ratio(title, c)
		if !ok || r > ratio {
			best, ratio, ok = c, r, true
		}
	}
	return best, ratio, ok
}
