package builtin

import "strings"

// levenshteinDistance is the edit distance between two strings, compared
// case-insensitively on runes.
func levenshteinDistance(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 0
	}
	aRunes := []rune(a)
	bRunes := []rune(b)
	if len(aRunes) == 0 {
		return len(bRunes)
	}
	if len(bRunes) == 0 {
		return len(aRunes)
	}

	dist := make([][]int, len(aRunes)+1)
	for i := range dist {
		dist[i] = make([]int, len(bRunes)+1)
		dist[i][0] = i
	}
	for j := 0; j <= len(bRunes); j++ {
		dist[0][j] = j
	}

	for i := 1; i <= len(aRunes); i++ {
		for j := 1; j <= len(bRunes); j++ {
			cost := 0
			if aRunes[i-1] != bRunes[j-1] {
				cost = 1
			}
			dist[i][j] = min(
				dist[i-1][j]+1,      // deletion
				dist[i][j-1]+1,      // insertion
				dist[i-1][j-1]+cost, // substitution
			)
		}
	}
	return dist[len(aRunes)][len(bRunes)]
}

// fuzzyTokenMatch reports whether query is within maxDistance edits of
// the whole target or of any whitespace-separated token of it.
func fuzzyTokenMatch(query, target string, maxDistance int) bool {
	if levenshteinDistance(query, target) <= maxDistance {
		return true
	}
	for _, token := range strings.Fields(target) {
		if levenshteinDistance(query, token) <= maxDistance {
			return true
		}
	}
	return false
}
