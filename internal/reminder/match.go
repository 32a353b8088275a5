package reminder

import (
	"strings"
	"unicode"
)

// Match scores used by bestMatch. Word overlap scores fall in (0,1].
const (
	scoreExact    = 3.0
	scoreContains = 2.0
)

// matchScore rates how well phrase designates message. Zero means no match.
func matchScore(phrase, message string) float64 {
	p := strings.ToLower(strings.TrimSpace(phrase))
	m := strings.ToLower(strings.TrimSpace(message))
	if p == "" || m == "" {
		return 0
	}
	if p == m {
		return scoreExact
	}
	if strings.Contains(m, p) || strings.Contains(p, m) {
		return scoreContains
	}
	return jaccard(words(p), words(m))
}

// bestMatch returns the index of the reminder whose message best matches
// phrase, or -1. Ties keep the earliest entry, so callers pass reminders
// ordered by creation time.
func bestMatch(phrase string, reminders []Reminder) int {
	best, bestScore := -1, 0.0
	for i, r := range reminders {
		if s := matchScore(phrase, r.Message); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

func words(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
