// Package similarity decides whether two node titles name the same concept.
// The heuristics are deliberately conservative: creating a spurious sibling
// is recoverable, silently merging two distinct concepts is not. The only
// generous cases are containment (abbreviation expansions like
// "Quantum Electrodynamics (QED)") and exact matches after normalization.
package similarity

import (
	"math"
	"regexp"
	"strings"

	"github.com/starford/othala/internal/taxonomy"
)

var punctRe = regexp.MustCompile(`[^\p{L}\p{N} ]`)

// Matcher implements the deterministic title-equivalence heuristics.
// The zero value is ready to use.
type Matcher struct{}

// IsMatch reports whether candidate names the same concept as existing.
func (Matcher) IsMatch(existing, candidate string) bool {
	a := normalizeTitle(existing)
	b := normalizeTitle(candidate)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	// Containment either direction covers abbreviations and qualified forms.
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	// Single-word titles get no partial credit.
	if len(wordsA) == 1 || len(wordsB) == 1 {
		return false
	}

	shorter := len(wordsA)
	if len(wordsB) < shorter {
		shorter = len(wordsB)
	}
	need := int(math.Ceil(float64(shorter) * 0.75))
	if need < 2 {
		need = 2
	}

	set := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		set[w] = struct{}{}
	}
	common := 0
	for _, w := range wordsB {
		if _, ok := set[w]; ok {
			common++
			delete(set, w)
		}
	}
	return common >= need
}

// normalizeTitle lowercases and strips a title down to comparable words:
// "&" → "and", punctuation removed, whitespace collapsed, plural suffixes
// collapsed per word.
func normalizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, "&", " and ")
	s = punctRe.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = taxonomy.Singularize(w)
	}
	return strings.Join(words, " ")
}
