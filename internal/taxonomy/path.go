// Package taxonomy normalizes classification labels and resolves
// Domain → Area → Topic → Concept paths to vault storage locations.
// Everything in this package is pure string manipulation: no I/O.
package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// MaxDepth is the deepest supported hierarchy: Domain, Area, Topic, Concept.
const MaxDepth = 4

var (
	ampRe        = regexp.MustCompile(`\s*&\s*`)
	disallowedRe = regexp.MustCompile(`[^\p{L}\p{N}_ \-]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	fileUnsafeRe = regexp.MustCompile(`[\\/:*?"<>|#^\[\]]`)
)

// irregularSingulars maps plural labels whose singular form the suffix rules
// cannot derive.
var irregularSingulars = map[string]string{
	"people":    "person",
	"children":  "child",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"data":      "data",
	"media":     "media",
}

// Normalize canonicalizes a taxonomy label: trim, "&" → "and", strip
// characters outside word/space/hyphen, collapse whitespace, collapse known
// plural forms. The transform is idempotent: Normalize(Normalize(x)) ==
// Normalize(x). Case is preserved, labels double as display titles.
func Normalize(label string) string {
	s := strings.TrimSpace(label)
	s = ampRe.ReplaceAllString(s, " and ")
	s = disallowedRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = Singularize(w)
	}
	return strings.Join(words, " ")
}

// Singularize collapses a plural word form to its singular. Words ending in
// "ics" (Physics, Mathematics, Economics) are kept as-is; so are words too
// short to carry a plural suffix. Case of the retained prefix is preserved.
func Singularize(word string) string {
	if len(word) < 4 {
		return word
	}
	lower := strings.ToLower(word)
	if s, ok := irregularSingulars[lower]; ok {
		if isTitleCase(word) {
			return strings.ToUpper(s[:1]) + s[1:]
		}
		return s
	}
	switch {
	case strings.HasSuffix(lower, "ics"),
		strings.HasSuffix(lower, "ss"),
		strings.HasSuffix(lower, "us"),
		strings.HasSuffix(lower, "is"):
		return word
	case strings.HasSuffix(lower, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "s"):
		return word[:len(word)-1]
	}
	return word
}

func isTitleCase(w string) bool {
	return w != "" && w[0] >= 'A' && w[0] <= 'Z'
}

// SanitizeTitle turns a normalized label into a name safe for use as a vault
// file or directory component. Spaces are kept, vault names are meant to be
// human-readable.
func SanitizeTitle(title string) string {
	s := fileUnsafeRe.ReplaceAllString(title, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .")
	return s
}

// LevelInfo describes one materialized level of a resolved taxonomy path.
type LevelInfo struct {
	Level       int    // 1-based depth
	Title       string // normalized display title
	Directory   string // directory holding this level's node document
	StoragePath string // canonical node document path, relative to vault root
}

// ChildDir returns the directory in which this level's children (deeper node
// documents and attached leaf notes) live.
func (l LevelInfo) ChildDir() string {
	return strings.TrimSuffix(l.StoragePath, ".md")
}

// Resolve computes the LevelInfo chain for every present level of path,
// rooted at rootDir. Level 1 and 2 are mandatory; resolution stops at the
// first empty label. Returns apperr.ErrInvalidHierarchy when fewer than two
// levels are usable.
func Resolve(path models.TaxonomyPath, rootDir string) ([]LevelInfo, error) {
	labels := path.Levels()

	normalized := make([]string, 0, len(labels))
	for _, label := range labels {
		n := Normalize(label)
		if n == "" {
			break
		}
		normalized = append(normalized, n)
	}
	if len(normalized) < 2 {
		return nil, fmt.Errorf("taxonomy: need domain and area, got %d level(s): %w",
			len(normalized), apperr.ErrInvalidHierarchy)
	}

	out := make([]LevelInfo, 0, len(normalized))
	dir := strings.Trim(rootDir, "/")
	for i, title := range normalized {
		name := SanitizeTitle(title)
		out = append(out, LevelInfo{
			Level:       i + 1,
			Title:       title,
			Directory:   dir,
			StoragePath: join(dir, name+".md"),
		})
		dir = join(dir, name)
	}
	return out, nil
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
