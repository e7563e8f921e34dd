// Package intelligence derives the aggregate summary block of a node from
// the leaf notes linked under it. Everything synthesized here is computed
// from the actual note contents; when nothing resolves, the analysis is
// explicitly empty and no placeholder text is ever written.
package intelligence

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Analysis is the derived summary of a node's linked leaves. The zero value
// means "nothing to say".
type Analysis struct {
	NoteCount     int      `json:"note_count"`
	Overview      string   `json:"overview,omitempty"`
	KeyThemes     []string `json:"key_themes,omitempty"`
	Relationships string   `json:"relationships,omitempty"`
	Progress      string   `json:"progress,omitempty"`
	KnowledgeGaps []string `json:"knowledge_gaps,omitempty"`
	CrossDomain   []string `json:"cross_domain,omitempty"`
	Insights      []string `json:"insights,omitempty"`
}

// Empty reports whether applying this analysis would add nothing. Mirrors
// the write guard in Apply.
func (a Analysis) Empty() bool {
	return len(a.KeyThemes) == 0 && len(a.Insights) == 0
}

// crossDomainVocabulary is the fixed set of domain mentions scanned for in
// note bodies.
var crossDomainVocabulary = []string{
	"mathematics",
	"physics",
	"chemistry",
	"biology",
	"computer science",
	"engineering",
	"economics",
	"psychology",
	"philosophy",
	"statistics",
	"machine learning",
	"linguistics",
	"history",
}

// practicalMarkers indicate hands-on content when found in a note body.
var practicalMarkers = []string{"example", "practical", "practice", "tutorial", "exercise", "walkthrough"}

// Synthesizer reads a node's linked leaves and rewrites the node's managed
// intelligence block.
type Synthesizer struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewSynthesizer creates a synthesizer over the given store.
func NewSynthesizer(store storage.Provider, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{store: store, logger: logger, now: time.Now}
}

// leaf is one resolved note with its parsed metadata.
type leaf struct {
	meta models.LeafMeta
	body string
}

// Synthesize computes the Analysis for the node at nodeAddr. Linked leaves
// that cannot be resolved to a document are skipped; zero resolved leaves
// yield an all-empty Analysis. Returns apperr.ErrNotFound when the node
// itself is missing.
func (s *Synthesizer) Synthesize(nodeAddr string) (Analysis, error) {
	data, err := s.store.Read(nodeAddr)
	if err != nil {
		return Analysis{}, fmt.Errorf("intelligence: node %s: %w", nodeAddr, apperr.ErrNotFound)
	}
	doc := mocdoc.ParseNode(data)

	leaves := s.resolveLeaves(nodeAddr, doc.Wikilinks(mocdoc.HeadingNotes))
	if len(leaves) == 0 {
		return Analysis{}, nil
	}
	return s.analyze(doc, leaves), nil
}

// resolveLeaves maps Notes wikilinks to actual leaf documents. Each stem is
// tried as an exact name, an exact name with the .md extension, and finally
// a substring of any candidate filename. Candidates come from the node's
// child directory and its own directory.
func (s *Synthesizer) resolveLeaves(nodeAddr string, stems []string) []leaf {
	candidates := s.candidateFiles(nodeAddr)

	var out []leaf
	for _, stem := range stems {
		path, ok := resolveStem(stem, candidates)
		if !ok {
			s.logger.Debug("intelligence: linked leaf not found",
				slog.String("node", nodeAddr), slog.String("stem", stem))
			continue
		}
		data, err := s.store.Read(path)
		if err != nil {
			continue
		}
		// Node documents linked from Notes are not leaves; skip them.
		if mocdoc.ParseNode(data).IsNode() {
			continue
		}
		meta, body := mocdoc.ParseLeaf(data)
		if meta.Title == "" {
			meta.Title = mocdoc.Stem(path)
		}
		out = append(out, leaf{meta: meta, body: body})
	}
	return out
}

// candidateFiles lists markdown files in the node's child directory and its
// own directory.
func (s *Synthesizer) candidateFiles(nodeAddr string) []string {
	var out []string
	dirs := []string{strings.TrimSuffix(nodeAddr, ".md"), parentDir(nodeAddr)}
	for _, dir := range dirs {
		entries, err := s.store.ListChildren(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir && strings.HasSuffix(e.Name, ".md") {
				out = append(out, e.Path)
			}
		}
	}
	return out
}

// resolveStem finds the candidate path for a wikilink stem: exact stem
// match, exact filename match, then substring either direction.
func resolveStem(stem string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if mocdoc.Stem(c) == stem {
			return c, true
		}
	}
	withExt := stem + ".md"
	for _, c := range candidates {
		if baseName(c) == withExt {
			return c, true
		}
	}
	lower := strings.ToLower(stem)
	for _, c := range candidates {
		base := strings.ToLower(mocdoc.Stem(c))
		if strings.Contains(base, lower) || strings.Contains(lower, base) {
			return c, true
		}
	}
	return "", false
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parentDir(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// analyze computes every derived field from the resolved leaves.
func (s *Synthesizer) analyze(doc *mocdoc.Doc, leaves []leaf) Analysis {
	a := Analysis{NoteCount: len(leaves)}

	themes := topThemes(leaves, 5)
	a.KeyThemes = themes

	a.Overview = overviewLine(len(leaves), themes)

	beginner, intermediate, advanced := complexityMix(leaves)
	a.Relationships = relationshipLine(beginner, intermediate, advanced)
	a.Progress = progressLine(beginner, intermediate, advanced, len(leaves))
	a.KnowledgeGaps = knowledgeGaps(leaves, beginner, intermediate, advanced)
	a.CrossDomain = crossDomainMentions(doc.Meta.Domain, leaves)
	a.Insights = insights(leaves)

	return a
}

func overviewLine(count int, themes []string) string {
	noun := "notes"
	if count == 1 {
		noun = "note"
	}
	if len(themes) == 0 {
		return fmt.Sprintf("%d %s filed under this topic.", count, noun)
	}
	top := themes
	if len(top) > 3 {
		top = top[:3]
	}
	return fmt.Sprintf("%d %s filed under this topic, centered on %s.", count, noun, joinAnd(top))
}

// topThemes ranks topic mentions across hierarchy tails, related concepts,
// and tags, and returns up to max of them, most frequent first.
func topThemes(leaves []leaf, max int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	for _, l := range leaves {
		tax := l.meta.Taxonomy()
		add(tax.Topic)
		add(tax.Concept)
		for _, rc := range l.meta.LearningContext.RelatedConcepts {
			add(rc)
		}
		for _, tag := range l.meta.Tags {
			add(tag)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

func complexityMix(leaves []leaf) (beginner, intermediate, advanced int) {
	for _, l := range leaves {
		switch strings.ToLower(l.meta.LearningContext.ComplexityLevel) {
		case models.ComplexityBeginner:
			beginner++
		case models.ComplexityIntermediate:
			intermediate++
		case models.ComplexityAdvanced:
			advanced++
		}
	}
	return
}

func relationshipLine(beginner, intermediate, advanced int) string {
	total := beginner + intermediate + advanced
	if total == 0 {
		return "The notes here do not declare complexity levels, so their relationships are flat."
	}
	switch {
	case advanced > beginner+intermediate:
		return "The material here is predominantly advanced; notes assume the foundations are covered elsewhere."
	case beginner > intermediate+advanced:
		return "The material here is mostly introductory; notes build up concepts from first principles."
	case beginner > 0 && advanced > 0:
		return "The notes form a progression from introductory to advanced treatments of the same concepts."
	default:
		return "The notes sit at a similar depth and complement each other laterally."
	}
}

func progressLine(beginner, intermediate, advanced, total int) string {
	declared := beginner + intermediate + advanced
	if declared == 0 {
		return ""
	}
	return fmt.Sprintf("%d beginner, %d intermediate, %d advanced (of %d notes).",
		beginner, intermediate, advanced, total)
}

// knowledgeGaps applies the rule set: missing complexity tiers and a low
// share of hands-on content.
func knowledgeGaps(leaves []leaf, beginner, intermediate, advanced int) []string {
	var gaps []string
	declared := beginner + intermediate + advanced
	if declared > 0 {
		if beginner == 0 {
			gaps = append(gaps, "No beginner-level notes: there is no entry point into this topic yet.")
		}
		if intermediate == 0 && beginner > 0 && advanced > 0 {
			gaps = append(gaps, "No intermediate notes bridge the introductory and advanced material.")
		}
		if advanced == 0 && declared > 1 {
			gaps = append(gaps, "No advanced treatments yet; coverage stops at the fundamentals.")
		}
	}

	practical := 0
	for _, l := range leaves {
		body := strings.ToLower(l.body)
		for _, marker := range practicalMarkers {
			if strings.Contains(body, marker) {
				practical++
				break
			}
		}
	}
	if len(leaves) >= 2 && practical*10 < len(leaves)*3 {
		gaps = append(gaps, "Few notes contain worked examples or practical material.")
	}
	return gaps
}

// crossDomainMentions scans note bodies for the fixed domain vocabulary,
// skipping the node's own domain.
func crossDomainMentions(ownDomain string, leaves []leaf) []string {
	own := strings.ToLower(ownDomain)
	seen := make(map[string]int)
	var order []string
	for _, l := range leaves {
		body := strings.ToLower(l.body)
		for _, domain := range crossDomainVocabulary {
			if domain == own {
				continue
			}
			if strings.Contains(body, domain) {
				if _, ok := seen[domain]; !ok {
					order = append(order, domain)
				}
				seen[domain]++
			}
		}
	}
	var out []string
	for _, domain := range order {
		n := seen[domain]
		noun := "note"
		if n > 1 {
			noun = "notes"
		}
		out = append(out, fmt.Sprintf("Connects to %s (%d %s).", titleCase(domain), n, noun))
	}
	return out
}

// insights derives content-specific observations: shared foundations,
// recurring sources, and total reading effort. No generic filler.
func insights(leaves []leaf) []string {
	var out []string

	// A prerequisite required by multiple notes is a load-bearing concept.
	prereqCount := make(map[string]int)
	var prereqOrder []string
	for _, l := range leaves {
		for _, p := range l.meta.LearningContext.Prerequisites {
			if _, ok := prereqCount[p]; !ok {
				prereqOrder = append(prereqOrder, p)
			}
			prereqCount[p]++
		}
	}
	for _, p := range prereqOrder {
		if n := prereqCount[p]; n >= 2 {
			out = append(out, fmt.Sprintf("%d notes build on %s; it anchors this topic.", n, p))
		}
	}

	// Longest declared learning path shows the deepest progression.
	var longest []string
	var longestTitle string
	for _, l := range leaves {
		if len(l.meta.LearningContext.LearningPath) > len(longest) {
			longest = l.meta.LearningContext.LearningPath
			longestTitle = l.meta.Title
		}
	}
	if len(longest) >= 3 {
		out = append(out, fmt.Sprintf("%q charts the longest learning path here: %s.",
			longestTitle, strings.Join(longest, " → ")))
	}

	if minutes := totalReadingMinutes(leaves); minutes > 0 {
		out = append(out, fmt.Sprintf("Roughly %d minutes of reading across %d notes.", minutes, len(leaves)))
	}
	return out
}

// totalReadingMinutes sums parseable estimated_reading_time values such as
// "12 min", "1 hour", or "90".
func totalReadingMinutes(leaves []leaf) int {
	total := 0
	for _, l := range leaves {
		total += parseMinutes(l.meta.LearningContext.EstimatedReadingTime)
	}
	return total
}

func parseMinutes(v string) int {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return 0
	}
	fields := strings.Fields(v)
	var n int
	if _, err := fmt.Sscanf(fields[0], "%d", &n); err != nil || n <= 0 {
		return 0
	}
	if len(fields) > 1 && strings.HasPrefix(fields[1], "hour") {
		n *= 60
	}
	return n
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
