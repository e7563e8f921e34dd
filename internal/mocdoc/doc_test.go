package mocdoc

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/othala/internal/models"
)

func sampleNode(t *testing.T) *Doc {
	t.Helper()
	data, err := RenderNode(NodeTemplateInput{
		Title:      "Quantum Mechanics",
		Domain:     "Physics",
		Level:      2,
		ParentStem: "Physics",
		Now:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RenderNode: %v", err)
	}
	return ParseNode(data)
}

func TestParseNodeMeta(t *testing.T) {
	d := sampleNode(t)
	if d.Malformed {
		t.Fatal("template output parsed as malformed")
	}
	if !d.IsNode() {
		t.Error("template output should be a MOC")
	}
	if d.Meta.Title != "Quantum Mechanics" || d.Meta.Level != 2 || d.Meta.Domain != "Physics" {
		t.Errorf("meta = %+v", d.Meta)
	}
	if d.Meta.NoteCount != 0 {
		t.Errorf("note_count = %d", d.Meta.NoteCount)
	}
}

func TestParseNodeMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte("no frontmatter at all\n"),
		[]byte("---\n: bad: [yaml\n---\nbody\n"),
		[]byte("---\nunclosed fence\n"),
	}
	for _, data := range cases {
		d := ParseNode(data)
		if !d.Malformed {
			t.Errorf("ParseNode(%q) should be malformed", data)
		}
		if d.Meta.NoteCount != 0 || d.Meta.Title != "" {
			t.Errorf("malformed node must carry zero meta, got %+v", d.Meta)
		}
	}
}

func TestTemplateHasParentLink(t *testing.T) {
	d := sampleNode(t)
	links := d.Wikilinks(HeadingParent)
	if len(links) != 1 || links[0] != "Physics" {
		t.Errorf("parent links = %v", links)
	}
}

func TestEnsureItemAddsOnce(t *testing.T) {
	d := sampleNode(t)
	if !d.EnsureItem(HeadingNotes, Link("Wave Functions")) {
		t.Fatal("first EnsureItem should report a change")
	}
	if d.EnsureItem(HeadingNotes, Link("Wave Functions")) {
		t.Error("second EnsureItem should be a no-op")
	}
	items := d.Items(HeadingNotes)
	if len(items) != 1 || items[0] != "[[Wave Functions]]" {
		t.Errorf("items = %v", items)
	}
}

func TestEnsureItemAppendsAfterExisting(t *testing.T) {
	d := sampleNode(t)
	d.EnsureItem(HeadingChildren, Link("Wave Mechanics"))
	d.EnsureItem(HeadingChildren, Link("Matrix Mechanics"))
	items := d.Items(HeadingChildren)
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	if items[0] != "[[Wave Mechanics]]" || items[1] != "[[Matrix Mechanics]]" {
		t.Errorf("order = %v", items)
	}
	// Neighbouring sections must be untouched.
	reparsed := ParseNode(d.Raw())
	if reparsed.Malformed {
		t.Error("document corrupted by EnsureItem")
	}
	if _, ok := reparsed.Section(HeadingNotes); !ok {
		t.Error("Notes section lost")
	}
}

func TestSetMetaPreservesBody(t *testing.T) {
	d := sampleNode(t)
	before := string(d.Raw())
	bodyBefore := before[strings.Index(before, "\n# "):]

	meta := d.Meta
	meta.NoteCount = 7
	meta.Updated = meta.Updated.Add(time.Hour)
	if err := d.SetMeta(meta); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}

	after := string(d.Raw())
	bodyAfter := after[strings.Index(after, "\n# "):]
	if bodyBefore != bodyAfter {
		t.Error("body changed by SetMeta")
	}
	if reparsed := ParseNode(d.Raw()); reparsed.Meta.NoteCount != 7 {
		t.Errorf("note_count after rewrite = %d", reparsed.Meta.NoteCount)
	}
}

func TestSetMetaRoundTripStable(t *testing.T) {
	d := sampleNode(t)
	if err := d.SetMeta(d.Meta); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	once := string(d.Raw())
	if err := d.SetMeta(d.Meta); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if got := string(d.Raw()); got != once {
		t.Errorf("SetMeta not stable:\n%q\nvs\n%q", once, got)
	}
}

func TestReplaceIntelligenceInsertAfterCallout(t *testing.T) {
	d := sampleNode(t)
	userText := "Some user prose the engine must never touch.\n"
	d.raw = append(d.raw, []byte("\n"+userText)...)

	block := "## Overview\n\n2 notes filed.\n\n## Key Themes\n\n- waves\n"
	d.ReplaceIntelligence(block)

	raw := string(d.Raw())
	calloutIdx := strings.Index(raw, "> Part of the Physics domain")
	overviewIdx := strings.Index(raw, "## Overview")
	parentIdx := strings.Index(raw, HeadingParent)
	if overviewIdx < calloutIdx {
		t.Error("intelligence inserted before callout")
	}
	if parentIdx < overviewIdx {
		t.Error("intelligence should land before the navigation sections")
	}
	if !strings.Contains(raw, userText) {
		t.Error("user text lost")
	}
}

func TestReplaceIntelligenceSwapsWholeBlock(t *testing.T) {
	d := sampleNode(t)
	d.ReplaceIntelligence("## Overview\n\nold overview\n\n## Key Insights\n\n- stale\n")
	before := string(d.Raw())
	if !strings.Contains(before, "old overview") {
		t.Fatal("first insert missing")
	}

	d.ReplaceIntelligence("## Overview\n\nnew overview\n")
	after := string(d.Raw())
	if strings.Contains(after, "old overview") || strings.Contains(after, "stale") {
		t.Error("stale intelligence content survived replacement")
	}
	if strings.Count(after, "## Overview") != 1 {
		t.Error("duplicate intelligence block")
	}

	// Everything outside the block is byte-identical.
	cut := func(s string) string {
		start := strings.Index(s, "## Overview")
		end := strings.Index(s, HeadingParent)
		return s[:start] + s[end:]
	}
	if cut(before) != cut(after) {
		t.Error("bytes outside the intelligence block changed")
	}
}

func TestReplaceIntelligenceFallbackAfterTitle(t *testing.T) {
	raw := []byte("---\ntype: moc\ntitle: Bare\nlevel: 1\n---\n\n# Bare\n\nUser paragraph.\n")
	d := ParseNode(raw)
	d.ReplaceIntelligence("## Overview\n\n1 note filed.\n")
	s := string(d.Raw())
	title := strings.Index(s, "# Bare")
	overview := strings.Index(s, "## Overview")
	user := strings.Index(s, "User paragraph.")
	if !(title < overview && overview < user) {
		t.Errorf("order wrong:\n%s", s)
	}
	if !strings.Contains(s, "User paragraph.\n") {
		t.Error("user paragraph damaged")
	}
}

func TestLeafRoundTrip(t *testing.T) {
	meta := models.LeafMeta{
		Title: "Bell Inequalities",
		Hierarchy: models.HierarchyMap(models.TaxonomyPath{
			Domain: "Physics", Area: "Quantum Mechanics",
		}),
		LearningContext: models.LearningContext{
			Prerequisites:   []string{"Linear Algebra"},
			ComplexityLevel: models.ComplexityAdvanced,
		},
		Source:  "https://example.org/talk",
		Created: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := RenderLeaf(meta, "# Bell Inequalities\n\nBody text.")
	if err != nil {
		t.Fatalf("RenderLeaf: %v", err)
	}
	got, body := ParseLeaf(data)
	if got.Title != meta.Title {
		t.Errorf("title = %q", got.Title)
	}
	if got.Taxonomy().Domain != "Physics" || got.Taxonomy().Area != "Quantum Mechanics" {
		t.Errorf("taxonomy = %+v", got.Taxonomy())
	}
	if got.LearningContext.ComplexityLevel != models.ComplexityAdvanced {
		t.Errorf("complexity = %q", got.LearningContext.ComplexityLevel)
	}
	if !strings.Contains(body, "Body text.") {
		t.Errorf("body = %q", body)
	}
}

func TestStemAndLink(t *testing.T) {
	if got := Stem("Knowledge/Physics/Quantum Mechanics.md"); got != "Quantum Mechanics" {
		t.Errorf("Stem = %q", got)
	}
	if got := Link("Physics"); got != "[[Physics]]" {
		t.Errorf("Link = %q", got)
	}
}

func TestExtractWikilinks(t *testing.T) {
	links := ExtractWikilinks("- [[A]]\n- [[B|alias]]\n- [[A]]\n- [[ ]]\n")
	if len(links) != 2 || links[0] != "A" || links[1] != "B" {
		t.Errorf("links = %v", links)
	}
}
