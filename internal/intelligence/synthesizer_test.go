package intelligence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/similarity"
	"github.com/starford/othala/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fixture builds a node with attached leaves and returns (store, synth,
// node address).
func fixture(t *testing.T, leaves map[string]models.LeafMeta) (storage.Provider, *Synthesizer, string) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := discardLogger()
	engine := graph.NewEngine(store, &similarity.Resolver{}, "Knowledge", logger)
	linker := graph.NewLinker(store, logger)

	addr, err := engine.EnsurePath(context.Background(), models.TaxonomyPath{
		Domain: "Physics", Area: "Quantum Mechanics",
	})
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}

	dir := strings.TrimSuffix(addr, ".md")
	for name, meta := range leaves {
		body := "# " + meta.Title + "\n\nBody with an example walkthrough.\n"
		if meta.Title == "" {
			meta.Title = name
		}
		data, err := mocdoc.RenderLeaf(meta, body)
		if err != nil {
			t.Fatalf("RenderLeaf: %v", err)
		}
		leafPath := dir + "/" + name + ".md"
		if err := store.Write(leafPath, data); err != nil {
			t.Fatalf("write leaf: %v", err)
		}
		if err := linker.Attach(addr, leafPath, meta.LearningContext); err != nil {
			t.Fatalf("Attach: %v", err)
		}
	}
	return store, NewSynthesizer(store, logger), addr
}

func contextWith(complexity string, related ...string) models.LearningContext {
	return models.LearningContext{
		ComplexityLevel: complexity,
		RelatedConcepts: related,
	}
}

func TestSynthesizeEmptyNode(t *testing.T) {
	_, synth, addr := fixture(t, nil)
	a, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !a.Empty() {
		t.Errorf("analysis should be empty, got %+v", a)
	}
	if a.NoteCount != 0 || a.Overview != "" || len(a.KnowledgeGaps) != 0 {
		t.Errorf("analysis not all-empty: %+v", a)
	}
}

func TestSynthesizeMissingNode(t *testing.T) {
	_, synth, _ := fixture(t, nil)
	if _, err := synth.Synthesize("Knowledge/Nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSynthesizeThemesAndMix(t *testing.T) {
	_, synth, addr := fixture(t, map[string]models.LeafMeta{
		"Wave Functions": {
			Title:           "Wave Functions",
			LearningContext: contextWith(models.ComplexityBeginner, "superposition"),
		},
		"Bell Inequalities": {
			Title:           "Bell Inequalities",
			LearningContext: contextWith(models.ComplexityAdvanced, "entanglement", "superposition"),
		},
	})

	a, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if a.NoteCount != 2 {
		t.Errorf("note count = %d", a.NoteCount)
	}
	if len(a.KeyThemes) == 0 || a.KeyThemes[0] != "superposition" {
		t.Errorf("themes = %v, want superposition ranked first", a.KeyThemes)
	}
	if !strings.Contains(a.Overview, "2 notes") {
		t.Errorf("overview = %q", a.Overview)
	}
	if !strings.Contains(a.Progress, "1 beginner") || !strings.Contains(a.Progress, "1 advanced") {
		t.Errorf("progress = %q", a.Progress)
	}
	// Beginner and advanced both present but no intermediate bridge.
	joined := strings.Join(a.KnowledgeGaps, " ")
	if !strings.Contains(joined, "intermediate") {
		t.Errorf("gaps = %v", a.KnowledgeGaps)
	}
}

func TestSynthesizeCrossDomain(t *testing.T) {
	store, synth, addr := fixture(t, map[string]models.LeafMeta{
		"Quantum Computing": {
			Title:           "Quantum Computing",
			LearningContext: contextWith(models.ComplexityIntermediate, "qubits"),
		},
	})
	// Rewrite the leaf body to mention another domain.
	dir := strings.TrimSuffix(addr, ".md")
	leafPath := dir + "/Quantum Computing.md"
	data, _ := store.Read(leafPath)
	meta, _ := mocdoc.ParseLeaf(data)
	updated, _ := mocdoc.RenderLeaf(meta, "# Quantum Computing\n\nApplies linear algebra from mathematics and touches computer science.\n")
	if err := store.Write(leafPath, updated); err != nil {
		t.Fatalf("rewrite leaf: %v", err)
	}

	a, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	joined := strings.Join(a.CrossDomain, " ")
	if !strings.Contains(joined, "Mathematics") || !strings.Contains(joined, "Computer Science") {
		t.Errorf("cross domain = %v", a.CrossDomain)
	}
}

func TestSynthesizeInsights(t *testing.T) {
	_, synth, addr := fixture(t, map[string]models.LeafMeta{
		"Operators": {
			Title: "Operators",
			LearningContext: models.LearningContext{
				ComplexityLevel:      models.ComplexityIntermediate,
				Prerequisites:        []string{"Linear Algebra"},
				RelatedConcepts:      []string{"observables"},
				EstimatedReadingTime: "10 min",
			},
		},
		"Eigenstates": {
			Title: "Eigenstates",
			LearningContext: models.LearningContext{
				ComplexityLevel:      models.ComplexityIntermediate,
				Prerequisites:        []string{"Linear Algebra"},
				RelatedConcepts:      []string{"observables"},
				LearningPath:         []string{"Vectors", "Operators", "Eigenstates"},
				EstimatedReadingTime: "1 hour",
			},
		},
	})

	a, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	joined := strings.Join(a.Insights, " ")
	if !strings.Contains(joined, "Linear Algebra") {
		t.Errorf("insights missing shared prerequisite: %v", a.Insights)
	}
	if !strings.Contains(joined, "70 minutes") {
		t.Errorf("insights missing reading estimate: %v", a.Insights)
	}
	if !strings.Contains(joined, "Vectors → Operators → Eigenstates") {
		t.Errorf("insights missing learning path: %v", a.Insights)
	}
}

func TestApplyEmptySkipsWrite(t *testing.T) {
	store, synth, addr := fixture(t, nil)
	before, _ := store.Read(addr)
	if err := synth.Apply(addr, Analysis{}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	after, _ := store.Read(addr)
	if string(before) != string(after) {
		t.Error("empty analysis must not write")
	}
}

func TestApplyPreservesUserZone(t *testing.T) {
	store, synth, addr := fixture(t, map[string]models.LeafMeta{
		"Spin": {Title: "Spin", LearningContext: contextWith(models.ComplexityBeginner, "angular momentum")},
	})

	// User prose outside the managed sections.
	userText := "\n## My Reading List\n\n- a book I like\n\nfree-form *notes* here\n"
	data, _ := store.Read(addr)
	if err := store.Write(addr, append(data, []byte(userText)...)); err != nil {
		t.Fatalf("write user text: %v", err)
	}

	a, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if err := synth.Apply(addr, a); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Second cycle exercises block replacement rather than insertion.
	a2, err := synth.Synthesize(addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if err := synth.Apply(addr, a2); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	final, _ := store.Read(addr)
	if !strings.Contains(string(final), userText) {
		t.Error("user zone not byte-identical after synthesis cycles")
	}
	if strings.Count(string(final), mocdoc.HeadingOverview) != 1 {
		t.Error("duplicate intelligence block")
	}
}

func TestApplyUpdatedMonotonic(t *testing.T) {
	store, synth, addr := fixture(t, map[string]models.LeafMeta{
		"Spin": {Title: "Spin", LearningContext: contextWith(models.ComplexityBeginner, "spin")},
	})
	data, _ := store.Read(addr)
	before := mocdoc.ParseNode(data).Meta.Updated

	a, _ := synth.Synthesize(addr)
	if err := synth.Apply(addr, a); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	data, _ = store.Read(addr)
	after := mocdoc.ParseNode(data).Meta.Updated
	if after.Before(before) {
		t.Errorf("updated went backwards: %v -> %v", before, after)
	}
}
