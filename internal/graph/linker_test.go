package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
)

func TestAttachIncrementsOnce(t *testing.T) {
	store := testStore(t)
	e := newTestEngine(t, store)
	l := NewLinker(store, discardLogger())

	addr, err := e.EnsurePath(context.Background(), models.TaxonomyPath{
		Domain: "Physics", Area: "Quantum Mechanics",
	})
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}

	leaf := "Knowledge/Physics/Quantum Mechanics/Wave Functions.md"
	if err := l.Attach(addr, leaf, models.LearningContext{}); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	if err := l.Attach(addr, leaf, models.LearningContext{}); err != nil {
		t.Fatalf("second Attach: %v", err)
	}

	node := readNode(t, store, addr)
	items := node.Items(mocdoc.HeadingNotes)
	if len(items) != 1 || items[0] != "[[Wave Functions]]" {
		t.Errorf("notes = %v", items)
	}
	if node.Meta.NoteCount != 1 {
		t.Errorf("note_count = %d, want 1", node.Meta.NoteCount)
	}
}

func TestAttachMergesPrerequisites(t *testing.T) {
	store := testStore(t)
	e := newTestEngine(t, store)
	l := NewLinker(store, discardLogger())

	addr, _ := e.EnsurePath(context.Background(), models.TaxonomyPath{
		Domain: "Mathematics", Area: "Linear Algebra",
	})

	lc := models.LearningContext{Prerequisites: []string{"Vectors", "Matrices", "Vectors"}}
	if err := l.Attach(addr, "x/Eigenvalues.md", lc); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	// A second leaf shares one prerequisite and brings a new one.
	lc2 := models.LearningContext{Prerequisites: []string{"Matrices", "Determinants"}}
	if err := l.Attach(addr, "x/Diagonalization.md", lc2); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	node := readNode(t, store, addr)
	got := node.Items(mocdoc.HeadingPrerequisites)
	want := []string{"[[Vectors]]", "[[Matrices]]", "[[Determinants]]"}
	if len(got) != len(want) {
		t.Fatalf("prerequisites = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prerequisites[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if node.Meta.NoteCount != 2 {
		t.Errorf("note_count = %d, want 2", node.Meta.NoteCount)
	}
}

func TestAttachUpdatedMonotonic(t *testing.T) {
	store := testStore(t)
	e := newTestEngine(t, store)
	l := NewLinker(store, discardLogger())

	addr, _ := e.EnsurePath(context.Background(), models.TaxonomyPath{
		Domain: "Physics", Area: "Optics",
	})
	before := readNode(t, store, addr).Meta.Updated

	if err := l.Attach(addr, "x/Refraction.md", models.LearningContext{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	after := readNode(t, store, addr).Meta.Updated
	if after.Before(before) {
		t.Errorf("updated went backwards: %v -> %v", before, after)
	}
}

func TestAttachMissingNode(t *testing.T) {
	store := testStore(t)
	l := NewLinker(store, discardLogger())
	err := l.Attach("Knowledge/Nope.md", "x/Leaf.md", models.LearningContext{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAttachMalformedNodeRecovered(t *testing.T) {
	store := testStore(t)
	l := NewLinker(store, discardLogger())

	// A node with broken frontmatter still accepts links; counters are
	// simply not tracked.
	raw := []byte("not: [valid frontmatter\n\n# Weird\n\n## Notes\n")
	if err := store.Write("Knowledge/Weird.md", raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := l.Attach("Knowledge/Weird.md", "x/Leaf.md", models.LearningContext{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	node := readNode(t, store, "Knowledge/Weird.md")
	if !node.HasItem(mocdoc.HeadingNotes, "[[Leaf]]") {
		t.Error("link not added to malformed node")
	}
}
