package vaultservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/similarity"
	"github.com/starford/othala/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	f, err := os.CreateTemp("", "othala-svc-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := index.Open(f.Name())
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	engine := graph.NewEngine(store, &similarity.Resolver{Logger: logger}, "Knowledge", logger)
	return NewService(store, db, engine, nil, logger)
}

func physicsRequest(title string) FileNoteRequest {
	return FileNoteRequest{
		Title:   title,
		Content: "Superposition lets a quantum system occupy several basis states at once. For example, a qubit holds both |0> and |1> amplitudes in practice.",
		Taxonomy: models.TaxonomyPath{
			Domain: "Physics",
			Area:   "Quantum Mechanics",
		},
		LearningContext: models.LearningContext{
			Prerequisites:        []string{"Linear Algebra"},
			RelatedConcepts:      []string{"entanglement"},
			ComplexityLevel:      models.ComplexityIntermediate,
			EstimatedReadingTime: "5 min",
		},
		Source: "https://example.com/superposition",
		Tags:   []string{"quantum"},
	}
}

func TestFileNotePipeline(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.FileNote(ctx, physicsRequest("Quantum Superposition"))
	if err != nil {
		t.Fatalf("FileNote: %v", err)
	}

	if res.NodePath != "Knowledge/Physics/Quantum Mechanics.md" {
		t.Errorf("node path = %q", res.NodePath)
	}
	if res.NotePath != "Knowledge/Physics/Quantum Mechanics/Quantum Superposition.md" {
		t.Errorf("note path = %q", res.NotePath)
	}
	if !res.Linked {
		t.Error("expected note to be linked")
	}
	if !res.IntelligenceApplied {
		t.Error("expected intelligence to be applied")
	}

	// The leaf must exist and carry its hierarchy frontmatter.
	data, err := svc.store.Read(res.NotePath)
	if err != nil {
		t.Fatalf("read leaf: %v", err)
	}
	if !strings.Contains(string(data), "level2: Quantum Mechanics") {
		t.Errorf("leaf frontmatter missing hierarchy:\n%s", data)
	}

	// The node must link the leaf and its prerequisite.
	node, err := svc.GetNode(ctx, res.NodePath)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node.Meta.NoteCount != 1 {
		t.Errorf("note_count = %d, want 1", node.Meta.NoteCount)
	}
	found := false
	for _, n := range node.Notes {
		if n == "Quantum Superposition" {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v, missing leaf link", node.Notes)
	}
	if !strings.Contains(node.Content, "[[Linear Algebra]]") {
		t.Error("prerequisite not merged into node")
	}
	if !strings.Contains(node.Content, "## Overview") {
		t.Error("intelligence block missing from node")
	}

	// Both documents must land in the index.
	if row, _ := svc.db.GetDocument(res.NodePath); row == nil || row.NoteCount != 1 {
		t.Errorf("node index row = %+v", row)
	}
	if row, _ := svc.db.GetDocument(res.NotePath); row == nil || row.Kind != index.KindLeaf {
		t.Errorf("leaf index row = %+v", row)
	}
}

func TestFileNoteTitleCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.FileNote(ctx, physicsRequest("Quantum Superposition"))
	if err != nil {
		t.Fatalf("first FileNote: %v", err)
	}
	second, err := svc.FileNote(ctx, physicsRequest("Quantum Superposition"))
	if err != nil {
		t.Fatalf("second FileNote: %v", err)
	}

	if second.NotePath == first.NotePath {
		t.Fatalf("collision produced the same path %q", second.NotePath)
	}
	if !strings.HasPrefix(second.NotePath, "Knowledge/Physics/Quantum Mechanics/Quantum Superposition-") {
		t.Errorf("second note path = %q, want suffixed name", second.NotePath)
	}

	node, err := svc.GetNode(ctx, first.NodePath)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node.Meta.NoteCount != 2 {
		t.Errorf("note_count = %d, want 2", node.Meta.NoteCount)
	}
}

func TestFileNoteValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := physicsRequest("valid")
	req.Title = ""
	if _, err := svc.FileNote(ctx, req); err == nil {
		t.Error("expected error for empty title")
	}

	req = physicsRequest("valid")
	req.Taxonomy = models.TaxonomyPath{Domain: "Physics"}
	if _, err := svc.FileNote(ctx, req); err == nil {
		t.Error("expected error for single-level taxonomy")
	}
}

func TestEnsurePathStandalone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addr, err := svc.EnsurePath(ctx, models.TaxonomyPath{Domain: "Computer Science", Area: "Algorithms"})
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}
	// Labels are singularized on the way in.
	if addr != "Knowledge/Computer Science/Algorithm.md" {
		t.Errorf("addr = %q", addr)
	}
	if row, _ := svc.db.GetDocument(addr); row == nil || row.Kind != index.KindNode {
		t.Errorf("index row = %+v", row)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetNode(context.Background(), "Knowledge/Nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSynthesizeOnDemandEmptyNode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addr, err := svc.EnsurePath(ctx, models.TaxonomyPath{Domain: "History", Area: "Antiquity"})
	if err != nil {
		t.Fatalf("EnsurePath: %v", err)
	}

	before, _ := svc.store.Read(addr)
	analysis, err := svc.Synthesize(ctx, addr)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !analysis.Empty() {
		t.Errorf("analysis = %+v, want empty", analysis)
	}
	after, _ := svc.store.Read(addr)
	if string(before) != string(after) {
		t.Error("empty synthesis must not rewrite the node")
	}
}

func TestSearchFindsFiledNote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.FileNote(ctx, physicsRequest("Quantum Superposition")); err != nil {
		t.Fatalf("FileNote: %v", err)
	}

	results, err := svc.Search(ctx, "Superposition", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one search hit")
	}
}
