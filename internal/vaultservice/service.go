// Package vaultservice coordinates the filing pipeline: persisting leaf
// notes, ensuring their hierarchy, linking, synthesizing intelligence, and
// keeping the read-model index and SSE subscribers in step.
package vaultservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/intelligence"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/taxonomy"
)

// FileNoteRequest is an incoming classified note to file into the vault.
type FileNoteRequest struct {
	Title           string                 `json:"title"`
	Content         string                 `json:"content"`
	Taxonomy        models.TaxonomyPath    `json:"taxonomy"`
	LearningContext models.LearningContext `json:"learning_context"`
	Source          string                 `json:"source,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
}

// Validate checks the request before any write happens.
func (r FileNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Taxonomy, validation.By(func(any) error {
			if r.Taxonomy.Depth() < 2 {
				return fmt.Errorf("at least domain and area levels are required: %w", apperr.ErrInvalidHierarchy)
			}
			return nil
		})),
	)
}

// FileResult reports what filing a note actually did.
type FileResult struct {
	NotePath            string `json:"note_path"`
	NodePath            string `json:"node_path"`
	Linked              bool   `json:"linked"`
	IntelligenceApplied bool   `json:"intelligence_applied"`
}

// NodeDetail is the full representation of a hierarchy node.
type NodeDetail struct {
	Path      string          `json:"path"`
	Meta      models.NodeMeta `json:"meta"`
	Content   string          `json:"content"`
	Checksum  string          `json:"checksum"`
	Notes     []string        `json:"notes"`
	Children  []string        `json:"children"`
	Backlinks []string        `json:"backlinks"`
}

// Service coordinates the document store, hierarchy engine, and index.
type Service struct {
	store  storage.Provider
	db     *index.DB
	engine *graph.Engine
	linker *graph.Linker
	synth  *intelligence.Synthesizer
	broker *sse.Broker
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the filing pipeline together. broker may be nil when no
// event stream is wanted (tests, the MCP entrypoint).
func NewService(store storage.Provider, db *index.DB, engine *graph.Engine, broker *sse.Broker, logger *slog.Logger) *Service {
	s := &Service{
		store:  store,
		db:     db,
		engine: engine,
		linker: graph.NewLinker(store, logger),
		synth:  intelligence.NewSynthesizer(store, logger),
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
	engine.OnEvent = func(kind, path string) {
		s.reindex(path)
		switch kind {
		case "created":
			s.publish(sse.EventNodeCreated, path)
		case "reused":
			s.publish(sse.EventNodeReused, path)
		}
	}
	return s
}

// FileNote runs the full placement pipeline for one classified note.
//
// Hierarchy materialization failures are fatal and the caller should retry
// (EnsurePath is idempotent). Once the leaf document is persisted, linking
// and intelligence synthesis are best-effort: their failures are logged and
// reflected in the result flags, never returned.
func (s *Service) FileNote(ctx context.Context, req FileNoteRequest) (*FileResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	nodePath, err := s.engine.EnsurePath(ctx, req.Taxonomy)
	if err != nil {
		return nil, err
	}

	notePath, err := s.persistLeaf(nodePath, req)
	if err != nil {
		return nil, err
	}

	res := &FileResult{NotePath: notePath, NodePath: nodePath}

	if err := s.linker.Attach(nodePath, notePath, req.LearningContext); err != nil {
		s.logger.Warn("vault: note link failed",
			slog.String("node", nodePath),
			slog.String("note", notePath),
			slog.String("error", err.Error()))
	} else {
		res.Linked = true
		s.publish(sse.EventNoteFiled, notePath)
	}

	if res.Linked {
		res.IntelligenceApplied = s.refreshIntelligence(nodePath)
	}

	s.reindex(notePath)
	s.reindex(nodePath)
	return res, nil
}

// EnsurePath materializes a taxonomy path without filing a note and returns
// the most specific node's path.
func (s *Service) EnsurePath(ctx context.Context, path models.TaxonomyPath) (string, error) {
	nodePath, err := s.engine.EnsurePath(ctx, path)
	if err != nil {
		return "", err
	}
	s.reindex(nodePath)
	return nodePath, nil
}

// Synthesize recomputes and applies a node's intelligence block on demand
// and returns the analysis.
func (s *Service) Synthesize(_ context.Context, nodePath string) (intelligence.Analysis, error) {
	analysis, err := s.synth.Synthesize(nodePath)
	if err != nil {
		return intelligence.Analysis{}, err
	}
	if err := s.synth.Apply(nodePath, analysis); err != nil {
		return intelligence.Analysis{}, err
	}
	if !analysis.Empty() {
		s.publish(sse.EventIntelligence, nodePath)
		s.reindex(nodePath)
	}
	return analysis, nil
}

// GetNode reads a node document and enriches it with index backlinks.
func (s *Service) GetNode(_ context.Context, path string) (*NodeDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
	}
	doc := mocdoc.ParseNode(data)
	bl, err := s.db.Backlinks(mocdoc.Stem(path))
	if err != nil {
		return nil, err
	}
	return &NodeDetail{
		Path:      path,
		Meta:      doc.Meta,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Notes:     nonNilSlice(doc.Wikilinks(mocdoc.HeadingNotes)),
		Children:  nonNilSlice(doc.Wikilinks(mocdoc.HeadingChildren)),
		Backlinks: nonNilSlice(bl),
	}, nil
}

// Tree returns the hierarchy as indexed node rows.
func (s *Service) Tree(_ context.Context) ([]index.TreeNode, error) {
	return s.db.Tree()
}

// Graph returns all documents and edges for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// persistLeaf renders and writes the leaf document under the node's child
// directory, choosing a suffixed filename on collision. Content durability
// comes before everything else in the pipeline.
func (s *Service) persistLeaf(nodePath string, req FileNoteRequest) (string, error) {
	meta := models.LeafMeta{
		Title:           req.Title,
		Hierarchy:       models.HierarchyMap(req.Taxonomy),
		LearningContext: req.LearningContext,
		Source:          req.Source,
		Created:         s.now().UTC(),
		Tags:            req.Tags,
	}
	data, err := mocdoc.RenderLeaf(meta, req.Content)
	if err != nil {
		return "", err
	}

	dir := strings.TrimSuffix(nodePath, ".md")
	name := taxonomy.SanitizeTitle(req.Title)
	notePath := dir + "/" + name + ".md"

	err = s.store.Create(notePath, data)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		notePath = dir + "/" + name + "-" + uuid.NewString()[:8] + ".md"
		err = s.store.Create(notePath, data)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return "", fmt.Errorf("vault: persist note %s: %w", notePath, apperr.ErrConflict)
		}
	}
	if err != nil {
		return "", fmt.Errorf("vault: persist note %s: %w", notePath, err)
	}
	return notePath, nil
}

// refreshIntelligence is the best-effort tail of the filing pipeline.
func (s *Service) refreshIntelligence(nodePath string) bool {
	analysis, err := s.synth.Synthesize(nodePath)
	if err != nil {
		s.logger.Warn("vault: synthesis failed",
			slog.String("node", nodePath), slog.String("error", err.Error()))
		return false
	}
	if analysis.Empty() {
		return false
	}
	if err := s.synth.Apply(nodePath, analysis); err != nil {
		s.logger.Warn("vault: intelligence apply failed",
			slog.String("node", nodePath), slog.String("error", err.Error()))
		return false
	}
	s.publish(sse.EventIntelligence, nodePath)
	return true
}

// reindex re-reads a document and upserts it into the read model.
func (s *Service) reindex(path string) {
	data, err := s.store.Read(path)
	if err != nil {
		return
	}
	if err := index.IndexDocument(s.db, path, data); err != nil {
		s.logger.Warn("vault: reindex failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Service) publish(typ, path string) {
	if s.broker != nil {
		s.broker.PublishVaultEvent(typ, path)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
