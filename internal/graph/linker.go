package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Linker attaches leaf notes to node documents without ever duplicating a
// link or decrementing a counter.
type Linker struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewLinker creates a note linker.
func NewLinker(store storage.Provider, logger *slog.Logger) *Linker {
	return &Linker{store: store, logger: logger, now: time.Now}
}

// Attach adds a wikilink to leafPath in the node's Notes section. Already
// linked leaves are a no-op; note_count is only incremented for genuinely
// new links. Non-empty prerequisites from the learning context are merged
// (set union, insertion order) into the Prerequisites section either way.
// Returns apperr.ErrNotFound when the node does not exist.
func (l *Linker) Attach(nodeAddr, leafPath string, lc models.LearningContext) error {
	ok, err := l.store.Exists(nodeAddr)
	if err != nil {
		return fmt.Errorf("graph: probe node %s: %w", nodeAddr, err)
	}
	if !ok {
		return fmt.Errorf("graph: node %s: %w", nodeAddr, apperr.ErrNotFound)
	}
	data, err := l.store.Read(nodeAddr)
	if err != nil {
		return fmt.Errorf("graph: read node %s: %w", nodeAddr, err)
	}

	doc := mocdoc.ParseNode(data)
	doc.EnsureSection(mocdoc.HeadingNotes)

	changed := false
	linked := doc.EnsureItem(mocdoc.HeadingNotes, mocdoc.Link(mocdoc.Stem(leafPath)))
	changed = changed || linked

	if len(lc.Prerequisites) > 0 {
		doc.EnsureSection(mocdoc.HeadingPrerequisites)
		for _, p := range dedupe(lc.Prerequisites) {
			if doc.EnsureItem(mocdoc.HeadingPrerequisites, mocdoc.Link(p)) {
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}

	if !doc.Malformed {
		meta := doc.Meta
		if linked {
			meta.NoteCount++
		}
		meta.Updated = laterOf(meta.Updated, l.now().UTC())
		if err := doc.SetMeta(meta); err != nil {
			return err
		}
	}

	if err := l.store.Write(nodeAddr, doc.Raw()); err != nil {
		return fmt.Errorf("graph: write node %s: %w", nodeAddr, err)
	}
	l.logger.Debug("graph: leaf attached",
		slog.String("node", nodeAddr),
		slog.String("leaf", leafPath),
		slog.Bool("new_link", linked))
	return nil
}

// dedupe keeps the first occurrence of each value, preserving order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
