// Package graph maintains the hierarchy of MOC node documents: materializing
// taxonomy paths, deduplicating against similar siblings, and keeping
// parent↔child navigation wired. The document store is the sole source of
// truth; nothing here caches node state between calls.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/similarity"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/taxonomy"
)

const (
	createAttempts = 3
	createBackoff  = 50 * time.Millisecond
)

// Engine ensures taxonomy paths exist as chains of node documents.
//
// EnsurePath is idempotent but not safe against concurrent writers touching
// the same paths: two overlapping calls can race on the parent navigation
// update and one write can be lost. There is no version token on node
// writes; callers that need stronger guarantees must serialize externally.
type Engine struct {
	store    storage.Provider
	resolver *similarity.Resolver
	rootDir  string
	logger   *slog.Logger
	now      func() time.Time

	// OnEvent, when set, receives "created" and "reused" notifications with
	// the affected node path. Calls are synchronous on the EnsurePath goroutine.
	OnEvent func(kind, path string)
}

// NewEngine creates a hierarchy engine rooted at rootDir (relative to the
// vault root). resolver may carry a nil oracle; the heuristics alone then
// decide sibling equivalence.
func NewEngine(store storage.Provider, resolver *similarity.Resolver, rootDir string, logger *slog.Logger) *Engine {
	if resolver == nil {
		resolver = &similarity.Resolver{}
	}
	return &Engine{
		store:    store,
		resolver: resolver,
		rootDir:  rootDir,
		logger:   logger,
		now:      time.Now,
	}
}

// sibling is an existing node document found next to a candidate level.
type sibling struct {
	Title string
	Path  string
}

// EnsurePath materializes every level of path, reusing equivalent existing
// nodes, and returns the storage path of the most specific node. Calling it
// twice with the same path creates no duplicate nodes or navigation entries
// and returns the same address.
func (e *Engine) EnsurePath(ctx context.Context, path models.TaxonomyPath) (string, error) {
	levels, err := taxonomy.Resolve(path, e.rootDir)
	if err != nil {
		return "", err
	}

	dir := e.rootDir
	domain := levels[0].Title
	parent := ""
	for _, lvl := range levels {
		addr, err := e.ensureLevel(ctx, lvl, dir, domain, parent)
		if err != nil {
			return "", err
		}
		if lvl.Level == 1 {
			// Reuse at the top level can rename the whole domain.
			domain = mocdoc.Stem(addr)
		}
		if parent != "" {
			if err := e.linkChild(parent, addr); err != nil {
				e.logger.Warn("graph: parent navigation update failed",
					slog.String("parent", parent),
					slog.String("child", addr),
					slog.String("error", err.Error()))
			}
		}
		parent = addr
		dir = strings.TrimSuffix(addr, ".md")
	}
	return parent, nil
}

// ensureLevel returns the effective node address for one level: the exact
// computed path when it already exists, a similar sibling when one matches,
// or a freshly created node.
func (e *Engine) ensureLevel(ctx context.Context, lvl taxonomy.LevelInfo, dir, domain, parent string) (string, error) {
	name := taxonomy.SanitizeTitle(lvl.Title)
	computed := joinPath(dir, name+".md")

	ok, err := e.store.Exists(computed)
	if err != nil {
		return "", fmt.Errorf("graph: probe %s: %w", computed, err)
	}
	if ok {
		return computed, nil
	}

	siblings := e.nodeSiblings(dir)
	if match := e.findEquivalent(ctx, lvl.Title, siblings); match != "" {
		e.logger.Info("graph: reusing equivalent node",
			slog.String("candidate", lvl.Title),
			slog.String("node", match))
		e.emit("reused", match)
		return match, nil
	}

	content, err := mocdoc.RenderNode(mocdoc.NodeTemplateInput{
		Title:      lvl.Title,
		Domain:     domain,
		Level:      lvl.Level,
		ParentStem: stemOrEmpty(parent),
		Now:        e.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return e.createNode(ctx, computed, content)
}

// findEquivalent checks the deterministic heuristics first, then consults
// the advisory oracle. Returns the matched node path or "".
func (e *Engine) findEquivalent(ctx context.Context, candidate string, siblings []sibling) string {
	for _, s := range siblings {
		if e.resolver.Matcher.IsMatch(s.Title, candidate) {
			return s.Path
		}
	}

	titles := make([]string, len(siblings))
	for i, s := range siblings {
		titles[i] = s.Title
	}
	dec := e.resolver.ResolveAmbiguous(ctx, candidate, titles, "")
	if !dec.Reuse {
		return ""
	}
	// The oracle's target is only honored when it names a known sibling,
	// by title, stem, or full path.
	for _, s := range siblings {
		if dec.Target == s.Title || dec.Target == s.Path || dec.Target == mocdoc.Stem(s.Path) {
			return s.Path
		}
	}
	e.logger.Warn("graph: oracle picked unknown target, ignoring",
		slog.String("candidate", candidate),
		slog.String("target", dec.Target))
	return ""
}

// nodeSiblings lists the existing node documents in dir. Leaf notes and
// unreadable files are skipped.
func (e *Engine) nodeSiblings(dir string) []sibling {
	entries, err := e.store.ListChildren(dir)
	if err != nil {
		e.logger.Warn("graph: list siblings failed",
			slog.String("dir", dir), slog.String("error", err.Error()))
		return nil
	}
	var out []sibling
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, ".md") {
			continue
		}
		data, err := e.store.Read(entry.Path)
		if err != nil {
			continue
		}
		doc := mocdoc.ParseNode(data)
		if !doc.IsNode() {
			continue
		}
		title := doc.Meta.Title
		if title == "" {
			title = mocdoc.Stem(entry.Path)
		}
		out = append(out, sibling{Title: title, Path: entry.Path})
	}
	return out
}

// createNode writes content to path and verifies it by reading it back.
// Transient failures are retried with backoff; the final resort is an
// alternate timestamp-suffixed filename before giving up with
// apperr.ErrNodeCreation.
func (e *Engine) createNode(ctx context.Context, path string, content []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, createBackoff<<uint(attempt-1)); err != nil {
				return "", err
			}
		}
		if lastErr = e.writeVerified(path, content); lastErr == nil {
			e.emit("created", path)
			return path, nil
		}
		e.logger.Warn("graph: node write failed",
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))
	}

	alt := strings.TrimSuffix(path, ".md") + "-" + e.now().UTC().Format("20060102T150405") + ".md"
	if err := e.writeVerified(alt, content); err == nil {
		e.logger.Warn("graph: fell back to alternate node name",
			slog.String("path", alt))
		e.emit("created", alt)
		return alt, nil
	}
	return "", fmt.Errorf("graph: create %s after %d attempts: %v: %w",
		path, createAttempts, lastErr, apperr.ErrNodeCreation)
}

func (e *Engine) writeVerified(path string, content []byte) error {
	if err := e.store.Write(path, content); err != nil {
		return err
	}
	data, err := e.store.Read(path)
	if err != nil {
		return fmt.Errorf("graph: verify read: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("graph: verify read: empty document")
	}
	return nil
}

// linkChild inserts the child into the parent's subtopic navigation,
// idempotently, and refreshes the parent's updated timestamp when the entry
// is new.
func (e *Engine) linkChild(parentPath, childPath string) error {
	data, err := e.store.Read(parentPath)
	if err != nil {
		return err
	}
	doc := mocdoc.ParseNode(data)
	doc.EnsureSection(mocdoc.HeadingChildren)
	if !doc.EnsureItem(mocdoc.HeadingChildren, mocdoc.Link(mocdoc.Stem(childPath))) {
		return nil
	}
	if !doc.Malformed {
		meta := doc.Meta
		meta.Updated = laterOf(meta.Updated, e.now().UTC())
		if err := doc.SetMeta(meta); err != nil {
			return err
		}
	}
	return e.store.Write(parentPath, doc.Raw())
}

func (e *Engine) emit(kind, path string) {
	if e.OnEvent != nil {
		e.OnEvent(kind, path)
	}
}

func stemOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return mocdoc.Stem(path)
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
