package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DocRow represents a row in the documents table.
type DocRow struct {
	Path       string
	Kind       string // KindNode or KindLeaf
	Title      string
	Domain     string
	Level      int    // nodes only
	Complexity string // leaves only
	NoteCount  int    // nodes only
	Checksum   string
	Tags       []string
	UpdatedAt  time.Time
}

// Edge is a directed relation between two documents. Targets are wikilink
// stems, not resolved paths.
type Edge struct {
	Target string
	Kind   string // EdgeChild or EdgeNote
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// TreeNode is a node row shaped for hierarchy listings.
type TreeNode struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Domain    string    `json:"domain"`
	Level     int       `json:"level"`
	NoteCount int       `json:"note_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GraphNode is a document in the navigation graph.
type GraphNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
}

// GraphLink is a directed edge in the navigation graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// UpsertDocument inserts or replaces a document, its FTS entry, and its
// outgoing edges within a transaction.
func (db *DB) UpsertDocument(d DocRow, body string, edges []Edge) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(d.Tags)

	_, err = tx.Exec(`
		INSERT INTO documents (path, kind, title, domain, level, complexity, note_count, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			title      = excluded.title,
			domain     = excluded.domain,
			level      = excluded.level,
			complexity = excluded.complexity,
			note_count = excluded.note_count,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Kind, d.Title, d.Domain, d.Level, d.Complexity, d.NoteCount, d.Checksum, string(tagsJSON), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body, d.Tags); err != nil {
		return err
	}

	// Replace edges: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM edges WHERE source = ?`, d.Path)
	if len(edges) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (source, target, kind) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range edges {
			if _, err := stmt.Exec(d.Path, e.Target, e.Kind); err != nil {
				return fmt.Errorf("index: insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing edges.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM edges WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetDocument returns one document row, or nil when absent.
func (db *DB) GetDocument(path string) (*DocRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, kind, title, domain, level, complexity, note_count, checksum, tags, updated_at
		FROM documents WHERE path = ?
	`, path)
	var d DocRow
	var tagsJSON string
	err := row.Scan(&d.Path, &d.Kind, &d.Title, &d.Domain, &d.Level, &d.Complexity,
		&d.NoteCount, &d.Checksum, &tagsJSON, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	return &d, nil
}

// Tree returns every node document ordered by path, which doubles as
// hierarchy order.
func (db *DB) Tree() ([]TreeNode, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, domain, level, note_count, updated_at
		FROM documents
		WHERE kind = ?
		ORDER BY path
	`, KindNode)
	if err != nil {
		return nil, fmt.Errorf("index: tree: %w", err)
	}
	defer rows.Close()

	var out []TreeNode
	for rows.Next() {
		var n TreeNode
		if err := rows.Scan(&n.Path, &n.Title, &n.Domain, &n.Level, &n.NoteCount, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Graph returns all documents and edges for graph visualization.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT path, kind, title FROM documents`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()

	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	erows, err := db.conn.Query(`SELECT source, target, kind FROM edges`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph edges: %w", err)
	}
	defer erows.Close()

	var links []GraphLink
	for erows.Next() {
		var l GraphLink
		if err := erows.Scan(&l.Source, &l.Target, &l.Kind); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, erows.Err()
}

// Backlinks returns the node paths whose edges point at the given stem.
func (db *DB) Backlinks(targetStem string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM edges WHERE target = ?`, targetStem)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
