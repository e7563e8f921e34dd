package index

import (
	"log/slog"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/mocdoc"
	"github.com/starford/othala/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed",
				slog.String("path", m.Path),
				slog.String("checksum", checksum.Short(data)))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument parses data as either a MOC node or a leaf note and upserts
// the resulting row. Exported so the service layer can reindex after writes.
func IndexDocument(db *DB, path string, data []byte) error {
	return indexFile(db, path, data)
}

func indexFile(db *DB, path string, data []byte) error {
	cs := checksum.Sum(data)

	doc := mocdoc.ParseNode(data)
	if doc.IsNode() {
		edges := make([]Edge, 0)
		for _, stem := range doc.Wikilinks(mocdoc.HeadingChildren) {
			edges = append(edges, Edge{Target: stem, Kind: EdgeChild})
		}
		for _, stem := range doc.Wikilinks(mocdoc.HeadingNotes) {
			edges = append(edges, Edge{Target: stem, Kind: EdgeNote})
		}
		row := DocRow{
			Path:      path,
			Kind:      KindNode,
			Title:     doc.Meta.Title,
			Domain:    doc.Meta.Domain,
			Level:     doc.Meta.Level,
			NoteCount: doc.Meta.NoteCount,
			Checksum:  cs,
			Tags:      doc.Meta.Tags,
			UpdatedAt: doc.Meta.Updated,
		}
		return db.UpsertDocument(row, doc.Body(), edges)
	}

	meta, body := mocdoc.ParseLeaf(data)
	row := DocRow{
		Path:       path,
		Kind:       KindLeaf,
		Title:      meta.Title,
		Domain:     meta.Taxonomy().Domain,
		Complexity: meta.LearningContext.ComplexityLevel,
		Checksum:   cs,
		Tags:       meta.Tags,
		UpdatedAt:  meta.Created,
	}
	return db.UpsertDocument(row, body, nil)
}
