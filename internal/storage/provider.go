// Package storage defines the vault document-store abstraction.
package storage

import "github.com/starford/othala/internal/models"

// Provider is the narrow document-store interface the hierarchy engine
// consumes. All paths are relative to the vault root and use forward slashes.
// The store is the sole source of truth: components never cache document
// state across calls.
type Provider interface {
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create writes a new file, failing with apperr.ErrAlreadyExists when a
	// file is already present at path. Parent directories are created as
	// needed.
	Create(path string, content []byte) error
	// Write atomically replaces (or creates) the file at path.
	Write(path string, content []byte) error
	// ListChildren returns the immediate children of dir: markdown documents
	// and subdirectories, sorted by name.
	ListChildren(dir string) ([]models.DirEntry, error)
	// List walks dir recursively and returns metadata for every .md file.
	List(dir string) ([]models.FileMetadata, error)
}
