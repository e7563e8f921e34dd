// Package apperr defines the sentinel errors shared across Othala components.
package apperr

import "errors"

var (
	// ErrInvalidHierarchy means the taxonomy path is missing level 1 or 2.
	// Fatal for the whole placement: nothing can be materialized.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")

	// ErrNodeCreation means a node write could not be verified even after
	// retries and the fallback filename. Aborts the level and everything
	// below it.
	ErrNodeCreation = errors.New("node creation failed")

	// ErrNotFound is returned when a node or leaf document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a note could not be persisted even under the
	// collision-suffixed filename.
	ErrConflict = errors.New("conflict")


	ErrAlreadyExists = errors.New("already exists")
)
