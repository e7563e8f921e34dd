package api

import (
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/vaultservice"
)

// FileNoteRequest is the request body for filing a classified note
// (aliased from the domain layer).
type FileNoteRequest = vaultservice.FileNoteRequest

// FileResult is the filing outcome (aliased from the domain layer).
type FileResult = vaultservice.FileResult

// NodeDetail is the full node response type (aliased from the domain layer).
type NodeDetail = vaultservice.NodeDetail

// EnsurePathRequest is the request body for materializing a taxonomy path
// without filing a note.
type EnsurePathRequest struct {
	Taxonomy models.TaxonomyPath `json:"taxonomy"`
}

// EnsurePathResponse returns the most specific node's storage path.
type EnsurePathResponse struct {
	NodePath string `json:"node_path"`
}

// SynthesizeRequest names the node whose intelligence block to recompute.
type SynthesizeRequest struct {
	Path string `json:"path"`
}

// TreeResponse wraps the hierarchy listing.
type TreeResponse struct {
	Nodes []index.TreeNode `json:"nodes"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes"`
	Links []index.GraphLink `json:"links"`
}
