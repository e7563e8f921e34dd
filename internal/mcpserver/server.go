// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Othala filing pipeline for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/vaultservice"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *vaultservice.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *vaultservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("file_note",
		mcp.WithDescription("File a classified note into the knowledge hierarchy. "+
			"The taxonomy levels (domain, area, optional topic/concept) place the note; "+
			"missing ancestor nodes are created automatically and similar existing nodes "+
			"are reused. Read the contract first via the get_note_contract tool or the "+
			"othala://note-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, unique within its target topic")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown note body")),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Taxonomy level 1, e.g. Physics")),
		mcp.WithString("area", mcp.Required(), mcp.Description("Taxonomy level 2, e.g. Quantum Mechanics")),
		mcp.WithString("topic", mcp.Description("Taxonomy level 3 (optional)")),
		mcp.WithString("concept", mcp.Description("Taxonomy level 4 (optional)")),
		mcp.WithString("prerequisites", mcp.Description("Comma-separated prerequisite concepts")),
		mcp.WithString("complexity", mcp.Description("beginner, intermediate, or advanced")),
		mcp.WithString("source", mcp.Description("Source URL or reference")),
	), s.fileNote)

	s.mcp.AddTool(mcp.NewTool("ensure_hierarchy",
		mcp.WithDescription("Materialize a taxonomy path as hierarchy nodes without filing "+
			"a note. Idempotent; returns the most specific node's path."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Taxonomy level 1")),
		mcp.WithString("area", mcp.Required(), mcp.Description("Taxonomy level 2")),
		mcp.WithString("topic", mcp.Description("Taxonomy level 3 (optional)")),
		mcp.WithString("concept", mcp.Description("Taxonomy level 4 (optional)")),
	), s.ensureHierarchy)

	s.mcp.AddTool(mcp.NewTool("read_node",
		mcp.WithDescription("Read a hierarchy node document: metadata, linked notes, children, backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative node path (e.g. Knowledge/Physics.md)")),
	), s.readNode)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through filed notes and hierarchy nodes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("List the knowledge hierarchy as an ordered set of nodes with levels and note counts."),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Othala document format contract. "+
			"Call this before filing notes to ensure correct structure."),
	), s.getNoteContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://note-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical node and leaf document formats maintained by the hierarchy engine."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func taxonomyFromArgs(req mcp.CallToolRequest) (models.TaxonomyPath, error) {
	domain, err := req.RequireString("domain")
	if err != nil {
		return models.TaxonomyPath{}, err
	}
	area, err := req.RequireString("area")
	if err != nil {
		return models.TaxonomyPath{}, err
	}
	p := models.TaxonomyPath{Domain: domain, Area: area}
	if topic, err := req.RequireString("topic"); err == nil {
		p.Topic = topic
	}
	if concept, err := req.RequireString("concept"); err == nil {
		p.Concept = concept
	}
	return p, nil
}

func (s *Server) fileNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	taxonomy, err := taxonomyFromArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lc models.LearningContext
	if prereqs, err := req.RequireString("prerequisites"); err == nil && prereqs != "" {
		for _, p := range strings.Split(prereqs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				lc.Prerequisites = append(lc.Prerequisites, p)
			}
		}
	}
	if complexity, err := req.RequireString("complexity"); err == nil {
		lc.ComplexityLevel = complexity
	}
	source := ""
	if src, err := req.RequireString("source"); err == nil {
		source = src
	}

	res, err := s.svc.FileNote(ctx, vaultservice.FileNoteRequest{
		Title:           title,
		Content:         content,
		Taxonomy:        taxonomy,
		LearningContext: lc,
		Source:          source,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ensureHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taxonomy, err := taxonomyFromArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	addr, err := s.svc.EnsurePath(ctx, taxonomy)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(addr), nil
}

func (s *Server) readNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.GetNode(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(node, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes, err := s.svc.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("hierarchy is empty"), nil
	}
	var b strings.Builder
	for _, n := range nodes {
		indent := max(n.Level-1, 0)
		fmt.Fprintf(&b, "%s%s (%d notes)\n", strings.Repeat("  ", indent), n.Title, n.NoteCount)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
