package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/vaultservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *vaultservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Filing pipeline.
	r.Post("/documents", h.FileNote)
	r.Post("/hierarchy/ensure", h.EnsurePath)
	r.Post("/synthesize", h.Synthesize)

	// Hierarchy reads.
	r.Get("/nodes/*", h.GetNode)
	r.Get("/tree", h.Tree)
	r.Get("/graph", h.Graph)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
