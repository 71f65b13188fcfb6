package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with every sync/search/graph route mounted.
// authEnabled controls whether Bearer token auth is enforced. sseHandler, if
// non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/sync", h.TriggerSync)
	r.Get("/sync/last", h.LastSync)

	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
