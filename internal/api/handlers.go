package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taskvault/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// TriggerSync handles POST /api/sync. It requests a reconciliation run and
// returns immediately; the caller polls GET /api/sync/last for the outcome.
//
//	@Summary	Trigger a reconciliation run
//	@Tags		sync
//	@Produce	json
//	@Success	202	{object}	map[string]any
//	@Failure	409	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/sync [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if started := h.svc.TriggerSync(r.Context()); !started {
		writeJSON(w, http.StatusConflict, errorBody(apperr.ErrRunInProgress.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

// LastSync handles GET /api/sync/last.
//
//	@Summary	Get the outcome of the most recently completed reconciliation run
//	@Tags		sync
//	@Produce	json
//	@Success	200	{object}	SyncStatus
//	@Security	BearerAuth
//	@Router		/sync/last [get]
func (h *Handler) LastSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.LastSyncStatus())
}

// Search handles GET /api/search.
//
//	@Summary	Full-text search across tasks, projects, and sections
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Graph handles GET /api/graph.
//
//	@Summary	Get the task/project/section link graph
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	GraphResponse
//	@Security	BearerAuth
//	@Router		/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph()
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "links": links})
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List indexed notes with pagination and filtering
//	@Tags		notes
//	@Produce	json
//	@Param		limit	query		int		false	"Page size"
//	@Param		offset	query		int		false	"Page offset"
//	@Param		kind	query		string	false	"Filter by kind (task, project, section)"
//	@Param		sort	query		string	false	"Sort field"
//	@Success	200		{object}	map[string]any
//	@Security	BearerAuth
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	kind := q.Get("kind")
	sort := q.Get("sort")

	items, total, err := h.svc.ListNotes(limit, offset, kind, sort)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": items, "total": total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary	Get a single indexed note by vault path
//	@Tags		notes
//	@Produce	json
//	@Param		path	path		string	true	"Note path"
//	@Success	200		{object}	map[string]any
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(path)
	if err != nil || note == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}
