package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/repository"
	"github.com/amansour/praxis42/internal/service"
)

// ProjectHandler serves the project catalogue and the admin curation
// endpoint.
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// HandleList returns a filtered, paginated project listing.
//
// HTTP: GET /api/projects?category=NEW_CORE&search=ft_&page=1&perPage=50
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := repository.ListProjectsOptions{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	// Non-numeric paging values fall back to the defaults rather than 400.
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PerPage, _ = strconv.Atoi(q.Get("perPage"))

	page, err := h.projects.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGet returns one project by slug.
//
// HTTP: GET /api/projects/{slug}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// curateRequest carries the admin curation patch. Pointer fields distinguish
// "not sent" from zero values.
type curateRequest struct {
	Category *string `json:"category"`
	Circle   *int    `json:"circle"`
}

// HandleCurate updates a project's category and/or circle.
//
// HTTP: PATCH /api/projects/{slug}
// Auth: required, admin role
func (h *ProjectHandler) HandleCurate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req curateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	project, err := h.projects.Curate(r.Context(), session.Account, slug, req.Category, req.Circle)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("project curated",
		slog.String("slug", slug),
		slog.String("adminID", session.Account.ID),
	)
	writeJSON(w, http.StatusOK, project)
}
