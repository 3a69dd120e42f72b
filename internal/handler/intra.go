package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/intra"
)

// IntraHandler proxies selected 42 API reads, discovering projects into the
// local catalogue as a side effect. The proxy keeps the API credentials
// server-side; the frontend never sees them.
type IntraHandler struct {
	client *intra.Client
	syncer *intra.Syncer
	logger *slog.Logger
}

func NewIntraHandler(client *intra.Client, syncer *intra.Syncer, logger *slog.Logger) *IntraHandler {
	return &IntraHandler{client: client, syncer: syncer, logger: logger}
}

// HandleProjects lists cursus projects from the 42 API, optionally filtered
// by a search query, and feeds anything new into the local catalogue.
//
// HTTP: GET /api/intra/projects?search=ft_&page=1&perPage=100
// Auth: required
func (h *IntraHandler) HandleProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		projects []intra.Project
		err      error
	)
	if search := q.Get("search"); search != "" {
		projects, err = h.client.SearchProjects(r.Context(), search, intra.DefaultCursusID)
	} else {
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(q.Get("perPage"))
		if perPage < 1 || perPage > 100 {
			perPage = 100
		}
		projects, err = h.client.CursusProjects(r.Context(), intra.DefaultCursusID, page, perPage)
	}
	if err != nil {
		h.logger.Error("intra projects fetch failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "failed to fetch projects from the 42 API",
		})
		return
	}

	// Discovery happens opportunistically on every read; failures here must
	// not break the proxy response.
	if added, syncErr := h.syncer.SyncProjects(r.Context(), projects); syncErr != nil {
		h.logger.Warn("project discovery sync failed", slog.String("error", syncErr.Error()))
	} else if added > 0 {
		h.logger.Info("projects discovered", slog.Int("added", added))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// HandleCampuses lists the campuses of the 42 network.
//
// HTTP: GET /api/intra/campuses
// Auth: required
func (h *IntraHandler) HandleCampuses(w http.ResponseWriter, r *http.Request) {
	campuses, err := h.client.Campuses(r.Context())
	if err != nil {
		h.logger.Error("intra campuses fetch failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "failed to fetch campuses from the 42 API",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campuses": campuses})
}

// HandleMe returns the caller's full 42 profile (cursus progress, project
// marks, campus) and syncs their project list into the catalogue.
//
// HTTP: GET /api/intra/me
// Auth: required
func (h *IntraHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var (
		user *intra.UserFull
		err  error
	)
	if session.Account.IntraID != 0 {
		user, err = h.client.FullUserByID(r.Context(), session.Account.IntraID)
	} else {
		// Accounts merged by email may predate the intra link.
		user, err = h.client.FullUserByLogin(r.Context(), session.Account.Login)
	}
	if err != nil {
		h.logger.Error("intra profile fetch failed",
			slog.String("login", session.Account.Login),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "failed to fetch profile from the 42 API",
		})
		return
	}

	if _, syncErr := h.syncer.SyncFromUser(r.Context(), user); syncErr != nil {
		h.logger.Warn("project discovery sync failed", slog.String("error", syncErr.Error()))
	}

	writeJSON(w, http.StatusOK, user)
}
