package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/service"
)

// PostHandler serves README posts scoped to a project.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// HandleList returns a project's README posts, highest score first.
//
// HTTP: GET /api/projects/{slug}/posts
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListByProject(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// HandleGet returns one post with its vote aggregates.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HandleCreate publishes the caller's README for a project.
//
// HTTP: POST /api/projects/{slug}/posts
// Auth: required
//
// A second README by the same author returns 409 with the existing post in
// the body, so the client can switch straight to edit mode.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	post, err := h.posts.CreateReadme(r.Context(), session.Account.ID, slug, req.Title, req.Content)
	if err != nil {
		var conflict *service.ReadmeConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":        "conflict",
				"message":      conflict.Error(),
				"existingPost": conflict.Existing,
			})
			return
		}
		writeError(w, err)
		return
	}

	h.logger.Info("README created",
		slog.String("postID", post.ID),
		slog.String("project", slug),
		slog.String("authorID", session.Account.ID),
	)
	writeJSON(w, http.StatusCreated, post)
}

// updatePostRequest uses pointers so a client can change the title without
// resending the content, and vice versa.
type updatePostRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// HandleUpdate edits a post the caller owns.
//
// HTTP: PATCH /api/projects/{slug}/posts/{postId}
// Auth: required, author only
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req updatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.UpdateReadme(r.Context(), session.Account.ID,
		chi.URLParam(r, "slug"), chi.URLParam(r, "postId"), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post the caller owns.
//
// HTTP: DELETE /api/projects/{slug}/posts/{postId}
// Auth: required, author only
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.posts.DeleteReadme(r.Context(), session.Account.ID,
		chi.URLParam(r, "slug"), chi.URLParam(r, "postId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
