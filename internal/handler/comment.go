package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/service"
)

// CommentHandler serves the threaded discussion under a project.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleList returns the project's full comment tree: roots ordered by
// descending score, replies nested recursively.
//
// HTTP: GET /api/projects/{slug}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tree, err := h.comments.ListTree(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": tree})
}

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"` // nil = root comment
}

// HandleCreate posts a comment or a reply.
//
// HTTP: POST /api/projects/{slug}/comments
// Auth: required
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	node, err := h.comments.Create(r.Context(), session.Account.ID, slug, req.Content, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("comment created",
		slog.String("commentID", node.ID),
		slog.String("project", slug),
		slog.Bool("isReply", req.ParentID != nil),
	)
	writeJSON(w, http.StatusCreated, node)
}
