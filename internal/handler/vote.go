package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/amansour/praxis42/internal/auth"
	"github.com/amansour/praxis42/internal/service"
)

// VoteHandler applies votes and reports the caller's existing votes.
type VoteHandler struct {
	votes  *service.VoteService
	logger *slog.Logger
}

func NewVoteHandler(votes *service.VoteService, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, logger: logger}
}

type applyVoteRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Value      int    `json:"value"` // 1, -1, or 0 to clear
}

// HandleApply transitions the caller's vote on one target and returns what
// happened plus the recomputed score.
//
// HTTP: POST /api/votes
// Auth: required
func (h *VoteHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req applyVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.votes.Apply(r.Context(), session.Account.ID, req.TargetType, req.TargetID, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("vote applied",
		slog.String("userID", session.Account.ID),
		slog.String("target", req.TargetType+"/"+req.TargetID),
		slog.String("action", outcome.Action),
	)
	writeJSON(w, http.StatusOK, outcome)
}

// HandleUserVotes returns the caller's vote values on the requested targets.
//
// HTTP: GET /api/votes?targetType=POST&targetIds=id1,id2,id3
// Auth: optional — anonymous callers get an empty map with 200, not a 401,
// so list pages can fetch vote state unconditionally.
func (h *VoteHandler) HandleUserVotes(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"votes": map[string]int{}})
		return
	}

	q := r.URL.Query()
	targetType := q.Get("targetType")
	var targetIDs []string
	for _, id := range strings.Split(q.Get("targetIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			targetIDs = append(targetIDs, id)
		}
	}

	votes, err := h.votes.UserVotes(r.Context(), session.Account.ID, targetType, targetIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"votes": votes})
}
