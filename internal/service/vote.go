package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// VoteService runs the three-state vote machine. Per (user, target) the
// state is one of: no vote, upvote (+1), downvote (-1). Input value 0 means
// "clear".
type VoteService struct {
	votes    repository.VoteRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func NewVoteService(
	votes repository.VoteRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
) *VoteService {
	return &VoteService{votes: votes, posts: posts, comments: comments}
}

// VoteOutcome reports what Apply actually wrote plus the target's recomputed
// aggregate, so clients can reconcile optimistic UI state.
type VoteOutcome struct {
	Action    string `json:"action"`
	NewScore  int    `json:"newScore"`
	VoteCount int    `json:"voteCount"`
}

// Apply transitions the caller's vote on one target.
//
// TRANSITION TABLE (current state x requested value):
//
//	none     x +1/-1  -> create row        action "created"
//	none     x 0      -> nothing           action "none"
//	existing x same   -> nothing           action "none"   (idempotent retry)
//	existing x other  -> update in place   action "updated"
//	existing x 0      -> delete row        action "removed"
//
// The target is checked for existence before any write, so a vote can never
// point at nothing. The returned score is recomputed from the stored rows
// after the write, never adjusted incrementally.
func (s *VoteService) Apply(ctx context.Context, userID, targetType, targetID string, value int) (*VoteOutcome, error) {
	if !model.ValidTargetType(targetType) {
		return nil, apperror.ValidationFailed("targetType", "targetType must be POST or COMMENT")
	}
	if targetID == "" {
		return nil, apperror.ValidationFailed("targetId", "targetId is required")
	}
	if value != 1 && value != -1 && value != 0 {
		return nil, apperror.ValidationFailed("value", "value must be 1, -1 or 0")
	}

	if err := s.targetExists(ctx, targetType, targetID); err != nil {
		return nil, err
	}

	existing, err := s.votes.Get(ctx, userID, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("service/vote: reading vote state: %w", err)
	}

	action := model.VoteActionNone
	switch {
	case value == 0 && existing == nil:
		// clearing nothing; no-op
	case value == 0:
		if err := s.votes.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("service/vote: removing vote %s: %w", existing.ID, err)
		}
		action = model.VoteActionRemoved
	case existing == nil:
		vote := &model.Vote{
			UserID:     userID,
			TargetType: targetType,
			TargetID:   targetID,
			Value:      value,
		}
		if err := s.votes.Create(ctx, vote); err != nil {
			return nil, fmt.Errorf("service/vote: creating vote: %w", err)
		}
		action = model.VoteActionCreated
	case existing.Value == value:
		// same vote again; idempotent
	default:
		if err := s.votes.UpdateValue(ctx, existing.ID, value); err != nil {
			return nil, fmt.Errorf("service/vote: flipping vote %s: %w", existing.ID, err)
		}
		action = model.VoteActionUpdated
	}

	score, voteCount, err := s.votes.Score(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("service/vote: recomputing score: %w", err)
	}

	return &VoteOutcome{Action: action, NewScore: score, VoteCount: voteCount}, nil
}

// UserVotes returns the caller's vote values on the given targets, keyed by
// target id. Targets the user never voted on are simply absent. An invalid
// target type is an empty result, not an error: this read feeds list pages
// that must render regardless of what the client asked for.
func (s *VoteService) UserVotes(ctx context.Context, userID, targetType string, targetIDs []string) (map[string]int, error) {
	if !model.ValidTargetType(targetType) || len(targetIDs) == 0 {
		return map[string]int{}, nil
	}
	votes, err := s.votes.UserVotes(ctx, userID, targetType, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("service/vote: loading user votes: %w", err)
	}
	return votes, nil
}

func (s *VoteService) targetExists(ctx context.Context, targetType, targetID string) error {
	var err error
	switch targetType {
	case model.TargetPost:
		_, err = s.posts.GetByID(ctx, targetID)
	case model.TargetComment:
		_, err = s.comments.GetByID(ctx, targetID)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("vote target", targetID)
		}
		return fmt.Errorf("service/vote: checking target %s/%s: %w", targetType, targetID, err)
	}
	return nil
}
