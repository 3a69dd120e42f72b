package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// MaxCommentLength caps a single comment body.
const MaxCommentLength = 10000

// CommentService reads and writes threaded project discussions.
//
// Comments are stored flat; the tree shape exists only in the response. That
// keeps writes trivial (one row, no tree maintenance) and concentrates all
// the threading logic in one pure function, buildTree.
type CommentService struct {
	comments repository.CommentRepository
	projects repository.ProjectRepository
	votes    repository.VoteRepository
}

func NewCommentService(
	comments repository.CommentRepository,
	projects repository.ProjectRepository,
	votes repository.VoteRepository,
) *CommentService {
	return &CommentService{comments: comments, projects: projects, votes: votes}
}

// ListTree returns the full threaded comment tree for a project: vote data
// aggregated per comment, siblings ordered by descending score.
func (s *CommentService) ListTree(ctx context.Context, projectSlug string) ([]*model.CommentNode, error) {
	project, err := s.projects.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments for %s: %w", projectSlug, err)
	}
	if len(comments) == 0 {
		return []*model.CommentNode{}, nil
	}

	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	votes, err := s.votes.ForTargets(ctx, model.TargetComment, ids)
	if err != nil {
		return nil, fmt.Errorf("service/comment: loading votes for %s: %w", projectSlug, err)
	}

	return buildTree(comments, votes), nil
}

// Create adds a comment to a project, optionally as a reply. Returns the
// created comment as a leaf node carrying its (zero) vote aggregates.
func (s *CommentService) Create(ctx context.Context, authorID, projectSlug, content string, parentID *string) (*model.CommentNode, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "comment content is required")
	}
	if len(content) > MaxCommentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("comment content must be at most %d characters", MaxCommentLength))
	}

	project, err := s.projects.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.NotFound("parent comment", *parentID)
			}
			return nil, err
		}
		if parent.ProjectID != project.ID {
			return nil, apperror.ValidationFailed("parentId", "parent comment belongs to a different project")
		}
	}

	comment := &model.Comment{
		ProjectID: project.ID,
		AuthorID:  authorID,
		ParentID:  parentID,
		Content:   content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment on %s: %w", projectSlug, err)
	}

	stored, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: reading back comment %s: %w", comment.ID, err)
	}

	return &model.CommentNode{
		ID:        stored.ID,
		Content:   stored.Content,
		Author:    stored.Author,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
		Replies:   []*model.CommentNode{},
	}, nil
}

// buildTree assembles flat comment rows into a display tree.
//
// Single pass to index children by parent id, then a recursive materialize
// from the roots. Cost is linear in comment count plus the per-level sorts.
// A comment whose parent id points at a nonexistent row is dropped silently
// along with its subtree — it can only appear through out-of-band row
// deletion, and rendering it at the root would misrepresent the thread.
//
// Sibling order is score descending, ties kept in input order (oldest
// first, since the repository returns rows by ascending creation time).
func buildTree(comments []model.Comment, votes []model.Vote) []*model.CommentNode {
	score := make(map[string]int, len(comments))
	count := make(map[string]int, len(comments))
	for _, v := range votes {
		score[v.TargetID] += v.Value
		count[v.TargetID]++
	}

	byParent := make(map[string][]*model.Comment)
	exists := make(map[string]bool, len(comments))
	for i := range comments {
		exists[comments[i].ID] = true
	}
	const rootKey = ""
	for i := range comments {
		c := &comments[i]
		key := rootKey
		if c.ParentID != nil {
			if !exists[*c.ParentID] {
				continue // orphan
			}
			key = *c.ParentID
		}
		byParent[key] = append(byParent[key], c)
	}

	var materialize func(parentKey string) []*model.CommentNode
	materialize = func(parentKey string) []*model.CommentNode {
		children := byParent[parentKey]
		nodes := make([]*model.CommentNode, 0, len(children))
		for _, c := range children {
			nodes = append(nodes, &model.CommentNode{
				ID:        c.ID,
				Content:   c.Content,
				Author:    c.Author,
				CreatedAt: c.CreatedAt,
				UpdatedAt: c.UpdatedAt,
				Score:     score[c.ID],
				VoteCount: count[c.ID],
				Replies:   materialize(c.ID),
			})
		}
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].Score > nodes[j].Score
		})
		return nodes
	}

	return materialize(rootKey)
}
