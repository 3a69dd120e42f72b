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

// Content limits for README posts.
const (
	MaxPostTitleLength   = 200
	MaxPostContentLength = 50000
)

// PostService manages README posts: one Markdown guide per (author, project).
type PostService struct {
	posts    repository.PostRepository
	projects repository.ProjectRepository
	votes    repository.VoteRepository
}

func NewPostService(
	posts repository.PostRepository,
	projects repository.ProjectRepository,
	votes repository.VoteRepository,
) *PostService {
	return &PostService{posts: posts, projects: projects, votes: votes}
}

// ReadmeConflictError signals that the author already has a README for the
// project. It carries the existing post so the handler can echo it in the
// 409 body and the client can switch to edit mode.
type ReadmeConflictError struct {
	Existing *model.Post
}

func (e *ReadmeConflictError) Error() string {
	return "you already have a README for this project"
}

func (e *ReadmeConflictError) Unwrap() error {
	return apperror.ErrConflict
}

// ListByProject returns the project's README posts with vote aggregates,
// highest score first.
func (s *PostService) ListByProject(ctx context.Context, projectSlug string) ([]model.Post, error) {
	project, err := s.projects.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts for %s: %w", projectSlug, err)
	}
	if len(posts) == 0 {
		return []model.Post{}, nil
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	votes, err := s.votes.ForTargets(ctx, model.TargetPost, ids)
	if err != nil {
		return nil, fmt.Errorf("service/post: loading votes for %s: %w", projectSlug, err)
	}
	score := make(map[string]int, len(posts))
	count := make(map[string]int, len(posts))
	for _, v := range votes {
		score[v.TargetID] += v.Value
		count[v.TargetID]++
	}
	for i := range posts {
		posts[i].Score = score[posts[i].ID]
		posts[i].VoteCount = count[posts[i].ID]
	}

	// Ties keep repository order (newest first).
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Score > posts[j].Score
	})

	return posts, nil
}

// Get returns one post with its vote aggregates.
func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.attachScore(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateReadme publishes the author's README for a project. At most one per
// (author, project); a second attempt returns a ReadmeConflictError carrying
// the existing post.
func (s *PostService) CreateReadme(ctx context.Context, authorID, projectSlug, title, content string) (*model.Post, error) {
	title = strings.TrimSpace(title)
	if err := validatePostFields(title, content); err != nil {
		return nil, err
	}

	project, err := s.projects.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}

	existing, err := s.posts.GetByAuthorAndProject(ctx, authorID, project.ID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/post: checking existing README: %w", err)
	}
	if existing != nil {
		return nil, &ReadmeConflictError{Existing: existing}
	}

	post := &model.Post{
		ProjectID: project.ID,
		AuthorID:  authorID,
		Type:      model.PostTypeReadme,
		Title:     title,
		Content:   content,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating README for %s: %w", projectSlug, err)
	}

	stored, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("service/post: reading back post %s: %w", post.ID, err)
	}
	return stored, nil
}

// UpdateReadme edits a post the caller owns. Nil fields are left unchanged.
func (s *PostService) UpdateReadme(ctx context.Context, authorID, projectSlug, postID string, title, content *string) (*model.Post, error) {
	post, err := s.ownedReadme(ctx, authorID, projectSlug, postID, "edit")
	if err != nil {
		return nil, err
	}

	if title != nil {
		post.Title = strings.TrimSpace(*title)
	}
	if content != nil {
		post.Content = *content
	}
	if err := validatePostFields(post.Title, post.Content); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %s: %w", postID, err)
	}

	stored, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/post: reading back post %s: %w", postID, err)
	}
	if err := s.attachScore(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteReadme removes a post the caller owns, along with its votes.
func (s *PostService) DeleteReadme(ctx context.Context, authorID, projectSlug, postID string) error {
	if _, err := s.ownedReadme(ctx, authorID, projectSlug, postID, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", postID, err)
	}
	return nil
}

// ownedReadme loads a README post addressed as projectSlug/postID and checks
// the caller owns it. A post reached through the wrong project's URL is a
// validation failure, not a not-found, matching the write endpoints' contract.
func (s *PostService) ownedReadme(ctx context.Context, authorID, projectSlug, postID, verb string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, err
	}
	if post.Type != model.PostTypeReadme || post.ProjectID != project.ID {
		return nil, apperror.ValidationFailed("postId", "post does not belong to this project")
	}
	if post.AuthorID != authorID {
		return nil, apperror.Forbidden("only the author can "+verb+" this post")
	}
	return post, nil
}

func (s *PostService) attachScore(ctx context.Context, post *model.Post) error {
	score, count, err := s.votes.Score(ctx, model.TargetPost, post.ID)
	if err != nil {
		return fmt.Errorf("service/post: scoring post %s: %w", post.ID, err)
	}
	post.Score = score
	post.VoteCount = count
	return nil
}

func validatePostFields(title, content string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxPostTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be at most %d characters", MaxPostTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		return apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxPostContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be at most %d characters", MaxPostContentLength))
	}
	return nil
}
