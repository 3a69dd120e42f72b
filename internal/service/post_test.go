package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
)

func newTestPostService(t *testing.T) (*PostService, *fakePosts, *fakeProjects, *fakeVotes) {
	t.Helper()
	posts := newFakePosts()
	projects := newFakeProjects()
	votes := newFakeVotes()
	projects.add("libft")
	return NewPostService(posts, projects, votes), posts, projects, votes
}

func TestCreateReadme_Success(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	post, err := svc.CreateReadme(context.Background(), "user-1", "libft", "My libft guide", "Start with memset.")
	if err != nil {
		t.Fatalf("CreateReadme() error = %v", err)
	}
	if post.ID == "" {
		t.Error("expected post to have an ID")
	}
	if post.Type != model.PostTypeReadme {
		t.Errorf("Type = %q, want %q", post.Type, model.PostTypeReadme)
	}
}

func TestCreateReadme_Validation(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	tests := []struct {
		name    string
		title   string
		content string
	}{
		{"empty title", "", "content"},
		{"whitespace title", "   ", "content"},
		{"title too long", strings.Repeat("a", MaxPostTitleLength+1), "content"},
		{"empty content", "title", ""},
		{"content too long", "title", strings.Repeat("a", MaxPostContentLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReadme(context.Background(), "user-1", "libft", tt.title, tt.content)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateReadme_SecondByOtherAuthorAllowed(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	if _, err := svc.CreateReadme(context.Background(), "user-1", "libft", "guide 1", "a"); err != nil {
		t.Fatalf("first README: %v", err)
	}
	if _, err := svc.CreateReadme(context.Background(), "user-2", "libft", "guide 2", "b"); err != nil {
		t.Errorf("different author should be allowed: %v", err)
	}
}

func TestCreateReadme_DuplicateReturnsExisting(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	first, err := svc.CreateReadme(context.Background(), "user-1", "libft", "guide", "v1")
	if err != nil {
		t.Fatalf("first README: %v", err)
	}

	_, err = svc.CreateReadme(context.Background(), "user-1", "libft", "guide again", "v2")
	if err == nil {
		t.Fatal("second README by the same author should conflict")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	var conflict *ReadmeConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("error should carry the existing post")
	}
	if conflict.Existing.ID != first.ID {
		t.Errorf("existing post = %q, want %q", conflict.Existing.ID, first.ID)
	}
}

func TestListByProject_SortedByScore(t *testing.T) {
	svc, _, _, votes := newTestPostService(t)
	ctx := context.Background()

	low, _ := svc.CreateReadme(ctx, "user-1", "libft", "low", "x")
	high, _ := svc.CreateReadme(ctx, "user-2", "libft", "high", "x")

	seedVote(t, votes, "v1", model.TargetPost, high.ID, 1)
	seedVote(t, votes, "v2", model.TargetPost, high.ID, 1)
	seedVote(t, votes, "v3", model.TargetPost, low.ID, -1)

	posts, err := svc.ListByProject(ctx, "libft")
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != high.ID {
		t.Errorf("first post = %q, want highest scored %q", posts[0].Title, "high")
	}
	if posts[0].Score != 2 || posts[1].Score != -1 {
		t.Errorf("scores = %d,%d, want 2,-1", posts[0].Score, posts[1].Score)
	}
}

func TestUpdateReadme_OwnerOnly(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)
	ctx := context.Background()

	post, _ := svc.CreateReadme(ctx, "user-1", "libft", "guide", "v1")

	newTitle := "hijacked"
	_, err := svc.UpdateReadme(ctx, "user-2", "libft", post.ID, &newTitle, nil)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestUpdateReadme_WrongProjectRejected(t *testing.T) {
	svc, _, projects, _ := newTestPostService(t)
	ctx := context.Background()

	projects.add("ft_printf")
	post, _ := svc.CreateReadme(ctx, "user-1", "libft", "guide", "v1")

	newTitle := "misfiled"
	_, err := svc.UpdateReadme(ctx, "user-1", "ft_printf", post.ID, &newTitle, nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for mismatched project", err)
	}
}

func TestUpdateReadme_PartialPatch(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)
	ctx := context.Background()

	post, _ := svc.CreateReadme(ctx, "user-1", "libft", "guide", "v1")

	newContent := "v2"
	updated, err := svc.UpdateReadme(ctx, "user-1", "libft", post.ID, nil, &newContent)
	if err != nil {
		t.Fatalf("UpdateReadme() error = %v", err)
	}
	if updated.Title != "guide" {
		t.Errorf("Title = %q, want unchanged %q", updated.Title, "guide")
	}
	if updated.Content != "v2" {
		t.Errorf("Content = %q, want %q", updated.Content, "v2")
	}
}

func TestDeleteReadme(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)
	ctx := context.Background()

	post, _ := svc.CreateReadme(ctx, "user-1", "libft", "guide", "v1")

	if err := svc.DeleteReadme(ctx, "user-2", "libft", post.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("stranger delete: error = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteReadme(ctx, "user-1", "libft", post.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.Get(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}
