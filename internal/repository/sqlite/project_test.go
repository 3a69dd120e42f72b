package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

func TestInsertDiscovered_SkipsExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	added, err := db.Projects().InsertDiscovered(ctx, []model.Project{
		{Slug: "libft", Title: "Libft", FortyTwoProjectID: 1},
		{Slug: "get_next_line", Title: "get_next_line", FortyTwoProjectID: 2},
	})
	if err != nil {
		t.Fatalf("InsertDiscovered() error = %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	// Re-discovering the same projects adds nothing.
	added, err = db.Projects().InsertDiscovered(ctx, []model.Project{
		{Slug: "libft", Title: "Libft", FortyTwoProjectID: 1},
		{Slug: "ft_printf", Title: "ft_printf", FortyTwoProjectID: 3},
	})
	if err != nil {
		t.Fatalf("InsertDiscovered() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1 (libft already known)", added)
	}
}

func TestInsertDiscovered_DefaultsCategoryAndCircle(t *testing.T) {
	db := newTestDB(t)

	project := seedProject(t, db, "libft", 1)
	if project.Category != model.CategoryOther {
		t.Errorf("Category = %q, want %q", project.Category, model.CategoryOther)
	}
	if project.Circle != model.CircleUnassigned {
		t.Errorf("Circle = %d, want %d", project.Circle, model.CircleUnassigned)
	}
}

func TestProjectList_FiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedProject(t, db, "libft", 1)
	seedProject(t, db, "ft_printf", 2)
	seedProject(t, db, "get_next_line", 3)

	cat := model.CategoryNewCore
	if _, err := db.Projects().UpdateCuration(ctx, "libft", &cat, nil); err != nil {
		t.Fatalf("curating libft: %v", err)
	}

	// category filter
	projects, total, err := db.Projects().List(ctx, repository.ListProjectsOptions{
		Category: model.CategoryNewCore, Page: 1, PerPage: 10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(projects) != 1 || projects[0].Slug != "libft" {
		t.Errorf("category filter: got %d/%d, want libft only", len(projects), total)
	}

	// substring search
	projects, total, err = db.Projects().List(ctx, repository.ListProjectsOptions{
		Search: "ft_", Page: 1, PerPage: 10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || projects[0].Slug != "ft_printf" {
		t.Errorf("search filter: got %v (total %d), want ft_printf", projects, total)
	}

	// pagination: one per page, total still reports all rows
	projects, total, err = db.Projects().List(ctx, repository.ListProjectsOptions{Page: 2, PerPage: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(projects) != 1 {
		t.Errorf("page size = %d, want 1", len(projects))
	}
}

func TestUpdateCuration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db, "libft", 1)

	circle := 0
	project, err := db.Projects().UpdateCuration(ctx, "libft", nil, &circle)
	if err != nil {
		t.Fatalf("UpdateCuration() error = %v", err)
	}
	if project.Circle != 0 {
		t.Errorf("Circle = %d, want 0", project.Circle)
	}
	// untouched field keeps its value
	if project.Category != model.CategoryOther {
		t.Errorf("Category = %q, want unchanged %q", project.Category, model.CategoryOther)
	}

	_, err = db.Projects().UpdateCuration(ctx, "ghost", nil, &circle)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestProjectGetBySlug_Counts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	project := seedProject(t, db, "libft", 1)
	author := seedAccount(t, db, "mnesic", 1042)

	if err := db.Posts().Create(ctx, &model.Post{
		ProjectID: project.ID, AuthorID: author.ID, Title: "guide", Content: "x",
	}); err != nil {
		t.Fatalf("creating post: %v", err)
	}
	if err := db.Comments().Create(ctx, &model.Comment{
		ProjectID: project.ID, AuthorID: author.ID, Content: "hello",
	}); err != nil {
		t.Fatalf("creating comment: %v", err)
	}

	got, err := db.Projects().GetBySlug(ctx, "libft")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if got.PostCount != 1 || got.CommentCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.PostCount, got.CommentCount)
	}
}
