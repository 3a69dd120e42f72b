package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
)

func TestCommentListByProject_CreationOrderWithParents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	project := seedProject(t, db, "libft", 1)
	author := seedAccount(t, db, "mnesic", 1042)

	root := &model.Comment{ProjectID: project.ID, AuthorID: author.ID, Content: "root"}
	if err := db.Comments().Create(ctx, root); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	reply := &model.Comment{ProjectID: project.ID, AuthorID: author.ID, ParentID: &root.ID, Content: "reply"}
	if err := db.Comments().Create(ctx, reply); err != nil {
		t.Fatal(err)
	}

	comments, err := db.Comments().ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}
	if comments[0].Content != "root" {
		t.Errorf("first comment = %q, want root (creation order)", comments[0].Content)
	}
	if comments[0].ParentID != nil {
		t.Error("root comment must have nil ParentID")
	}
	if comments[1].ParentID == nil || *comments[1].ParentID != root.ID {
		t.Error("reply must reference its parent")
	}
	if comments[1].Author.Login != "mnesic" {
		t.Errorf("Author.Login = %q, want mnesic", comments[1].Author.Login)
	}
}

func TestCommentGetByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	project := seedProject(t, db, "libft", 1)
	author := seedAccount(t, db, "mnesic", 1042)

	comment := &model.Comment{ProjectID: project.ID, AuthorID: author.ID, Content: "hello"}
	if err := db.Comments().Create(ctx, comment); err != nil {
		t.Fatal(err)
	}

	got, err := db.Comments().GetByID(ctx, comment.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Content != "hello" || got.ProjectID != project.ID {
		t.Errorf("got %+v, want content/project round-tripped", got)
	}

	if _, err := db.Comments().GetByID(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(ghost) error = %v, want ErrNotFound", err)
	}
}
