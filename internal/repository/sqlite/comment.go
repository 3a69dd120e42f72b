package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// CommentStore implements repository.CommentRepository.
type CommentStore struct {
	conn *sql.DB
}

// Comments returns the comment repository backed by this database.
func (db *DB) Comments() *CommentStore {
	return &CommentStore{conn: db.conn}
}

var _ repository.CommentRepository = (*CommentStore)(nil)

const commentSelect = `
	SELECT c.id, c.project_id, c.author_id, c.parent_comment_id, c.content, c.created_at, c.updated_at,
	       a.id, a.login, a.display_name, a.avatar_url
	FROM comments c
	JOIN accounts a ON a.id = c.author_id`

func scanComment(scan func(...any) error) (*model.Comment, error) {
	var c model.Comment
	err := scan(
		&c.ID, &c.ProjectID, &c.AuthorID, &c.ParentID, &c.Content,
		&c.CreatedAt, &c.UpdatedAt,
		&c.Author.ID, &c.Author.Login, &c.Author.DisplayName, &c.Author.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	row := s.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id)
	c, err := scanComment(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return c, nil
}

// ListByProject returns the flat comment rows for a project in creation
// order. Threading happens in the service layer from this list.
func (s *CommentStore) ListByProject(ctx context.Context, projectID string) ([]model.Comment, error) {
	rows, err := s.conn.QueryContext(ctx,
		commentSelect+` WHERE c.project_id = ? ORDER BY c.created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for project %s: %w", projectID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}
	return comments, nil
}

func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	now := time.Now().UTC()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comments (id, project_id, author_id, parent_comment_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.ProjectID, comment.AuthorID, comment.ParentID, comment.Content,
		comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment for project %s: %w", comment.ProjectID, err)
	}
	return nil
}
