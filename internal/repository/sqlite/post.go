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

// PostStore implements repository.PostRepository.
type PostStore struct {
	conn *sql.DB
}

// Posts returns the post repository backed by this database.
func (db *DB) Posts() *PostStore {
	return &PostStore{conn: db.conn}
}

var _ repository.PostRepository = (*PostStore)(nil)

// postSelect joins the author so reads come back with the projection
// clients render (login, display name, avatar).
const postSelect = `
	SELECT p.id, p.project_id, p.author_id, p.type, p.title, p.content, p.created_at, p.updated_at,
	       a.id, a.login, a.display_name, a.avatar_url
	FROM posts p
	JOIN accounts a ON a.id = p.author_id`

func scanPost(scan func(...any) error) (*model.Post, error) {
	var p model.Post
	err := scan(
		&p.ID, &p.ProjectID, &p.AuthorID, &p.Type, &p.Title, &p.Content,
		&p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Login, &p.Author.DisplayName, &p.Author.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := s.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)
	p, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return p, nil
}

// ListByProject returns all README posts for a project, newest first.
// Scores are aggregated by the service from the vote rows.
func (s *PostStore) ListByProject(ctx context.Context, projectID string) ([]model.Post, error) {
	rows, err := s.conn.QueryContext(ctx,
		postSelect+` WHERE p.project_id = ? AND p.type = ? ORDER BY p.created_at DESC`,
		projectID, model.PostTypeReadme,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts for project %s: %w", projectID, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}
	return posts, nil
}

// GetByAuthorAndProject finds the author's README for a project, enforcing
// the one-README-per-user-per-project rule at the service layer.
func (s *PostStore) GetByAuthorAndProject(ctx context.Context, authorID, projectID string) (*model.Post, error) {
	row := s.conn.QueryRowContext(ctx,
		postSelect+` WHERE p.author_id = ? AND p.project_id = ? AND p.type = ?`,
		authorID, projectID, model.PostTypeReadme,
	)
	p, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", authorID+"/"+projectID)
		}
		return nil, fmt.Errorf("sqlite: getting post by author %s project %s: %w", authorID, projectID, err)
	}
	return p, nil
}

func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	if post.Type == "" {
		post.Type = model.PostTypeReadme
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO posts (id, project_id, author_id, type, title, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.ProjectID, post.AuthorID, post.Type, post.Title, post.Content,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post for project %s: %w", post.ProjectID, err)
	}
	return nil
}

func (s *PostStore) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res, err := s.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		post.Title, post.Content, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for post update: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", post.ID)
	}
	return nil
}

// Delete removes a post and its votes.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for post delete: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	_, err = s.conn.ExecContext(ctx,
		`DELETE FROM votes WHERE target_type = ? AND target_id = ?`, model.TargetPost, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting votes for post %s: %w", id, err)
	}
	return nil
}
