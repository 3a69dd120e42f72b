package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// ProjectStore implements repository.ProjectRepository.
type ProjectStore struct {
	conn *sql.DB
}

// Projects returns the project repository backed by this database.
func (db *DB) Projects() *ProjectStore {
	return &ProjectStore{conn: db.conn}
}

var _ repository.ProjectRepository = (*ProjectStore)(nil)

// GetBySlug retrieves a project plus its post/comment counts.
func (s *ProjectStore) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	var p model.Project
	err := s.conn.QueryRowContext(ctx,
		`SELECT p.id, p.slug, p.title, p.description, p.forty_two_project_id, p.category, p.circle, p.created_at,
		        (SELECT COUNT(*) FROM posts    WHERE project_id = p.id),
		        (SELECT COUNT(*) FROM comments WHERE project_id = p.id)
		 FROM projects p WHERE p.slug = ?`, slug,
	).Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.FortyTwoProjectID,
		&p.Category, &p.Circle, &p.CreatedAt, &p.PostCount, &p.CommentCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("project", slug)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", slug, err)
	}
	return &p, nil
}

// List returns a page of projects matching the filter plus the unpaginated
// total, ordered by title.
func (s *ProjectStore) List(ctx context.Context, opts repository.ListProjectsOptions) ([]model.Project, int, error) {
	where := "1=1"
	args := []any{}
	if opts.Category != "" {
		where += " AND p.category = ?"
		args = append(args, opts.Category)
	}
	if opts.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite by default.
		where += " AND p.title LIKE ?"
		args = append(args, "%"+opts.Search+"%")
	}

	var total int
	if err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects p WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting projects: %w", err)
	}

	query := `SELECT p.id, p.slug, p.title, p.description, p.forty_two_project_id, p.category, p.circle, p.created_at,
	                 (SELECT COUNT(*) FROM posts    WHERE project_id = p.id),
	                 (SELECT COUNT(*) FROM comments WHERE project_id = p.id)
	          FROM projects p WHERE ` + where + `
	          ORDER BY p.title ASC LIMIT ? OFFSET ?`
	args = append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Title, &p.Description, &p.FortyTwoProjectID,
			&p.Category, &p.Circle, &p.CreatedAt, &p.PostCount, &p.CommentCount,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating project rows: %w", err)
	}

	return projects, total, nil
}

// UpdateCuration applies the admin's category and/or circle assignment.
// Nil pointers mean "leave unchanged".
func (s *ProjectStore) UpdateCuration(ctx context.Context, slug string, category *string, circle *int) (*model.Project, error) {
	sets := []string{}
	args := []any{}
	if category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *category)
	}
	if circle != nil {
		sets = append(sets, "circle = ?")
		args = append(args, *circle)
	}
	if len(sets) == 0 {
		return s.GetBySlug(ctx, slug)
	}
	args = append(args, slug)

	res, err := s.conn.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE slug = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating project %s: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: rows affected for project update: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("project", slug)
	}
	return s.GetBySlug(ctx, slug)
}

// InsertDiscovered adds projects discovered from the 42 API, skipping rows
// whose slug or 42 project id is already present. INSERT OR IGNORE makes the
// sync race-tolerant when two requests discover the same project.
func (s *ProjectStore) InsertDiscovered(ctx context.Context, projects []model.Project) (int, error) {
	if len(projects) == 0 {
		return 0, nil
	}

	added := 0
	now := time.Now().UTC()
	for _, p := range projects {
		id := p.ID
		if id == "" {
			id = xid.New().String()
		}
		category := p.Category
		if category == "" {
			category = model.CategoryOther
		}
		res, err := s.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO projects (id, slug, title, description, forty_two_project_id, category, circle, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, p.Slug, p.Title, p.Description, p.FortyTwoProjectID, category, model.CircleUnassigned, now,
		)
		if err != nil {
			return added, fmt.Errorf("sqlite: inserting discovered project %s: %w", p.Slug, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return added, fmt.Errorf("sqlite: rows affected for discovered project: %w", err)
		}
		added += int(n)
	}
	return added, nil
}
