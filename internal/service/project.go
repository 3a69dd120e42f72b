package service

import (
	"context"
	"fmt"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// Pagination bounds for the project listing.
const (
	DefaultProjectsPerPage = 50
	MaxProjectsPerPage     = 100
)

// ProjectService lists and curates curriculum projects. Rows come from the
// 42 API sync; curation (category, circle) is admin-only local state.
type ProjectService struct {
	projects repository.ProjectRepository
}

func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// ProjectPage is one page of the listing plus the unpaginated total so
// clients can render page controls.
type ProjectPage struct {
	Projects []model.Project `json:"projects"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PerPage  int             `json:"perPage"`
}

// List returns a filtered, paginated page of projects. Out-of-range paging
// inputs are clamped rather than rejected.
func (s *ProjectService) List(ctx context.Context, opts repository.ListProjectsOptions) (*ProjectPage, error) {
	if opts.Category != "" && !model.ValidCategory(opts.Category) {
		return nil, apperror.ValidationFailed("category", "unknown project category")
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = DefaultProjectsPerPage
	}
	if opts.PerPage > MaxProjectsPerPage {
		opts.PerPage = MaxProjectsPerPage
	}

	projects, total, err := s.projects.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects: %w", err)
	}
	if projects == nil {
		projects = []model.Project{}
	}

	return &ProjectPage{
		Projects: projects,
		Total:    total,
		Page:     opts.Page,
		PerPage:  opts.PerPage,
	}, nil
}

// Get returns one project by its URL slug.
func (s *ProjectService) Get(ctx context.Context, slug string) (*model.Project, error) {
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "project slug is required")
	}
	return s.projects.GetBySlug(ctx, slug)
}

// Curate updates a project's category and/or circle. Admin only; at least
// one field must be present, and unknown enum values are rejected before any
// write.
func (s *ProjectService) Curate(ctx context.Context, actor *model.Account, slug string, category *string, circle *int) (*model.Project, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperror.Forbidden("project curation requires the admin role")
	}
	if category == nil && circle == nil {
		return nil, apperror.ValidationFailed("", "nothing to update: provide category and/or circle")
	}
	if category != nil && !model.ValidCategory(*category) {
		return nil, apperror.ValidationFailed("category", "unknown project category")
	}
	if circle != nil && !model.ValidCircle(*circle) {
		return nil, apperror.ValidationFailed("circle", "circle must be -1, 0-6 or 13")
	}

	project, err := s.projects.UpdateCuration(ctx, slug, category, circle)
	if err != nil {
		return nil, err
	}
	return project, nil
}
