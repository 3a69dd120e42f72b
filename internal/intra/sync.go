package intra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// Syncer feeds projects discovered from 42-API responses into the local
// store. New projects land with category OTHER and no circle, to be curated
// by an admin later.
type Syncer struct {
	projects repository.ProjectRepository
	logger   *slog.Logger
}

func NewSyncer(projects repository.ProjectRepository, logger *slog.Logger) *Syncer {
	return &Syncer{projects: projects, logger: logger}
}

// SyncProjects records the given catalogue entries, deduplicated by 42
// project id. Returns how many were newly added.
func (s *Syncer) SyncProjects(ctx context.Context, projects []Project) (int, error) {
	if len(projects) == 0 {
		return 0, nil
	}

	seen := make(map[int64]bool, len(projects))
	rows := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if p.ID == 0 || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		rows = append(rows, model.Project{
			Slug:              p.Slug,
			Title:             p.Name,
			Description:       p.Description,
			FortyTwoProjectID: p.ID,
		})
	}

	added, err := s.projects.InsertDiscovered(ctx, rows)
	if err != nil {
		return added, fmt.Errorf("intra: syncing discovered projects: %w", err)
	}
	if added > 0 {
		s.logger.Info("discovered new projects", slog.Int("added", added))
	}
	return added, nil
}

// SyncFromUser records the projects appearing in a user's project history.
// Called when a student opens their profile, so the catalogue grows from
// real usage without a dedicated crawl.
func (s *Syncer) SyncFromUser(ctx context.Context, user *UserFull) (int, error) {
	projects := make([]Project, 0, len(user.ProjectsUsers))
	for _, pu := range user.ProjectsUsers {
		projects = append(projects, Project{
			ID:   pu.Project.ID,
			Name: pu.Project.Name,
			Slug: pu.Project.Slug,
		})
	}
	return s.SyncProjects(ctx, projects)
}
