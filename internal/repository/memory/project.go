// Package memory is an in-process persistence gateway used for local
// development and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/repositories"
)

// ProjectRepository keeps projects in a map
type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]models.Project
}

// NewProjectRepository creates an empty in-memory gateway
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{projects: map[string]models.Project{}}
}

var _ repositories.ProjectRepository = (*ProjectRepository)(nil)

// LoadProjects returns all projects, most recently updated first
func (r *ProjectRepository) LoadProjects(ctx context.Context) ([]models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		migrated, err := models.Migrate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, migrated)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// SaveProject stores a deep copy of project
func (r *ProjectRepository) SaveProject(ctx context.Context, project models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = project.Clone()
	return nil
}

// DeleteProject removes a project if present
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

// FlushPendingWrites is a no-op: writes are applied immediately
func (r *ProjectRepository) FlushPendingWrites(ctx context.Context) error {
	return nil
}

// MigrateIfNeeded upgrades project to the current schema
func (r *ProjectRepository) MigrateIfNeeded(ctx context.Context, project models.Project) (models.Project, error) {
	return models.Migrate(project)
}

// Get returns the stored copy of a project
func (r *ProjectRepository) Get(id string) (models.Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return models.Project{}, false
	}
	return p.Clone(), true
}
