// Package redis is a key-value persistence gateway: one JSON document per
// project plus a set indexing the stored ids.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/repositories"

	goredis "github.com/redis/go-redis/v9"
)

const (
	projectKeyPrefix = "gift:project:" // project document: {prefix}gift:project:{id}
	projectIndexKey  = "gift:projects" // set of project ids: {prefix}gift:projects
)

// ProjectRepository stores projects in Redis
type ProjectRepository struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewProjectRepository creates a Redis gateway. prefix namespaces the keys
// per environment, like the table prefix of the SQL gateway.
func NewProjectRepository(client goredis.UniversalClient, prefix string, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

var (
	_ repositories.ProjectRepository = (*ProjectRepository)(nil)
	_ repositories.BatchSaver        = (*ProjectRepository)(nil)
)

// LoadProjects returns every indexed project, most recently updated first.
// Index entries whose document is gone are pruned.
func (r *ProjectRepository) LoadProjects(ctx context.Context) ([]models.Project, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	if len(ids) == 0 {
		return []models.Project{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.projectKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}

	projects := make([]models.Project, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}

		var p models.Project
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			r.logger.Warn("skipping unreadable project document", "project_id", ids[i], "error", err)
			continue
		}
		migrated, err := models.Migrate(p)
		if err != nil {
			r.logger.Warn("skipping project with unsupported schema", "project_id", ids[i], "error", err)
			continue
		}
		projects = append(projects, migrated)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			r.logger.Warn("failed to prune project index", "count", len(stale), "error", err)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

// SaveProject writes the project document and indexes it atomically
func (r *ProjectRepository) SaveProject(ctx context.Context, project models.Project) error {
	return r.SaveProjects(ctx, []models.Project{project})
}

// SaveProjects writes several projects in one MULTI/EXEC
func (r *ProjectRepository) SaveProjects(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}

	docs := make(map[string][]byte, len(projects))
	for _, p := range projects {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode project %s: %w", p.ID, err)
		}
		docs[p.ID] = data
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for id, data := range docs {
			pipe.Set(ctx, r.projectKey(id), data, 0)
			pipe.SAdd(ctx, r.indexKey(), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	return nil
}

// DeleteProject removes the document and its index entry
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.projectKey(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

// FlushPendingWrites is a no-op: pipelines are executed before returning
func (r *ProjectRepository) FlushPendingWrites(ctx context.Context) error {
	return nil
}

// MigrateIfNeeded upgrades project to the current schema
func (r *ProjectRepository) MigrateIfNeeded(ctx context.Context, project models.Project) (models.Project, error) {
	return models.Migrate(project)
}

func (r *ProjectRepository) projectKey(id string) string {
	return r.prefix + projectKeyPrefix + id
}

func (r *ProjectRepository) indexKey() string {
	return r.prefix + projectIndexKey
}
