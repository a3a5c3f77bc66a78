package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProjectRepository stores projects in a single table; the template
// content lives in a JSONB column so the schema does not follow every
// template change.
type PostgresProjectRepository struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	tx        repositories.Transactor
	logger    *slog.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *RepositoryConfig) *PostgresProjectRepository {
	return &PostgresProjectRepository{
		pool:      config.Pool,
		tables:    config.Tables,
		tx:        NewPoolTransactor(config.Pool, config.Logger),
		logger:    config.Logger,
	}
}

var (
	_ repositories.ProjectRepository = (*PostgresProjectRepository)(nil)
	_ repositories.BatchSaver        = (*PostgresProjectRepository)(nil)
)

// LoadProjects returns every project, most recently updated first.
// Rows with an older schema version are migrated in memory; the migrated
// value is written back on the next save.
func (r *PostgresProjectRepository) LoadProjects(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, name, template_id, schema_version, language, data, created_at, updated_at
		FROM %s
		ORDER BY updated_at DESC
	`, r.tables.Projects)

	q := querier(ctx, r.pool)
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		var data []byte
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.TemplateID,
			&p.SchemaVersion,
			&p.Language,
			&data,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal(data, &p.Data); err != nil {
			r.logger.Warn("skipping project with unreadable data", "project_id", p.ID, "error", err)
			continue
		}

		migrated, err := models.Migrate(p)
		if err != nil {
			r.logger.Warn("skipping project with unsupported schema", "project_id", p.ID, "error", err)
			continue
		}
		projects = append(projects, migrated)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func (r *PostgresProjectRepository) upsertSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, name, template_id, schema_version, language, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			template_id = EXCLUDED.template_id,
			schema_version = EXCLUDED.schema_version,
			language = EXCLUDED.language,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, r.tables.Projects)
}

func upsertArgs(p models.Project) ([]any, error) {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, fmt.Errorf("encode project %s data: %w", p.ID, err)
	}
	return []any{p.ID, p.Name, p.TemplateID, p.SchemaVersion, p.Language, data, p.CreatedAt, p.UpdatedAt}, nil
}

// SaveProject upserts a project
func (r *PostgresProjectRepository) SaveProject(ctx context.Context, project models.Project) error {
	args, err := upsertArgs(project)
	if err != nil {
		return err
	}
	if _, err := querier(ctx, r.pool).Exec(ctx, r.upsertSQL(), args...); err != nil {
		return fmt.Errorf("save project %s: %w", project.ID, err)
	}
	return nil
}

// SaveProjects upserts several projects as one pipelined batch inside a
// single transaction; either all rows land or none do.
func (r *PostgresProjectRepository) SaveProjects(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	sql := r.upsertSQL()
	for _, p := range projects {
		args, err := upsertArgs(p)
		if err != nil {
			return err
		}
		batch.Queue(sql, args...)
	}

	return r.tx.InTx(ctx, func(txCtx context.Context) error {
		results := querier(txCtx, r.pool).SendBatch(txCtx, batch)
		for _, p := range projects {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("save project %s: %w", p.ID, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close save batch: %w", err)
		}
		r.logger.Debug("saved project batch", "count", len(projects))
		return nil
	})
}

// DeleteProject removes a project row; a missing row is not an error
func (r *PostgresProjectRepository) DeleteProject(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Projects)

	q := querier(ctx, r.pool)
	result, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Debug("delete of missing project row", "project_id", id)
	}
	return nil
}

// FlushPendingWrites is a no-op: every statement commits before returning
func (r *PostgresProjectRepository) FlushPendingWrites(ctx context.Context) error {
	return nil
}

// MigrateIfNeeded upgrades project to the current schema
func (r *PostgresProjectRepository) MigrateIfNeeded(ctx context.Context, project models.Project) (models.Project, error) {
	return models.Migrate(project)
}
