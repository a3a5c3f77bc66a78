package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the project table and its index if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				template_id TEXT NOT NULL,
				schema_version INTEGER NOT NULL,
				language TEXT NOT NULL DEFAULT '',
				data JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Projects),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sgift_projects_updated_at ON %s (updated_at DESC)`,
			tablePrefix, tables.Projects),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the project table
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Projects+" CASCADE"); err != nil {
		return fmt.Errorf("drop %s: %w", tables.Projects, err)
	}
	return nil
}
