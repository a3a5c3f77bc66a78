package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"giftstudio/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Projects string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Projects: fmt.Sprintf("%sgift_projects", prefix),
	}
}

// CreateConnectionPool creates a pgx pool for databaseURL and pings it.
//
// Behind PgBouncer in transaction mode (port 6543) prepared statements are not
// available, so the pool falls back to QueryExecModeCacheDescribe, which keeps
// the extended protocol needed for JSONB parameters. An explicit
// default_query_exec_mode in the URL wins.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// querier returns the transaction carried by ctx, or pool when there is none
func querier(ctx context.Context, pool *pgxpool.Pool) repositories.Querier {
	if tx, ok := repositories.TxFrom(ctx); ok {
		return tx
	}
	return pool
}
