// Package repository selects and opens the configured project gateway.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"giftstudio/internal/config"
	"giftstudio/internal/domain/repositories"
	"giftstudio/internal/repository/memory"
	"giftstudio/internal/repository/postgres"
	redisrepo "giftstudio/internal/repository/redis"

	goredis "github.com/redis/go-redis/v9"
)

// Backend is an opened durable gateway and its teardown
type Backend struct {
	Repo  repositories.ProjectRepository
	Close func()
}

// Open connects to cfg.StorageBackend. Postgres tables are created on demand.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StorageBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected", "table", tables.Projects)

		repo := postgres.NewProjectRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		})
		return &Backend{Repo: repo, Close: pool.Close}, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)

		repo := redisrepo.NewProjectRepository(client, cfg.TablePrefix, logger)
		return &Backend{Repo: repo, Close: func() { client.Close() }}, nil

	case "memory", "":
		logger.Warn("using in-memory project storage; projects are lost on restart")
		return &Backend{Repo: memory.NewProjectRepository(), Close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
