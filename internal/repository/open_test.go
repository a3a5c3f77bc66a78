package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"giftstudio/internal/config"
	"giftstudio/internal/repository/memory"
	redisrepo "giftstudio/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, &config.Config{StorageBackend: "memory"}, logger)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &memory.ProjectRepository{}, b.Repo)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := Open(ctx, &config.Config{StorageBackend: "redis", RedisAddr: mr.Addr(), TablePrefix: "test_"}, logger)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &redisrepo.ProjectRepository{}, b.Repo)
	})

	t.Run("postgres needs a url", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{StorageBackend: "postgres"}, logger)
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{StorageBackend: "sqlite"}, logger)
		assert.Error(t, err)
	})
}
