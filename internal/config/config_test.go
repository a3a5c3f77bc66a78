package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("AUTOSAVE_DELAY", "")

	cfg := Load()
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, DefaultAutosaveDelay, cfg.AutosaveDelay)
	assert.Equal(t, DefaultWriteBehindDelay, cfg.WriteBehindDelay)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("AUTOSAVE_DELAY", "750ms")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	assert.Equal(t, "prod_", cfg.TablePrefix)
	assert.Equal(t, "postgres", cfg.StorageBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.MinIOUseSSL)

	t.Setenv("TABLE_PREFIX", "custom_")
	assert.Equal(t, "custom_", Load().TablePrefix)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTOSAVE_DELAY", "soon")
	t.Setenv("WRITE_BEHIND_DELAY", "-1s")
	t.Setenv("REDIS_DB", "zero")

	cfg := Load()
	assert.Equal(t, DefaultAutosaveDelay, cfg.AutosaveDelay)
	assert.Equal(t, DefaultWriteBehindDelay, cfg.WriteBehindDelay)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestSetupLogFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"giftstudio-2026-01-01T00-00-00.log",
		"giftstudio-2026-01-02T00-00-00.log",
		"giftstudio-2026-01-03T00-00-00.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "giftstudio-*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, f.Name())
}
