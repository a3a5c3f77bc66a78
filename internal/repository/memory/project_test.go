package memory

import (
	"context"
	"testing"
	"time"

	models "giftstudio/internal/domain/models/gift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := models.Project{ID: "old", SchemaVersion: models.CurrentSchemaVersion, Data: models.NewProjectData(), UpdatedAt: t0}
	newer := models.Project{ID: "new", SchemaVersion: models.CurrentSchemaVersion, Data: models.NewProjectData(), UpdatedAt: t0.Add(time.Hour)}
	require.NoError(t, repo.SaveProject(ctx, older))
	require.NoError(t, repo.SaveProject(ctx, newer))

	projects, err := repo.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "new", projects[0].ID)
	assert.Equal(t, "old", projects[1].ID)

	require.NoError(t, repo.DeleteProject(ctx, "old"))
	require.NoError(t, repo.DeleteProject(ctx, "old"))
	_, ok := repo.Get("old")
	assert.False(t, ok)
	require.NoError(t, repo.FlushPendingWrites(ctx))
}

func TestProjectRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository()
	p := models.Project{ID: "p", Data: models.NewProjectData()}
	require.NoError(t, repo.SaveProject(ctx, p))

	p.Data.Images = append(p.Data.Images, models.MediaRef{ID: "late"})

	stored, ok := repo.Get("p")
	require.True(t, ok)
	assert.Empty(t, stored.Data.Images)
}

func TestProjectRepository_MigratesOnLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository()
	require.NoError(t, repo.SaveProject(ctx, models.Project{ID: "legacy", SchemaVersion: 1}))

	projects, err := repo.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, models.CurrentSchemaVersion, projects[0].SchemaVersion)
	assert.Equal(t, models.OverlayHeart, projects[0].Data.Overlay.Type)
}
