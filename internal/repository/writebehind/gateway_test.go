package writebehind

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 50 * time.Millisecond

var errBackend = errors.New("backend unavailable")

// countingBackend wraps the memory gateway and records every write
type countingBackend struct {
	*memory.ProjectRepository

	mu      sync.Mutex
	saves   []models.Project
	fail    bool
	flushes int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{ProjectRepository: memory.NewProjectRepository()}
}

func (b *countingBackend) SaveProject(ctx context.Context, p models.Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errBackend
	}
	b.saves = append(b.saves, p)
	return b.ProjectRepository.SaveProject(ctx, p)
}

func (b *countingBackend) FlushPendingWrites(ctx context.Context) error {
	b.mu.Lock()
	b.flushes++
	b.mu.Unlock()
	return nil
}

func (b *countingBackend) setFail(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

func (b *countingBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

// batchBackend also implements BatchSaver
type batchBackend struct {
	*countingBackend
	batches [][]models.Project
}

func (b *batchBackend) SaveProjects(ctx context.Context, projects []models.Project) error {
	b.mu.Lock()
	b.batches = append(b.batches, projects)
	b.mu.Unlock()
	for _, p := range projects {
		if err := b.countingBackend.SaveProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func project(id, name string) models.Project {
	return models.Project{
		ID:            id,
		Name:          name,
		SchemaVersion: models.CurrentSchemaVersion,
		Data:          models.NewProjectData(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func newGateway(t *testing.T, backend *countingBackend) *Gateway {
	t.Helper()
	g := New(backend, testDelay, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return g
}

func TestGateway_CoalescesBurst(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := newGateway(t, backend)

	for _, name := range []string{"one", "two", "three"} {
		require.NoError(t, g.SaveProject(ctx, project("p", name)))
	}
	assert.Equal(t, 1, g.Pending())
	assert.Equal(t, 0, backend.saveCount(), "saves are deferred")

	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	stored, ok := backend.Get("p")
	require.True(t, ok)
	assert.Equal(t, "three", stored.Name)
	assert.Equal(t, 0, g.Pending())
}

func TestGateway_FlushWritesImmediately(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	require.NoError(t, g.SaveProject(ctx, project("a", "A")))
	require.NoError(t, g.SaveProject(ctx, project("b", "B")))
	require.NoError(t, g.FlushPendingWrites(ctx))

	assert.Equal(t, 2, backend.saveCount())
	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 1, backend.flushes)
}

func TestGateway_UsesBatchSaver(t *testing.T) {
	ctx := context.Background()
	backend := &batchBackend{countingBackend: newCountingBackend()}
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	require.NoError(t, g.SaveProject(ctx, project("a", "A")))
	require.NoError(t, g.SaveProject(ctx, project("b", "B")))
	require.NoError(t, g.FlushPendingWrites(ctx))

	require.Len(t, backend.batches, 1)
	assert.Len(t, backend.batches[0], 2)
}

func TestGateway_SnapshotIsCopied(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	p := project("a", "A")
	require.NoError(t, g.SaveProject(ctx, p))
	p.Data.Images = append(p.Data.Images, models.MediaRef{ID: "late"})
	require.NoError(t, g.FlushPendingWrites(ctx))

	stored, _ := backend.Get("a")
	assert.Empty(t, stored.Data.Images)
}

func TestGateway_DeleteDropsPendingWrite(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	require.NoError(t, backend.ProjectRepository.SaveProject(ctx, project("a", "old")))
	require.NoError(t, g.SaveProject(ctx, project("a", "new")))
	require.NoError(t, g.DeleteProject(ctx, "a"))
	require.NoError(t, g.FlushPendingWrites(ctx))

	_, ok := backend.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, backend.saveCount())
}

func TestGateway_LoadOverlaysPending(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	require.NoError(t, backend.ProjectRepository.SaveProject(ctx, project("a", "stored")))
	require.NoError(t, backend.ProjectRepository.SaveProject(ctx, project("b", "stored")))
	require.NoError(t, g.SaveProject(ctx, project("a", "buffered")))
	require.NoError(t, g.SaveProject(ctx, project("c", "buffered")))

	projects, err := g.LoadProjects(ctx)
	require.NoError(t, err)

	names := map[string]string{}
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	assert.Equal(t, map[string]string{"a": "buffered", "b": "stored", "c": "buffered"}, names)
}

func TestGateway_FailedWritesStayBuffered(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer g.Close(ctx)

	backend.setFail(true)
	require.NoError(t, g.SaveProject(ctx, project("a", "A")))
	err := g.FlushPendingWrites(ctx)
	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, g.Pending())

	backend.setFail(false)
	require.NoError(t, g.FlushPendingWrites(ctx))
	assert.Equal(t, 0, g.Pending())
	stored, ok := backend.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", stored.Name)
}

func TestGateway_Close(t *testing.T) {
	ctx := context.Background()
	backend := newCountingBackend()
	g := New(backend, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, g.SaveProject(ctx, project("a", "A")))
	require.NoError(t, g.Close(ctx))
	assert.Equal(t, 1, backend.saveCount(), "close flushes buffered writes")
	require.NoError(t, g.Close(ctx))

	require.NoError(t, g.SaveProject(ctx, project("b", "B")))
	assert.Equal(t, 2, backend.saveCount(), "saves after close are written through")
	assert.Equal(t, 0, g.Pending())
}
