package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/services"
	"giftstudio/internal/service/validation"
)

// fakeRepo records every gateway call
type fakeRepo struct {
	mu       sync.Mutex
	stored   map[string]models.Project
	saves    []models.Project
	deletes  []string
	flushes  int
	loadErr  error
	saveErr  error
	loadGate chan struct{} // when set, LoadProjects blocks until it is closed
	loadData []models.Project
	loads    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: map[string]models.Project{}}
}

func (r *fakeRepo) LoadProjects(ctx context.Context) ([]models.Project, error) {
	r.mu.Lock()
	r.loads++
	gate := r.loadGate
	data := r.loadData
	err := r.loadErr
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, len(data))
	for i, p := range data {
		out[i] = p.Clone()
	}
	return out, nil
}

func (r *fakeRepo) SaveProject(ctx context.Context, p models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves = append(r.saves, p.Clone())
	r.stored[p.ID] = p.Clone()
	return nil
}

func (r *fakeRepo) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, id)
	delete(r.stored, id)
	return nil
}

func (r *fakeRepo) FlushPendingWrites(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

func (r *fakeRepo) MigrateIfNeeded(ctx context.Context, p models.Project) (models.Project, error) {
	return models.Migrate(p)
}

func (r *fakeRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *fakeRepo) lastSave() models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[len(r.saves)-1].Clone()
}

func (r *fakeRepo) get(id string) (models.Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.stored[id]
	return p, ok
}

// fakeMedia counts revocations and deletions
type fakeMedia struct {
	mu        sync.Mutex
	revoked   map[string]int
	deleted   []string
	deleteErr error
	calls     []string // ordered log shared with the repo checks
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{revoked: map[string]int{}}
}

func (m *fakeMedia) RevokeProjectPreviewURLs(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id]++
	m.calls = append(m.calls, "revoke:"+id)
}

func (m *fakeMedia) DeleteAllMediaForProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	m.calls = append(m.calls, "delete-media:"+id)
	return m.deleteErr
}

func (m *fakeMedia) DeleteProjectVideos(ctx context.Context, id string) error {
	return nil
}

func (m *fakeMedia) revokeCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id]
}

// fakeSettings is a switchable autosave flag
type fakeSettings struct {
	mu      sync.Mutex
	enabled bool
}

func (s *fakeSettings) AutosaveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *fakeSettings) set(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// fakeClock advances one second on every read so timestamps always change
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store *Store
	repo  *fakeRepo
	media *fakeMedia
	clock *fakeClock
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	media := newFakeMedia()
	clock := newFakeClock()
	store := NewStore(StoreConfig{
		Repo:      repo,
		Media:     media,
		Validator: validation.NewImportValidator(),
		Logger:    discardLogger(),
		Now:       clock.Now,
	})
	return &testEnv{store: store, repo: repo, media: media, clock: clock}
}

// recorder collects published state changes
type recorder struct {
	mu      sync.Mutex
	changes []services.StateChange
}

func (r *recorder) record(c services.StateChange) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) all() []services.StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.StateChange(nil), r.changes...)
}

func ptr[T any](v T) *T { return &v }
