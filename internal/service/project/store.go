package project

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/repositories"
	"giftstudio/internal/domain/services"
)

// DefaultLanguage is the locale given to newly created projects
const DefaultLanguage = "en"

// StoreConfig holds the collaborators of a Store
type StoreConfig struct {
	Repo      repositories.ProjectRepository
	Media     services.MediaManager // optional; nil disables media cleanup
	Validator services.ImportValidator
	Logger    *slog.Logger
	Language  string           // default language for new projects
	Now       func() time.Time // clock override for tests
}

// Store is the single in-memory owner of the project collection and the
// current project. All mutations are serialized; collaborators are never
// called while the state lock is held.
//
// Construct one with NewStore, call Load once at startup, and inject it into
// handlers and the autosave scheduler.
type Store struct {
	repo      repositories.ProjectRepository
	media     services.MediaManager
	validator services.ImportValidator
	logger    *slog.Logger
	language  string
	now       func() time.Time

	mu         sync.Mutex
	projects   []models.Project
	current    *models.Project
	revision   uint64
	seq        uint64 // bumped by every change to current or the collection
	loadGen    uint64
	tombstones map[string]struct{} // ids deleted (or being deleted) in this session

	// live mirrors current for deferred work (autosave timers, async saves),
	// which must see the value at fire time, not at scheduling time.
	live atomic.Pointer[models.Project]

	listenersMu  sync.Mutex
	listeners    map[int]func(services.StateChange)
	nextListener int
}

var _ services.ProjectStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	media := cfg.Media
	if media == nil {
		media = noopMedia{}
	}
	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		repo:       cfg.Repo,
		media:      media,
		validator:  cfg.Validator,
		logger:     logger,
		language:   language,
		now:        now,
		projects:   []models.Project{},
		tombstones: map[string]struct{}{},
		listeners:  map[int]func(services.StateChange){},
	}
}

// Load reads all projects from the persistence gateway.
// A failed load leaves the collection empty; it is logged, not returned.
// If Load is called again before an earlier call resolves, the earlier
// result is discarded. Projects already in memory win over loaded ones.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	loaded, err := s.repo.LoadProjects(ctx)
	if err != nil {
		s.logger.Error("failed to load projects, starting with empty collection", "error", err)
		loaded = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.loadGen {
		s.logger.Debug("discarding stale project load", "generation", gen)
		return
	}

	known := make(map[string]struct{}, len(s.projects))
	for _, p := range s.projects {
		known[p.ID] = struct{}{}
	}
	merged := make([]models.Project, 0, len(loaded)+len(s.projects))
	for _, p := range loaded {
		if _, ok := known[p.ID]; ok {
			continue
		}
		if _, deleted := s.tombstones[p.ID]; deleted {
			continue
		}
		merged = append(merged, p.Clone())
	}
	s.projects = append(merged, s.projects...)
	s.seq++

	s.logger.Info("projects loaded", "count", len(s.projects))
}

// Projects returns a copy of the collection in insertion order
func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Clone()
	}
	return out
}

// Project returns a copy of the collection entry with the given id
func (s *Store) Project(id string) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.projects[i].Clone(), true
	}
	return models.Project{}, false
}

// CurrentProject returns a copy of the current project
func (s *Store) CurrentProject() (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.Project{}, false
	}
	return s.current.Clone(), true
}

// Revision returns the dirty counter of the current project
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// CreateProject builds an empty project, persists and flushes it, and makes
// it current. Name and template are taken as given.
func (s *Store) CreateProject(ctx context.Context, templateID, name string) models.Project {
	now := s.now()
	p := models.Project{
		ID:            models.NewProjectID(),
		Name:          name,
		TemplateID:    templateID,
		SchemaVersion: models.CurrentSchemaVersion,
		Language:      s.language,
		Data:          models.NewProjectData(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.projects = append(s.projects, p.Clone())
	s.seq++
	s.mu.Unlock()

	s.persistAndFlush(ctx, p)
	s.SetCurrentProject(&p)

	s.logger.Info("project created",
		"project_id", p.ID,
		"template_id", templateID,
		"name", name,
	)

	return p
}

// maxUpdateAttempts bounds how often an update is re-resolved because the
// store changed while its transform was running
const maxUpdateAttempts = 8

// UpdateProject applies u, stamps updatedAt and bumps the revision by one.
// A transform with no current project is ignored with a warning.
// Transforms run on a private copy outside the state lock, so they may read
// the store; if the store changed meanwhile the transform runs again on the
// fresh value.
// With saveImmediately the committed value is persisted and flushed once the
// state change is visible to readers.
func (s *Store) UpdateProject(ctx context.Context, u models.Update, saveImmediately bool) {
	_, ok := s.commit(ctx, "", func(base *models.Project) (models.Project, bool) {
		return u.Resolve(base)
	}, saveImmediately)
	if ok {
		return
	}
	if u.IsTransform() {
		s.logger.Warn("project update ignored: transform requires a current project")
	} else {
		s.logger.Warn("project update ignored: empty update")
	}
}

// EditProject applies fn to the project with the given id and returns the
// committed value. When id is current fn sees the live current project,
// otherwise its collection entry. The target is chosen at commit time, so a
// concurrent switch of the current project cannot redirect the edit.
// Reports false for an unknown id.
func (s *Store) EditProject(ctx context.Context, id string, fn func(models.Project) models.Project, saveImmediately bool) (models.Project, bool) {
	return s.commit(ctx, id, func(base *models.Project) (models.Project, bool) {
		if base == nil {
			return models.Project{}, false
		}
		next := fn(base.Clone())
		next.ID = id
		return next, true
	}, saveImmediately)
}

// commit resolves the next value from a base snapshot outside the lock and
// stores it only if nothing changed since the snapshot was taken. The base is
// the current project when id is empty or current, else the entry for id.
func (s *Store) commit(ctx context.Context, id string, resolve func(base *models.Project) (models.Project, bool), saveImmediately bool) (models.Project, bool) {
	for attempt := 1; ; attempt++ {
		s.mu.Lock()
		seq := s.seq
		var base *models.Project
		switch {
		case id == "" || (s.current != nil && s.current.ID == id):
			if s.current != nil {
				c := s.current.Clone()
				base = &c
			}
		default:
			if i := s.indexOf(id); i >= 0 {
				c := s.projects[i].Clone()
				base = &c
			}
		}
		s.mu.Unlock()

		next, ok := resolve(base)
		if !ok {
			return models.Project{}, false
		}

		s.mu.Lock()
		if s.seq != seq && attempt < maxUpdateAttempts {
			s.mu.Unlock()
			continue
		}
		if s.seq != seq {
			s.mu.Unlock()
			s.logger.Warn("project update dropped: store kept changing", "project_id", next.ID, "attempts", attempt)
			return models.Project{}, false
		}

		next.UpdatedAt = s.now()
		s.revision++
		s.seq++

		if s.current != nil && s.current.ID == next.ID {
			c := next.Clone()
			s.current = &c
			s.live.Store(&c)
		}
		if i := s.indexOf(next.ID); i >= 0 {
			s.projects[i] = next.Clone()
		}
		change := s.stateLocked()
		s.mu.Unlock()

		s.publish(change)

		if saveImmediately {
			s.persistAndFlush(ctx, next)
		}
		return next.Clone(), true
	}
}

// DeleteProject revokes preview URLs, deletes media blobs (best-effort),
// deletes the durable record and finally drops the project from memory,
// clearing current if it still points at it. Deleting an unknown id is a no-op
// apart from the gateway calls.
func (s *Store) DeleteProject(ctx context.Context, id string) {
	s.mu.Lock()
	s.tombstones[id] = struct{}{}
	s.mu.Unlock()

	s.media.RevokeProjectPreviewURLs(id)

	if err := s.media.DeleteAllMediaForProject(ctx, id); err != nil {
		s.logger.Warn("failed to delete project media, continuing",
			"project_id", id,
			"error", err,
		)
	}

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		s.logger.Error("failed to delete project record",
			"project_id", id,
			"error", err,
		)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.projects = append(s.projects[:i:i], s.projects[i+1:]...)
		s.seq++
	}
	clearedCurrent := false
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.live.Store(nil)
		s.revision = 0
		s.seq++
		clearedCurrent = true
	}
	change := s.stateLocked()
	s.mu.Unlock()

	if clearedCurrent {
		s.publish(change)
	}

	s.logger.Info("project deleted", "project_id", id, "was_current", clearedCurrent)
}

// SetCurrentProject activates project (after running the repair pass) or,
// with nil, clears the current project. The revision resets only when the
// current identity changes, and the previous project's preview URLs are
// revoked only in that case.
func (s *Store) SetCurrentProject(project *models.Project) {
	var next *models.Project
	if project != nil {
		repaired := Repair(*project)
		next = &repaired
	}

	s.mu.Lock()
	prevID := ""
	if s.current != nil {
		prevID = s.current.ID
	}
	nextID := ""
	if next != nil {
		nextID = next.ID
	}

	if prevID != nextID {
		s.revision = 0
	}
	s.current = next
	s.live.Store(next)
	s.seq++
	change := s.stateLocked()
	s.mu.Unlock()

	if prevID != "" && prevID != nextID {
		s.media.RevokeProjectPreviewURLs(prevID)
	}

	s.publish(change)

	if prevID != nextID {
		s.logger.Debug("current project changed", "from", prevID, "to", nextID)
	}
}

// ExportProject renders project as indented JSON. It has no side effects.
func (s *Store) ExportProject(project models.Project) (string, error) {
	return ExportProject(project)
}

// ExportProject renders project as indented JSON
func ExportProject(project models.Project) (string, error) {
	b, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export project %s: %w", project.ID, err)
	}
	return string(b), nil
}

// ImportProject validates raw project JSON, migrates older schema versions,
// stamps timestamps and stores the project (persisted and flushed). It never
// returns an error: failures are reported through the result and leave the
// store untouched. An import whose id already exists replaces that entry.
func (s *Store) ImportProject(ctx context.Context, raw []byte) services.ImportResult {
	res := s.validator.ValidateImport(raw)
	if !res.IsValid || res.Project == nil {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		errMsg := strings.Join(msgs, "; ")
		if errMsg == "" {
			errMsg = "invalid project data"
		}
		s.logger.Info("project import rejected", "error", errMsg)
		return services.ImportResult{Success: false, Error: errMsg}
	}

	p := res.Project.Clone()
	if models.NeedsMigration(p) {
		migrated, err := s.repo.MigrateIfNeeded(ctx, p)
		if err != nil {
			s.logger.Warn("project import migration failed", "project_id", p.ID, "error", err)
			return services.ImportResult{Success: false, Error: fmt.Sprintf("migration failed: %v", err)}
		}
		p = migrated
	}

	now := s.now()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	s.mu.Lock()
	delete(s.tombstones, p.ID)
	if i := s.indexOf(p.ID); i >= 0 {
		s.projects[i] = p.Clone()
	} else {
		s.projects = append(s.projects, p.Clone())
	}
	s.seq++
	s.mu.Unlock()

	s.persistAndFlush(ctx, p)

	s.logger.Info("project imported",
		"project_id", p.ID,
		"schema_version", p.SchemaVersion,
	)

	return services.ImportResult{Success: true, Project: &p}
}

// SaveCurrentProject re-stamps the current project and persists and flushes
// it without going through the autosave debounce.
func (s *Store) SaveCurrentProject(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		s.logger.Debug("save requested with no current project")
		return
	}
	p := s.current.Clone()
	p.UpdatedAt = s.now()
	s.current = &p
	s.live.Store(&p)
	s.seq++
	if i := s.indexOf(p.ID); i >= 0 {
		s.projects[i] = p.Clone()
	}
	s.mu.Unlock()

	s.persistAndFlush(ctx, p)
}

// Subscribe registers fn to receive a StateChange after every committed
// mutation that can affect the current project. fn runs on the mutating
// goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(services.StateChange)) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// liveSnapshot returns the current project as of now, for deferred work only
func (s *Store) liveSnapshot() (models.Project, bool) {
	p := s.live.Load()
	if p == nil {
		return models.Project{}, false
	}
	return p.Clone(), true
}

// syncEntry writes p into its collection entry if p is still current.
// Reports false when p is stale (switched away from or deleted).
func (s *Store) syncEntry(p models.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != p.ID {
		return false
	}
	if _, deleted := s.tombstones[p.ID]; deleted {
		return false
	}
	if i := s.indexOf(p.ID); i >= 0 {
		s.projects[i] = p.Clone()
	}
	return true
}

func (s *Store) persistAndFlush(ctx context.Context, p models.Project) {
	s.mu.Lock()
	_, deleted := s.tombstones[p.ID]
	s.mu.Unlock()
	if deleted {
		s.logger.Debug("skipping save of deleted project", "project_id", p.ID)
		return
	}

	if err := s.repo.SaveProject(ctx, p); err != nil {
		s.logger.Error("failed to save project", "project_id", p.ID, "error", err)
		return
	}
	if err := s.repo.FlushPendingWrites(ctx); err != nil {
		s.logger.Error("failed to flush project writes", "project_id", p.ID, "error", err)
	}
}

func (s *Store) publish(change services.StateChange) {
	s.listenersMu.Lock()
	fns := make([]func(services.StateChange), 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if fn, ok := s.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// stateLocked must be called with s.mu held
func (s *Store) stateLocked() services.StateChange {
	change := services.StateChange{Revision: s.revision}
	if s.current != nil {
		change.CurrentID = s.current.ID
	}
	return change
}

// indexOf must be called with s.mu held
func (s *Store) indexOf(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

type noopMedia struct{}

func (noopMedia) RevokeProjectPreviewURLs(string) {}

func (noopMedia) DeleteAllMediaForProject(context.Context, string) error { return nil }

func (noopMedia) DeleteProjectVideos(context.Context, string) error { return nil }
