package project

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"giftstudio/internal/domain/repositories"
	"giftstudio/internal/domain/services"
)

// DefaultAutosaveDelay is the debounce window between the last edit and the write
const DefaultAutosaveDelay = 3 * time.Second

// autosaveTimeout bounds a single debounced save
const autosaveTimeout = 30 * time.Second

// AutosaveScheduler is a trailing-edge debounce over store revisions: a burst
// of edits inside the delay window produces one SaveProject call carrying the
// state at fire time.
type AutosaveScheduler struct {
	store    *Store
	repo     repositories.ProjectRepository
	settings services.SettingsProvider
	delay    time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	timer       *time.Timer
	gen         uint64 // bumped on every (re)arm; a fire with an old gen is ignored
	last        services.StateChange
	seen        bool
	stopped     bool
	unsubscribe func()
}

// NewAutosaveScheduler creates a scheduler; call Start to begin watching the store
func NewAutosaveScheduler(
	store *Store,
	repo repositories.ProjectRepository,
	settings services.SettingsProvider,
	delay time.Duration,
	logger *slog.Logger,
) *AutosaveScheduler {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &AutosaveScheduler{
		store:    store,
		repo:     repo,
		settings: settings,
		delay:    delay,
		logger:   logger,
	}
}

// Start subscribes to store changes
func (a *AutosaveScheduler) Start() {
	unsubscribe := a.store.Subscribe(a.onChange)

	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.mu.Unlock()

	a.logger.Info("autosave scheduler started", "delay", a.delay)
}

// Close stops watching the store. An armed timer that has not fired yet is
// fired immediately, then buffered gateway writes are flushed.
func (a *AutosaveScheduler) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	pending := a.timer != nil && a.timer.Stop()
	a.timer = nil
	a.gen++
	unsubscribe := a.unsubscribe
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if pending {
		a.logger.Info("saving pending autosave before shutdown")
		a.save(ctx)
	}

	return a.repo.FlushPendingWrites(ctx)
}

// Pending reports whether a debounced save is armed
func (a *AutosaveScheduler) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

func (a *AutosaveScheduler) onChange(change services.StateChange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if a.seen && change == a.last {
		return
	}
	sameProject := a.seen && change.CurrentID == a.last.CurrentID
	a.last = change
	a.seen = true

	// Disabled autosave arms nothing new, but a timer armed for this same
	// project keeps running: it saves the live value, which includes this edit.
	if change.CurrentID != "" && sameProject && !a.settings.AutosaveEnabled() {
		return
	}

	// A switch, a cleared current project or a new edit cancels the pending
	// write; the new arm below (if any) carries the later state.
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++

	if change.CurrentID == "" || !a.settings.AutosaveEnabled() {
		return
	}

	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *AutosaveScheduler) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	a.save(ctx)
}

func (a *AutosaveScheduler) save(ctx context.Context) {
	p, ok := a.store.liveSnapshot()
	if !ok {
		return
	}
	if !a.store.syncEntry(p) {
		a.logger.Debug("autosave skipped: project no longer current", "project_id", p.ID)
		return
	}

	if err := a.repo.SaveProject(ctx, p); err != nil {
		a.logger.Warn("autosave failed", "project_id", p.ID, "error", err)
		return
	}
	a.logger.Debug("project autosaved", "project_id", p.ID, "updated_at", p.UpdatedAt)
}
