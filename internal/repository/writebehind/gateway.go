// Package writebehind buffers project saves in memory and writes them to a
// backing gateway once the burst of saves settles, or when flushed.
package writebehind

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	models "giftstudio/internal/domain/models/gift"
	"giftstudio/internal/domain/repositories"
)

// drainTimeout bounds a background drain
const drainTimeout = 30 * time.Second

// Gateway is a ProjectRepository that defers writes to backend.
// Only the latest snapshot per project id is kept.
type Gateway struct {
	backend repositories.ProjectRepository
	delay   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]models.Project
	closed  bool

	drainMu sync.Mutex // one drain at a time; deletes wait for in-flight drains

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

var _ repositories.ProjectRepository = (*Gateway)(nil)

// New wraps backend and starts the background writer
func New(backend repositories.ProjectRepository, delay time.Duration, logger *slog.Logger) *Gateway {
	g := &Gateway{
		backend: backend,
		delay:   delay,
		logger:  logger,
		pending: map[string]models.Project{},
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	g.wg.Add(1)
	go g.run()
	return g
}

// LoadProjects reads the backend and overlays snapshots not yet written
func (g *Gateway) LoadProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := g.backend.LoadProjects(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]struct{}, len(projects))
	for i, p := range projects {
		seen[p.ID] = struct{}{}
		if buffered, ok := g.pending[p.ID]; ok {
			projects[i] = buffered.Clone()
		}
	}
	for id, p := range g.pending {
		if _, ok := seen[id]; !ok {
			projects = append(projects, p.Clone())
		}
	}
	return projects, nil
}

// SaveProject buffers project and returns immediately
func (g *Gateway) SaveProject(ctx context.Context, project models.Project) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return g.backend.SaveProject(ctx, project)
	}
	g.pending[project.ID] = project.Clone()
	g.mu.Unlock()

	select {
	case g.kick <- struct{}{}:
	default:
	}
	return nil
}

// DeleteProject drops any buffered write for id and deletes it from the backend.
// It waits for an in-flight drain so a buffered copy cannot be written back afterwards.
func (g *Gateway) DeleteProject(ctx context.Context, id string) error {
	g.drainMu.Lock()
	defer g.drainMu.Unlock()

	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()

	return g.backend.DeleteProject(ctx, id)
}

// FlushPendingWrites writes every buffered snapshot now
func (g *Gateway) FlushPendingWrites(ctx context.Context) error {
	if err := g.drain(ctx); err != nil {
		return err
	}
	return g.backend.FlushPendingWrites(ctx)
}

// MigrateIfNeeded delegates to the backend
func (g *Gateway) MigrateIfNeeded(ctx context.Context, project models.Project) (models.Project, error) {
	return g.backend.MigrateIfNeeded(ctx, project)
}

// Pending returns the number of buffered snapshots
func (g *Gateway) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Close stops the background writer and flushes what is left.
// Saves after Close go straight to the backend.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	close(g.done)
	g.wg.Wait()

	return g.FlushPendingWrites(ctx)
}

func (g *Gateway) run() {
	defer g.wg.Done()

	for {
		select {
		case <-g.kick:
		case <-g.done:
			return
		}

		// Wait for the saves to settle: every new save restarts the delay.
		timer := time.NewTimer(g.delay)
	settle:
		for {
			select {
			case <-g.kick:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(g.delay)
			case <-timer.C:
				break settle
			case <-g.done:
				timer.Stop()
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := g.drain(ctx); err != nil {
			g.logger.Warn("write-behind drain failed, will retry on next save", "error", err)
		}
		cancel()
	}
}

// drain writes the buffered snapshots. Snapshots that fail to write stay
// buffered unless a newer save replaced them meanwhile.
func (g *Gateway) drain(ctx context.Context) error {
	g.drainMu.Lock()
	defer g.drainMu.Unlock()

	g.mu.Lock()
	if len(g.pending) == 0 {
		g.mu.Unlock()
		return nil
	}
	batch := g.pending
	g.pending = map[string]models.Project{}
	g.mu.Unlock()

	failed, err := g.write(ctx, batch)
	if len(failed) > 0 {
		g.mu.Lock()
		for id, p := range failed {
			if _, newer := g.pending[id]; !newer {
				g.pending[id] = p
			}
		}
		g.mu.Unlock()
	}

	if err == nil {
		g.logger.Debug("write-behind drained", "count", len(batch))
	}
	return err
}

func (g *Gateway) write(ctx context.Context, batch map[string]models.Project) (map[string]models.Project, error) {
	if saver, ok := g.backend.(repositories.BatchSaver); ok {
		projects := make([]models.Project, 0, len(batch))
		for _, p := range batch {
			projects = append(projects, p)
		}
		if err := saver.SaveProjects(ctx, projects); err != nil {
			return batch, err
		}
		return nil, nil
	}

	failed := map[string]models.Project{}
	var errs []error
	for id, p := range batch {
		if err := g.backend.SaveProject(ctx, p); err != nil {
			failed[id] = p
			errs = append(errs, err)
		}
	}
	return failed, errors.Join(errs...)
}
