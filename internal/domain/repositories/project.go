package repositories

import (
	"context"

	"giftstudio/internal/domain/models/gift"
)

// ProjectRepository is the persistence gateway for gift projects.
// Implementations own the durable copy; the in-memory store always holds the
// freshest one and pushes it here.
type ProjectRepository interface {
	// LoadProjects returns every stored project, migrated to the current schema
	LoadProjects(ctx context.Context) ([]gift.Project, error)

	// SaveProject creates or replaces a project. Buffered implementations may
	// return before the write is durable; transient failures are not surfaced.
	SaveProject(ctx context.Context, project gift.Project) error

	// DeleteProject removes the durable record. Deleting a missing id is not an error.
	DeleteProject(ctx context.Context, id string) error

	// FlushPendingWrites blocks until buffered writes have reached durable storage
	FlushPendingWrites(ctx context.Context) error

	// MigrateIfNeeded upgrades a project written with an older schema version
	MigrateIfNeeded(ctx context.Context, project gift.Project) (gift.Project, error)
}
