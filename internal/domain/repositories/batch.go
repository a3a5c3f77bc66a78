package repositories

import (
	"context"

	"giftstudio/internal/domain/models/gift"
)

// BatchSaver is implemented by gateways that can write several projects in
// one round trip. The write-behind buffer uses it when draining.
type BatchSaver interface {
	SaveProjects(ctx context.Context, projects []gift.Project) error
}
