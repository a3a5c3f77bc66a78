package services

import (
	"context"

	"giftstudio/internal/domain/models/gift"
)

// ImportResult is the structured outcome of an import; failures never surface as errors
type ImportResult struct {
	Success bool          `json:"success"`
	Project *gift.Project `json:"project,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// StateChange is published after every committed store mutation
type StateChange struct {
	CurrentID string // empty when no project is current
	Revision  uint64
}

// ProjectStore is the authoritative in-memory owner of the project collection
// and the current project.
type ProjectStore interface {
	Projects() []gift.Project
	Project(id string) (gift.Project, bool)
	CurrentProject() (gift.Project, bool)
	Revision() uint64

	CreateProject(ctx context.Context, templateID, name string) gift.Project
	UpdateProject(ctx context.Context, update gift.Update, saveImmediately bool)
	// EditProject applies fn to the project with id, current or not; false for an unknown id
	EditProject(ctx context.Context, id string, fn func(gift.Project) gift.Project, saveImmediately bool) (gift.Project, bool)
	DeleteProject(ctx context.Context, id string)
	SetCurrentProject(project *gift.Project)
	ExportProject(project gift.Project) (string, error)
	ImportProject(ctx context.Context, raw []byte) ImportResult
	SaveCurrentProject(ctx context.Context)

	// Subscribe registers fn for StateChange notifications and returns an unsubscribe func
	Subscribe(fn func(StateChange)) func()
}
