package adapter

import (
	"context"
	"errors"

	m "mutate.dev/pkg/mutate/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStateTransition is returned when a patch state change would leave a
	// terminal state or enter a non-terminal one.
	ErrStateTransition = errors.New("invalid patch state transition")
)

// Store is the persistence port of the engine. The scheduler only uses the
// backlog methods; the management methods serve the CLI.
//
//nolint:interfacebloat // One port for the whole schema keeps wiring simple.
type Store interface {
	// IncompletePatches returns every patch still in the incomplete state,
	// ordered by id, with project configuration and file attached.
	IncompletePatches(ctx context.Context) ([]m.Patch, error)
	CountIncomplete(ctx context.Context) (int, error)
	// UpdatePatchState moves an incomplete patch into a terminal state.
	UpdatePatchState(ctx context.Context, patchID int64, state m.PatchState) error
	AddRun(ctx context.Context, run m.Run) (m.Run, error)

	CreateProject(ctx context.Context, project m.Project) (m.Project, error)
	GetProject(ctx context.Context, id int64) (m.Project, error)
	ListProjects(ctx context.Context) ([]m.Project, error)
	// EnsureFile returns the file record for filename, creating it if needed.
	EnsureFile(ctx context.Context, projectID int64, filename m.Path) (m.File, error)
	AddPatch(ctx context.Context, patch m.Patch) (m.Patch, error)
	GetPatch(ctx context.Context, id int64) (m.Patch, error)
	// ListPatches returns the patches of a project, or of every project when
	// projectID is zero.
	ListPatches(ctx context.Context, projectID int64) ([]m.Patch, error)
	RunsForPatch(ctx context.Context, patchID int64) ([]m.Run, error)
	StateCounts(ctx context.Context) (m.StateCounts, error)

	Close() error
}
