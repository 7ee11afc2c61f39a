package domain

import (
	"context"
	"fmt"
	"log/slog"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

// Workspace is the directory tree a patch is evaluated in.
type Workspace interface {
	// Sync makes the workspace mirror project. It is a no-op when the
	// workspace already holds that project.
	Sync(ctx context.Context, project m.Project) error
	// Resolve maps an absolute path inside the project onto the workspace.
	Resolve(ctx context.Context, project m.Project, path m.Path) (m.Path, error)
	// Root is the directory commands run in.
	Root(project m.Project) m.Path
	// Invalidate forgets the synchronized project so the next Sync copies the
	// tree again.
	Invalidate()
}

// WorkerContext is an ephemeral copy of one project tree owned by exactly one
// worker. It is not safe for concurrent use.
type WorkerContext struct {
	fsAdapter adapter.SourceFSAdapter
	metrics   *adapter.Metrics
	dir       m.Path
	projectID int64
	synced    bool
}

// NewWorkerContext creates the ephemeral directory. The caller must Close it.
func NewWorkerContext(ctx context.Context, fsAdapter adapter.SourceFSAdapter, metrics *adapter.Metrics) (*WorkerContext, error) {
	dir, err := fsAdapter.CreateTempDir(ctx, "mutate-workspace-*")
	if err != nil {
		slog.Error("Failed to create workspace dir", "error", err)
		return nil, fmt.Errorf("failed to create workspace dir: %w", err)
	}

	return &WorkerContext{fsAdapter: fsAdapter, metrics: metrics, dir: dir}, nil
}

// Dir returns the ephemeral directory.
func (wc *WorkerContext) Dir() m.Path {
	return wc.dir
}

// Sync implements Workspace.
func (wc *WorkerContext) Sync(ctx context.Context, project m.Project) error {
	if wc.synced && wc.projectID == project.ID {
		return nil
	}

	// A half-copied tree must never be mistaken for a synced one.
	wc.synced = false

	if err := wc.fsAdapter.ClearDir(ctx, wc.dir); err != nil {
		slog.Error("Failed to clear workspace", "dir", wc.dir, "error", err)
		return fmt.Errorf("failed to clear workspace: %w", err)
	}

	if err := wc.fsAdapter.CopyDir(ctx, project.Workdir, wc.dir); err != nil {
		slog.Error("Failed to copy project to workspace", "workdir", project.Workdir, "dir", wc.dir, "error", err)
		return fmt.Errorf("failed to copy project: %w", err)
	}

	wc.projectID = project.ID
	wc.synced = true
	wc.metrics.ObserveSync()

	slog.Debug("Synchronized workspace", "project", project.ID, "dir", wc.dir)

	return nil
}

// Resolve implements Workspace.
func (wc *WorkerContext) Resolve(ctx context.Context, project m.Project, path m.Path) (m.Path, error) {
	rel, err := wc.fsAdapter.RelPath(ctx, project.Workdir, path)
	if err != nil {
		slog.Error("Failed to get relative source path", "workdir", project.Workdir, "path", path, "error", err)
		return "", fmt.Errorf("failed to get relative source path: %w", err)
	}

	return wc.fsAdapter.JoinPath(ctx, string(wc.dir), string(rel)), nil
}

// Root implements Workspace.
func (wc *WorkerContext) Root(m.Project) m.Path {
	return wc.dir
}

// Invalidate implements Workspace.
func (wc *WorkerContext) Invalidate() {
	wc.synced = false
}

// Close removes the ephemeral directory.
func (wc *WorkerContext) Close(ctx context.Context) {
	if err := wc.fsAdapter.RemoveAll(ctx, wc.dir); err != nil {
		slog.Error("Failed to cleanup workspace", "dir", wc.dir, "error", err)
	}
}

// liveWorkspace evaluates patches directly in the project directory.
type liveWorkspace struct{}

func (liveWorkspace) Sync(context.Context, m.Project) error { return nil }

func (liveWorkspace) Resolve(_ context.Context, _ m.Project, path m.Path) (m.Path, error) {
	return path, nil
}

func (liveWorkspace) Root(project m.Project) m.Path { return project.Workdir }

func (liveWorkspace) Invalidate() {}
