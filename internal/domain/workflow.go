package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mutate.dev/pkg/mutate/internal/adapter"
	"mutate.dev/pkg/mutate/internal/controller"
	"mutate.dev/pkg/mutate/internal/domain/mutagens"
	m "mutate.dev/pkg/mutate/internal/model"
	"mutate.dev/pkg/mutate/pkg"
)

// ErrNoFiles is returned by Generate when no source file was given.
var ErrNoFiles = errors.New("no source files given")

// GenerateArgs selects the files and mutators for patch generation.
type GenerateArgs struct {
	ProjectID  int64
	Files      []m.Path
	MutatorIDs []string // empty selects every built-in mutator
	SpillDir   string
}

// RunArgs selects the scheduling strategy for Run.
type RunArgs struct {
	Sequential bool
	Workers    int
}

// Workflow ties the store, the engine and the UI together for the CLI.
type Workflow interface {
	AddProject(ctx context.Context, project m.Project) (m.Project, error)
	ListProjects(ctx context.Context) error
	ListMutators(ctx context.Context) error
	// Generate creates incomplete patches for the given files and returns how
	// many were stored.
	Generate(ctx context.Context, args GenerateArgs) (int, error)
	// Run evaluates the backlog until it is drained or ctx is cancelled.
	Run(ctx context.Context, args RunArgs) error
	// Status shows the state tally of one project, or of all projects when
	// projectID is zero.
	Status(ctx context.Context, projectID int64) error
	View(ctx context.Context, patchID int64, format controller.PatchFormat) error
}

type workflow struct {
	store     adapter.Store
	fsAdapter adapter.SourceFSAdapter
	ui        controller.UI
	generator MutantGenerator
	evaluator PatchEvaluator
	metrics   *adapter.Metrics
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
// metrics may be nil.
func NewWorkflow(
	store adapter.Store,
	fsAdapter adapter.SourceFSAdapter,
	ui controller.UI,
	generator MutantGenerator,
	evaluator PatchEvaluator,
	metrics *adapter.Metrics,
) Workflow {
	return &workflow{
		store:     store,
		fsAdapter: fsAdapter,
		ui:        ui,
		generator: generator,
		evaluator: evaluator,
		metrics:   metrics,
	}
}

func (w *workflow) AddProject(ctx context.Context, project m.Project) (m.Project, error) {
	project.Workdir = project.Workdir.Clean()

	created, err := w.store.CreateProject(ctx, project)
	if err != nil {
		slog.Error("Failed to create project", "name", project.Name, "error", err)
		return m.Project{}, fmt.Errorf("failed to create project %s: %w", project.Name, err)
	}

	slog.Info("Project registered", "id", created.ID, "name", created.Name, "workdir", created.Workdir)

	return created, nil
}

func (w *workflow) ListProjects(ctx context.Context) error {
	projects, err := w.store.ListProjects(ctx)
	if err != nil {
		slog.Error("Failed to list projects", "error", err)
		return fmt.Errorf("failed to list projects: %w", err)
	}

	w.ui.DisplayProjects(ctx, projects)

	return nil
}

func (w *workflow) ListMutators(ctx context.Context) error {
	mutators := mutagens.DefaultMutators()
	infos := make([]controller.MutatorInfo, 0, len(mutators))

	for _, mutator := range mutators {
		infos = append(infos, controller.MutatorInfo{
			ID:          mutator.ID(),
			Description: mutator.Description(),
			Tags:        mutator.Tags(),
		})
	}

	w.ui.DisplayMutators(ctx, infos)

	return nil
}

func (w *workflow) Generate(ctx context.Context, args GenerateArgs) (int, error) {
	if len(args.Files) == 0 {
		return 0, ErrNoFiles
	}

	project, err := w.store.GetProject(ctx, args.ProjectID)
	if err != nil {
		slog.Error("Failed to load project", "project", args.ProjectID, "error", err)
		return 0, fmt.Errorf("failed to load project %d: %w", args.ProjectID, err)
	}

	mutators, err := mutagens.Lookup(args.MutatorIDs...)
	if err != nil {
		return 0, err
	}

	files, err := w.registerFiles(ctx, project, args.Files)
	if err != nil {
		return 0, err
	}

	spill, err := pkg.NewFileSpill[m.Patch](args.SpillDir)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Warn("Failed to remove patch spill", "path", spill.Path(), "error", err)
		}
	}()

	if err := w.generator.Spill(ctx, project, files, mutators, spill); err != nil {
		slog.Error("Failed to generate patches", "project", project.ID, "error", err)
		return 0, fmt.Errorf("failed to generate patches: %w", err)
	}

	counts := make(map[m.Path]int, len(files))
	for _, file := range files {
		counts[file.Filename] = 0
	}

	stored := 0

	err = spill.Range(func(_ uint64, patch m.Patch) error {
		if _, err := w.store.AddPatch(ctx, patch); err != nil {
			return err
		}

		counts[patch.File.Filename]++
		stored++

		return nil
	})
	if err != nil {
		slog.Error("Failed to store patches", "project", project.ID, "stored", stored, "error", err)
		return stored, fmt.Errorf("failed to store patches: %w", err)
	}

	w.ui.DisplayGenerated(ctx, project, counts, stored)

	return stored, nil
}

func (w *workflow) registerFiles(ctx context.Context, project m.Project, paths []m.Path) ([]m.File, error) {
	files := make([]m.File, 0, len(paths))

	for _, path := range paths {
		abs := path.Clean()

		if _, err := w.fsAdapter.RelPath(ctx, project.Workdir, abs); err != nil {
			slog.Error("Source is outside the project", "project", project.ID, "path", abs, "error", err)
			return nil, fmt.Errorf("source %s is outside project %s: %w", abs, project.Workdir, err)
		}

		file, err := w.store.EnsureFile(ctx, project.ID, abs)
		if err != nil {
			slog.Error("Failed to register file", "project", project.ID, "path", abs, "error", err)
			return nil, fmt.Errorf("failed to register %s: %w", abs, err)
		}

		files = append(files, file)
	}

	return files, nil
}

func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	// Results of in-flight patches are still shown after an interrupt.
	uiCtx := context.WithoutCancel(ctx)

	pending, err := w.store.CountIncomplete(ctx)
	if err != nil {
		slog.Error("Failed to count pending patches", "error", err)
		return fmt.Errorf("failed to count pending patches: %w", err)
	}

	opts := []SchedulerOption{
		WithMetrics(w.metrics),
		WithResultHandler(func(patch m.Patch, result EvaluationResult, err error) {
			w.ui.DisplayPatchResult(uiCtx, patch, result.State, result.Runs, err)
		}),
	}

	var (
		scheduler Scheduler
		mode      = "sequential"
		workers   = 1
	)

	if args.Sequential {
		scheduler = NewSequentialScheduler(w.store, w.evaluator, opts...)
	} else {
		mode = "parallel"
		workers = max(args.Workers, 1)
		scheduler = NewParallelScheduler(w.store, w.evaluator, w.fsAdapter, workers, opts...)
	}

	if err := w.ui.Start(ctx, controller.WithRunMode(pending), controller.WithInterrupt(scheduler.Stop)); err != nil {
		slog.Error("Failed to start UI", "error", err)
		return err
	}

	w.ui.DisplaySchedulerInfo(uiCtx, mode, workers, pending)

	if pending > 0 {
		w.evaluate(ctx, scheduler)
	}

	w.ui.Close(uiCtx)
	w.ui.Wait(uiCtx)

	counts, err := w.store.StateCounts(uiCtx)
	if err != nil {
		slog.Error("Failed to count patch states", "error", err)
		return fmt.Errorf("failed to count patch states: %w", err)
	}

	w.ui.DisplayMutationScore(uiCtx, counts)

	return nil
}

// evaluate runs scheduler to completion and turns cancellation of ctx into
// a cooperative stop.
func (w *workflow) evaluate(ctx context.Context, scheduler Scheduler) {
	if !scheduler.Start(ctx) {
		return
	}

	finished := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			slog.Info("Stopping scheduler", "reason", ctx.Err())
			scheduler.Stop()
		case <-finished:
		}
	}()

	scheduler.Wait()
	close(finished)
}

func (w *workflow) Status(ctx context.Context, projectID int64) error {
	var (
		counts m.StateCounts
		err    error
	)

	if projectID == 0 {
		counts, err = w.store.StateCounts(ctx)
	} else {
		counts, err = w.projectStateCounts(ctx, projectID)
	}

	if err != nil {
		slog.Error("Failed to count patch states", "project", projectID, "error", err)
		return fmt.Errorf("failed to count patch states: %w", err)
	}

	w.ui.DisplayMutationScore(ctx, counts)

	return nil
}

func (w *workflow) projectStateCounts(ctx context.Context, projectID int64) (m.StateCounts, error) {
	if _, err := w.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	patches, err := w.store.ListPatches(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return tallyStates(patches), nil
}

func (w *workflow) View(ctx context.Context, patchID int64, format controller.PatchFormat) error {
	patch, err := w.store.GetPatch(ctx, patchID)
	if err != nil {
		slog.Error("Failed to load patch", "patch", patchID, "error", err)
		return fmt.Errorf("failed to load patch %d: %w", patchID, err)
	}

	runs, err := w.store.RunsForPatch(ctx, patchID)
	if err != nil {
		slog.Error("Failed to load runs", "patch", patchID, "error", err)
		return fmt.Errorf("failed to load runs of patch %d: %w", patchID, err)
	}

	return w.ui.DisplayPatch(ctx, patch, runs, format)
}
