package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

// memStore is an in-memory adapter.Store.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]m.Project
	files    map[int64]m.File
	patches  map[int64]m.Patch
	runs     []m.Run

	addRunErr error
	updateErr error
}

var _ adapter.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[int64]m.Project),
		files:    make(map[int64]m.File),
		patches:  make(map[int64]m.Patch),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) IncompletePatches(_ context.Context) ([]m.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patches := make([]m.Patch, 0)

	for _, patch := range s.patches {
		if patch.State == m.StateIncomplete {
			patches = append(patches, patch)
		}
	}

	sort.Slice(patches, func(i, j int) bool { return patches[i].ID < patches[j].ID })

	return patches, nil
}

func (s *memStore) CountIncomplete(ctx context.Context) (int, error) {
	patches, err := s.IncompletePatches(ctx)
	return len(patches), err
}

func (s *memStore) UpdatePatchState(_ context.Context, patchID int64, state m.PatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}

	patch, ok := s.patches[patchID]
	if !ok {
		return adapter.ErrNotFound
	}

	if !state.Terminal() || patch.State != m.StateIncomplete {
		return adapter.ErrStateTransition
	}

	patch.State = state
	s.patches[patchID] = patch

	return nil
}

func (s *memStore) AddRun(_ context.Context, run m.Run) (m.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addRunErr != nil {
		return m.Run{}, s.addRunErr
	}

	run.ID = s.id()
	s.runs = append(s.runs, run)

	return run, nil
}

func (s *memStore) CreateProject(_ context.Context, project m.Project) (m.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project.ID = s.id()
	s.projects[project.ID] = project

	return project, nil
}

func (s *memStore) GetProject(_ context.Context, id int64) (m.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok {
		return m.Project{}, adapter.ErrNotFound
	}

	return project, nil
}

func (s *memStore) ListProjects(_ context.Context) ([]m.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := make([]m.Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	return projects, nil
}

func (s *memStore) EnsureFile(_ context.Context, projectID int64, filename m.Path) (m.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range s.files {
		if file.ProjectID == projectID && file.Filename == filename {
			return file, nil
		}
	}

	file := m.File{ID: s.id(), ProjectID: projectID, Filename: filename}
	s.files[file.ID] = file

	return file, nil
}

func (s *memStore) AddPatch(_ context.Context, patch m.Patch) (m.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patch.ID = s.id()
	if patch.State == "" {
		patch.State = m.StateIncomplete
	}

	s.patches[patch.ID] = patch

	return patch, nil
}

func (s *memStore) GetPatch(_ context.Context, id int64) (m.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patch, ok := s.patches[id]
	if !ok {
		return m.Patch{}, adapter.ErrNotFound
	}

	return patch, nil
}

func (s *memStore) ListPatches(_ context.Context, projectID int64) ([]m.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patches := make([]m.Patch, 0)

	for _, patch := range s.patches {
		if projectID == 0 || patch.Project.ID == projectID {
			patches = append(patches, patch)
		}
	}

	sort.Slice(patches, func(i, j int) bool { return patches[i].ID < patches[j].ID })

	return patches, nil
}

func (s *memStore) RunsForPatch(_ context.Context, patchID int64) ([]m.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]m.Run, 0)

	for _, run := range s.runs {
		if run.PatchID == patchID {
			runs = append(runs, run)
		}
	}

	return runs, nil
}

func (s *memStore) StateCounts(ctx context.Context) (m.StateCounts, error) {
	patches, err := s.ListPatches(ctx, 0)
	if err != nil {
		return nil, err
	}

	return tallyStates(patches), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) state(t *testing.T, id int64) m.PatchState {
	t.Helper()

	patch, err := s.GetPatch(context.Background(), id)
	require.NoError(t, err)

	return patch.State
}

func (s *memStore) allRuns() []m.Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]m.Run(nil), s.runs...)
}

// execResult is the scripted outcome of one command line.
type execResult struct {
	output string
	err    error
}

// scriptRunner is an adapter.CommandRunner answering from a script. Unknown
// commands succeed with no output.
type scriptRunner struct {
	mu      sync.Mutex
	script  map[string]execResult
	calls   []string
	options []adapter.ExecOptions
}

func newScriptRunner(script map[string]execResult) *scriptRunner {
	return &scriptRunner{script: script}
}

func (r *scriptRunner) Execute(_ context.Context, commandLine string, opts adapter.ExecOptions) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, commandLine)
	r.options = append(r.options, opts)

	result := r.script[commandLine]

	return []byte(result.output), result.err
}

func (r *scriptRunner) commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

// fakePatchTool records apply/revert calls and fails for the configured
// targets.
type fakePatchTool struct {
	mu           sync.Mutex
	applied      []m.Path
	reverted     []m.Path
	patchFiles   []m.Path
	failApply    map[m.Path]bool
	failRevertOn map[int]bool // 1-based revert call numbers
	reverts      int
}

func newFakePatchTool() *fakePatchTool {
	return &fakePatchTool{failApply: make(map[m.Path]bool), failRevertOn: make(map[int]bool)}
}

func (p *fakePatchTool) Apply(_ context.Context, patchFile, target m.Path) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.patchFiles = append(p.patchFiles, patchFile)

	if p.failApply[target] {
		return &adapter.PatchError{Target: target, Output: []byte("hunk FAILED"), Err: errors.New("exit status 1")}
	}

	p.applied = append(p.applied, target)

	return nil
}

func (p *fakePatchTool) Revert(_ context.Context, _, target m.Path) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reverts++
	if p.failRevertOn[p.reverts] {
		return &adapter.PatchError{Target: target, Output: []byte("reversed hunk FAILED"), Err: errors.New("exit status 1")}
	}

	p.reverted = append(p.reverted, target)

	return nil
}

// countingFS counts full tree copies.
type countingFS struct {
	adapter.SourceFSAdapter

	copies atomic.Int32
}

func newCountingFS() *countingFS {
	return &countingFS{SourceFSAdapter: adapter.NewLocalSourceFSAdapter()}
}

func (c *countingFS) CopyDir(ctx context.Context, src, dst m.Path) error {
	c.copies.Add(1)
	return c.SourceFSAdapter.CopyDir(ctx, src, dst)
}

// stubEvaluator returns a fixed outcome per patch id and can hold
// evaluations until released.
type stubEvaluator struct {
	mu       sync.Mutex
	states   map[int64]m.PatchState
	errs     map[int64]error
	order    []int64
	started  chan int64
	release  chan struct{}
	runSteps []m.Step
}

func newStubEvaluator() *stubEvaluator {
	return &stubEvaluator{
		states:   make(map[int64]m.PatchState),
		errs:     make(map[int64]error),
		runSteps: []m.Step{m.StepBuild, m.StepTest},
	}
}

func (e *stubEvaluator) Evaluate(_ context.Context, _ Workspace, patch m.Patch, onRun RunObserver) (EvaluationResult, error) {
	if e.started != nil {
		e.started <- patch.ID
	}

	if e.release != nil {
		<-e.release
	}

	e.mu.Lock()
	e.order = append(e.order, patch.ID)
	state, ok := e.states[patch.ID]
	err := e.errs[patch.ID]
	e.mu.Unlock()

	result := EvaluationResult{PatchID: patch.ID, State: patch.State}

	if patch.File == nil {
		return result, nil
	}

	if errors.Is(err, ErrPatchApply) {
		return result, err
	}

	for _, step := range e.runSteps {
		run := m.Run{Step: step, PatchID: patch.ID, ProjectID: patch.Project.ID, Log: m.LogSuccess, Success: true}
		result.Runs = append(result.Runs, run)

		if onRun != nil {
			onRun(run)
		}
	}

	if !ok {
		state = m.StateKilled
	}

	result.State = state

	return result, err
}

func (e *stubEvaluator) evaluated() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]int64(nil), e.order...)
}

// newTestProject creates a project directory holding main.c.
func newTestProject(t *testing.T, name, source string) m.Project {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte(source), 0o600))

	return m.Project{
		Name:         name,
		Workdir:      m.Path(dir),
		BuildCommand: "build",
		TestCommand:  "test",
		CleanCommand: "clean",
	}
}

// seedPatches stores count incomplete patches against main.c of project.
func seedPatches(t *testing.T, store *memStore, project m.Project, count int) []m.Patch {
	t.Helper()

	ctx := context.Background()

	file, err := store.EnsureFile(ctx, project.ID, m.Path(filepath.Join(string(project.Workdir), "main.c")))
	require.NoError(t, err)

	patches := make([]m.Patch, 0, count)

	for i := range count {
		fileCopy := file

		patch, err := store.AddPatch(ctx, m.Patch{
			Project:   project,
			File:      &fileCopy,
			Diff:      fmt.Sprintf("diff %d\n", i),
			MutatorID: "lineDeletion",
			Line:      i + 1,
			State:     m.StateIncomplete,
		})
		require.NoError(t, err)

		patches = append(patches, patch)
	}

	return patches
}
