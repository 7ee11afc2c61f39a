package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

type resultLog struct {
	mu     sync.Mutex
	ids    []int64
	states []m.PatchState
	errs   []error
}

func (l *resultLog) handler() ResultHandler {
	return func(patch m.Patch, result EvaluationResult, err error) {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.ids = append(l.ids, patch.ID)
		l.states = append(l.states, result.State)
		l.errs = append(l.errs, err)
	}
}

func (l *resultLog) patchIDs() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]int64(nil), l.ids...)
}

func patchIDs(patches []m.Patch) []int64 {
	ids := make([]int64, 0, len(patches))
	for _, patch := range patches {
		ids = append(ids, patch.ID)
	}

	return ids
}

func waitStopped(t *testing.T, scheduler Scheduler) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not finish")
	}

	assert.False(t, scheduler.Running())
}

func newStoredProject(t *testing.T, store *memStore, name string) m.Project {
	t.Helper()

	project, err := store.CreateProject(context.Background(), newTestProject(t, name, "int x = 1;\n"))
	require.NoError(t, err)

	return project
}

func TestParallelScheduler_EvaluatesBacklogInSubmissionOrder(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 6)

	evaluator := newStubEvaluator()
	evaluator.states[patches[1].ID] = m.StateSurvived

	var results resultLog

	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 3, WithResultHandler(results.handler()))

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, patchIDs(patches), results.patchIDs())

	for i, patch := range patches {
		want := m.StateKilled
		if i == 1 {
			want = m.StateSurvived
		}

		assert.Equal(t, want, store.state(t, patch.ID), "patch %d", patch.ID)
	}

	assert.Len(t, store.allRuns(), 2*len(patches))

	count, err := scheduler.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestParallelScheduler_ApplyAndRevertFailuresBecomeErrors(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 3)

	evaluator := newStubEvaluator()
	evaluator.errs[patches[0].ID] = fmt.Errorf("%w %d: boom", ErrPatchApply, patches[0].ID)
	evaluator.errs[patches[1].ID] = fmt.Errorf("%w %d: boom", ErrPatchRevert, patches[1].ID)

	var results resultLog

	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 2, WithResultHandler(results.handler()))

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, m.StateError, store.state(t, patches[0].ID))
	assert.Equal(t, m.StateError, store.state(t, patches[1].ID))
	assert.Equal(t, m.StateKilled, store.state(t, patches[2].ID))

	runs, err := store.RunsForPatch(context.Background(), patches[1].ID)
	require.NoError(t, err)
	assert.Len(t, runs, 2, "runs of a revert failure are kept")

	results.mu.Lock()
	defer results.mu.Unlock()

	assert.Equal(t, []m.PatchState{m.StateError, m.StateError, m.StateKilled}, results.states)
	assert.ErrorIs(t, results.errs[0], ErrPatchApply)
}

func TestParallelScheduler_InertPatchDoesNotSpin(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")

	inert, err := store.AddPatch(context.Background(), m.Patch{Project: project, Diff: "", State: m.StateIncomplete})
	require.NoError(t, err)

	evaluator := newStubEvaluator()
	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 2)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, []int64{inert.ID}, evaluator.evaluated())
	assert.Equal(t, m.StateIncomplete, store.state(t, inert.ID))

	count, err := scheduler.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestParallelScheduler_StartIsIdempotent(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	seedPatches(t, store, project, 1)

	evaluator := newStubEvaluator()
	evaluator.started = make(chan int64, 1)
	evaluator.release = make(chan struct{})

	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 1)

	require.True(t, scheduler.Start(context.Background()))
	<-evaluator.started

	assert.True(t, scheduler.Running())
	assert.False(t, scheduler.Start(context.Background()))

	close(evaluator.release)
	waitStopped(t, scheduler)
}

func TestParallelScheduler_StopKeepsInFlightResults(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 4)

	evaluator := newStubEvaluator()
	evaluator.started = make(chan int64, len(patches))
	evaluator.release = make(chan struct{})

	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 1)

	require.True(t, scheduler.Start(context.Background()))
	assert.Equal(t, patches[0].ID, <-evaluator.started)

	scheduler.Stop()
	close(evaluator.release)
	waitStopped(t, scheduler)

	assert.Equal(t, m.StateKilled, store.state(t, patches[0].ID))

	for _, patch := range patches[1:] {
		assert.Equal(t, m.StateIncomplete, store.state(t, patch.ID))
	}

	count, err := scheduler.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParallelScheduler_CancelledContextStopsDispatch(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 3)

	evaluator := newStubEvaluator()
	evaluator.started = make(chan int64, len(patches))
	evaluator.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewParallelScheduler(store, evaluator, newCountingFS(), 1)

	require.True(t, scheduler.Start(ctx))
	<-evaluator.started

	cancel()
	close(evaluator.release)
	waitStopped(t, scheduler)

	assert.Equal(t, m.StateKilled, store.state(t, patches[0].ID))
	assert.Equal(t, m.StateIncomplete, store.state(t, patches[2].ID))
}

func TestParallelScheduler_PersistFailureStops(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	seedPatches(t, store, project, 3)
	store.updateErr = errors.New("disk full")

	scheduler := NewParallelScheduler(store, newStubEvaluator(), newCountingFS(), 1)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	count, err := scheduler.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestParallelScheduler_ResyncsOnProjectChangeAndRevertFailure(t *testing.T) {
	store := newMemStore()
	projectA := newStoredProject(t, store, "a")
	projectB := newStoredProject(t, store, "b")

	seedPatches(t, store, projectA, 2)
	seedPatches(t, store, projectB, 1)
	seedPatches(t, store, projectA, 1)

	fs := newCountingFS()
	tool := newFakePatchTool()
	tool.failRevertOn[1] = true
	evaluator := NewPatchEvaluator(newScriptRunner(nil), tool, fs, nil)

	scheduler := NewParallelScheduler(store, evaluator, fs, 1)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	// A1 (sync, revert fails) A2 (resync) B1 (sync) A3 (sync)
	assert.Equal(t, int32(4), fs.copies.Load())

	counts, err := store.StateCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[m.StateError])
	assert.Equal(t, 3, counts[m.StateSurvived])
}

func TestParallelScheduler_WorkerSyncsProjectOnce(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	seedPatches(t, store, project, 5)

	fs := newCountingFS()
	evaluator := NewPatchEvaluator(newScriptRunner(nil), newFakePatchTool(), fs, nil)

	scheduler := NewParallelScheduler(store, evaluator, fs, 1, WithMetrics(adapter.NewMetrics()))

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, int32(1), fs.copies.Load())
}

func TestSequentialScheduler_FIFOAndImmediateRuns(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 3)

	evaluator := newStubEvaluator()

	var results resultLog

	scheduler := NewSequentialScheduler(store, evaluator, WithResultHandler(results.handler()))

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, patchIDs(patches), evaluator.evaluated())
	assert.Equal(t, patchIDs(patches), results.patchIDs())
	assert.Len(t, store.allRuns(), 2*len(patches))

	for _, patch := range patches {
		assert.Equal(t, m.StateKilled, store.state(t, patch.ID))
	}
}

func TestSequentialScheduler_RejectsSecondPatchInFlight(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 2)

	evaluator := newStubEvaluator()
	evaluator.started = make(chan int64, 1)
	evaluator.release = make(chan struct{})

	scheduler := NewSequentialScheduler(store, evaluator)

	done := make(chan error, 1)

	go func() {
		_, err := scheduler.EvaluatePatch(context.Background(), patches[0])
		done <- err
	}()

	<-evaluator.started

	_, err := scheduler.EvaluatePatch(context.Background(), patches[1])
	require.ErrorIs(t, err, ErrPatchInFlight)

	close(evaluator.release)
	require.NoError(t, <-done)

	assert.Equal(t, m.StateKilled, store.state(t, patches[0].ID))
	assert.Equal(t, m.StateIncomplete, store.state(t, patches[1].ID))
}

func TestSequentialScheduler_PersistFailureStops(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 3)
	store.addRunErr = errors.New("disk full")

	evaluator := newStubEvaluator()
	scheduler := NewSequentialScheduler(store, evaluator)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, []int64{patches[0].ID}, evaluator.evaluated())
}

func TestSequentialScheduler_RevertFailureStops(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 2)

	evaluator := newStubEvaluator()
	evaluator.errs[patches[0].ID] = fmt.Errorf("%w %d: reversed hunk FAILED", ErrPatchRevert, patches[0].ID)

	scheduler := NewSequentialScheduler(store, evaluator)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, []int64{patches[0].ID}, evaluator.evaluated())
	assert.Equal(t, m.StateError, store.state(t, patches[0].ID))
	assert.Equal(t, m.StateIncomplete, store.state(t, patches[1].ID))
}

func TestSequentialScheduler_ApplyFailureDoesNotStall(t *testing.T) {
	store := newMemStore()
	project := newStoredProject(t, store, "demo")
	patches := seedPatches(t, store, project, 2)

	evaluator := newStubEvaluator()
	evaluator.errs[patches[0].ID] = fmt.Errorf("%w %d: boom", ErrPatchApply, patches[0].ID)

	scheduler := NewSequentialScheduler(store, evaluator)

	require.True(t, scheduler.Start(context.Background()))
	waitStopped(t, scheduler)

	assert.Equal(t, m.StateError, store.state(t, patches[0].ID))
	assert.Equal(t, m.StateKilled, store.state(t, patches[1].ID))
}
