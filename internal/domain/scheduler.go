package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

// Scheduler drives the backlog of incomplete patches through a
// PatchEvaluator until it is drained or stopped.
type Scheduler interface {
	// Start launches the evaluation loop in the background. It returns false
	// when the scheduler is already running.
	Start(ctx context.Context) bool
	// Stop asks the loop to finish. Patches already being evaluated complete
	// and are persisted; nothing new is dispatched.
	Stop()
	Running() bool
	// Wait blocks until the loop started by the last Start has returned.
	Wait()
	// Count returns the number of patches still incomplete.
	Count(ctx context.Context) (int, error)
}

// errPersist marks failures to write evaluation results to the store. They
// stop the scheduling loop.
var errPersist = errors.New("failed to persist evaluation")

// ResultHandler is notified once per evaluated patch, after persistence.
type ResultHandler func(patch m.Patch, result EvaluationResult, err error)

// SchedulerOption configures a scheduler.
type SchedulerOption func(*schedulerBase)

// WithMetrics records patch outcomes on metrics.
func WithMetrics(metrics *adapter.Metrics) SchedulerOption {
	return func(s *schedulerBase) {
		s.metrics = metrics
	}
}

// WithResultHandler registers a callback for evaluated patches.
func WithResultHandler(handler ResultHandler) SchedulerOption {
	return func(s *schedulerBase) {
		s.onResult = handler
	}
}

// schedulerBase holds the lifecycle and persistence logic shared by the
// parallel and sequential strategies.
type schedulerBase struct {
	store     adapter.Store
	evaluator PatchEvaluator
	metrics   *adapter.Metrics
	onResult  ResultHandler

	running atomic.Bool

	mu        sync.Mutex
	done      chan struct{}
	stopCh    chan struct{}
	stopOnce  *sync.Once
	attempted map[int64]struct{}
}

func newSchedulerBase(store adapter.Store, evaluator PatchEvaluator, opts []SchedulerOption) schedulerBase {
	base := schedulerBase{
		store:     store,
		evaluator: evaluator,
		stopOnce:  &sync.Once{},
		stopCh:    make(chan struct{}),
		attempted: make(map[int64]struct{}),
	}

	for _, opt := range opts {
		opt(&base)
	}

	return base
}

// start runs loop in a goroutine unless a loop is already active.
func (s *schedulerBase) start(ctx context.Context, loop func(ctx context.Context)) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}

	done := make(chan struct{})

	s.mu.Lock()
	s.done = done
	s.stopCh = make(chan struct{})
	s.stopOnce = &sync.Once{}
	s.attempted = make(map[int64]struct{})
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer s.running.Store(false)

		loop(ctx)
	}()

	return true
}

// Stop implements Scheduler.
func (s *schedulerBase) Stop() {
	s.mu.Lock()
	once, stopCh := s.stopOnce, s.stopCh
	s.mu.Unlock()

	once.Do(func() { close(stopCh) })
}

// Running implements Scheduler.
func (s *schedulerBase) Running() bool {
	return s.running.Load()
}

// Wait implements Scheduler.
func (s *schedulerBase) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Count implements Scheduler.
func (s *schedulerBase) Count(ctx context.Context) (int, error) {
	return s.store.CountIncomplete(ctx)
}

func (s *schedulerBase) stopChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopCh
}

func (s *schedulerBase) stopped(ctx context.Context) bool {
	select {
	case <-s.stopChan():
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// poll returns the incomplete patches not yet attempted in this session and
// marks them attempted.
func (s *schedulerBase) poll(ctx context.Context) ([]m.Patch, error) {
	patches, err := s.store.IncompletePatches(ctx)
	if err != nil {
		slog.Error("Failed to poll incomplete patches", "error", err)
		return nil, fmt.Errorf("failed to poll incomplete patches: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := patches[:0]

	for _, patch := range patches {
		if _, seen := s.attempted[patch.ID]; seen {
			continue
		}

		s.attempted[patch.ID] = struct{}{}
		fresh = append(fresh, patch)
	}

	return fresh, nil
}

// persist stores the outcome of one evaluation. Runs are written unless
// runsPersisted reports they were already stored step by step.
func (s *schedulerBase) persist(ctx context.Context, patch m.Patch, result EvaluationResult, evalErr error, runsPersisted bool) error {
	defer func() {
		if s.onResult != nil {
			s.onResult(patch, result, evalErr)
		}
	}()

	switch {
	case evalErr == nil:
	case errors.Is(evalErr, ErrPatchApply), errors.Is(evalErr, ErrPatchRevert):
		slog.Error("Marking patch as error", "patch", patch.ID, "error", evalErr)
		result.State = m.StateError
	default:
		slog.Error("Failed to evaluate patch", "patch", patch.ID, "error", evalErr)
		return nil
	}

	if !runsPersisted {
		for _, run := range result.Runs {
			if _, err := s.store.AddRun(ctx, run); err != nil {
				slog.Error("Failed to store run", "patch", patch.ID, "step", run.Step, "error", err)
				return fmt.Errorf("%w: run: %w", errPersist, err)
			}
		}
	}

	if !result.State.Terminal() {
		return nil
	}

	if err := s.store.UpdatePatchState(ctx, patch.ID, result.State); err != nil {
		slog.Error("Failed to update patch state", "patch", patch.ID, "state", result.State, "error", err)
		return fmt.Errorf("%w: patch state: %w", errPersist, err)
	}

	s.metrics.ObservePatch(result.State)

	return nil
}
