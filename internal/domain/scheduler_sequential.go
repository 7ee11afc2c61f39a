package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

// ErrPatchInFlight is returned by SequentialScheduler.EvaluatePatch while
// another patch is being evaluated.
var ErrPatchInFlight = errors.New("a patch is already being evaluated")

// SequentialScheduler evaluates one patch at a time directly in the project
// directory and stores every run as soon as its step finishes.
type SequentialScheduler struct {
	schedulerBase

	inFlight atomic.Bool
}

// NewSequentialScheduler constructs a SequentialScheduler.
func NewSequentialScheduler(store adapter.Store, evaluator PatchEvaluator, opts ...SchedulerOption) *SequentialScheduler {
	return &SequentialScheduler{schedulerBase: newSchedulerBase(store, evaluator, opts)}
}

// Start implements Scheduler.
func (s *SequentialScheduler) Start(ctx context.Context) bool {
	return s.start(ctx, s.loop)
}

func (s *SequentialScheduler) loop(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)

	slog.Info("Sequential scheduler started")

	for !s.stopped(ctx) {
		patches, err := s.poll(workCtx)
		if err != nil || len(patches) == 0 {
			break
		}

		for _, patch := range patches {
			if s.stopped(ctx) {
				break
			}

			// The live tree cannot be trusted once a revert failed.
			_, err := s.EvaluatePatch(workCtx, patch)
			if errors.Is(err, errPersist) || errors.Is(err, ErrPatchRevert) {
				s.Stop()
			}
		}
	}

	slog.Info("Sequential scheduler finished")
}

// EvaluatePatch evaluates a single patch in the live project tree and
// persists its runs and final state.
func (s *SequentialScheduler) EvaluatePatch(ctx context.Context, patch m.Patch) (EvaluationResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return EvaluationResult{PatchID: patch.ID, State: patch.State}, ErrPatchInFlight
	}
	defer s.inFlight.Store(false)

	var storeErr error

	onRun := func(run m.Run) {
		if storeErr != nil {
			return
		}

		if _, err := s.store.AddRun(ctx, run); err != nil {
			slog.Error("Failed to store run", "patch", patch.ID, "step", run.Step, "error", err)
			storeErr = fmt.Errorf("%w: run: %w", errPersist, err)
		}
	}

	result, evalErr := s.evaluator.Evaluate(ctx, liveWorkspace{}, patch, onRun)
	if errors.Is(evalErr, ErrPatchRevert) {
		slog.Error("Project directory still carries a mutation", "patch", patch.ID, "workdir", patch.Project.Workdir)
	}

	if err := s.persist(ctx, patch, result, evalErr, true); err != nil {
		return result, err
	}

	if storeErr != nil {
		return result, storeErr
	}

	return result, evalErr
}
