package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mutate.dev/pkg/mutate/internal/adapter"
	m "mutate.dev/pkg/mutate/internal/model"
)

var (
	// ErrPatchApply is returned when a patch could not be applied to the
	// workspace. No step ran.
	ErrPatchApply = errors.New("failed to apply patch")
	// ErrPatchRevert is returned when an applied patch could not be reverted.
	// The workspace no longer matches the project.
	ErrPatchRevert = errors.New("failed to revert patch")
)

// RunObserver is notified after every executed step.
type RunObserver func(run m.Run)

// EvaluationResult is the outcome of one patch evaluation.
type EvaluationResult struct {
	PatchID int64
	State   m.PatchState
	Runs    []m.Run
}

// PatchEvaluator applies a patch, runs the project pipeline against it and
// reverts it again.
type PatchEvaluator interface {
	Evaluate(ctx context.Context, ws Workspace, patch m.Patch, onRun RunObserver) (EvaluationResult, error)
}

type patchEvaluator struct {
	runner    adapter.CommandRunner
	patchTool adapter.PatchTool
	fsAdapter adapter.SourceFSAdapter
	metrics   *adapter.Metrics
}

// NewPatchEvaluator constructs a PatchEvaluator. metrics may be nil.
func NewPatchEvaluator(
	runner adapter.CommandRunner,
	patchTool adapter.PatchTool,
	fsAdapter adapter.SourceFSAdapter,
	metrics *adapter.Metrics,
) PatchEvaluator {
	return &patchEvaluator{
		runner:    runner,
		patchTool: patchTool,
		fsAdapter: fsAdapter,
		metrics:   metrics,
	}
}

func (e *patchEvaluator) Evaluate(ctx context.Context, ws Workspace, patch m.Patch, onRun RunObserver) (EvaluationResult, error) {
	result := EvaluationResult{PatchID: patch.ID, State: patch.State}

	if patch.File == nil {
		slog.Debug("Skipping patch without file", "patch", patch.ID)
		return result, nil
	}

	project := patch.Project

	if err := ws.Sync(ctx, project); err != nil {
		return result, err
	}

	target, err := ws.Resolve(ctx, project, patch.File.Filename)
	if err != nil {
		return result, err
	}

	patchFile, err := e.fsAdapter.CreateTempFile(ctx, "mutate-patch-*.diff", []byte(patch.Diff))
	if err != nil {
		slog.Error("Failed to write patch file", "patch", patch.ID, "error", err)
		return result, fmt.Errorf("failed to write patch file: %w", err)
	}

	defer func() {
		if err := e.fsAdapter.Remove(ctx, patchFile); err != nil {
			slog.Warn("Failed to remove patch file", "path", patchFile, "error", err)
		}
	}()

	if err := e.patchTool.Apply(ctx, patchFile, target); err != nil {
		slog.Error("Failed to apply patch", "patch", patch.ID, "target", target, "error", err)
		return result, fmt.Errorf("%w %d: %w", ErrPatchApply, patch.ID, err)
	}

	root := ws.Root(project)
	record := func(run m.Run) {
		result.Runs = append(result.Runs, run)
		e.metrics.ObserveRun(run)

		if onRun != nil {
			onRun(run)
		}
	}

	survived := true

	for _, step := range m.PipelineSteps {
		run, ran, err := e.runStep(ctx, root, patch, step)
		if err != nil {
			return result, err
		}

		if !ran {
			continue
		}

		record(run)

		if !run.Success {
			survived = false
			break
		}
	}

	if run, ran, err := e.runStep(ctx, root, patch, m.StepClean); err != nil {
		return result, err
	} else if ran {
		record(run)
	}

	if survived {
		result.State = m.StateSurvived
	} else {
		result.State = m.StateKilled
	}

	if err := e.patchTool.Revert(ctx, patchFile, target); err != nil {
		slog.Error("Failed to revert patch", "patch", patch.ID, "target", target, "error", err)
		return result, fmt.Errorf("%w %d: %w", ErrPatchRevert, patch.ID, err)
	}

	slog.Debug("Evaluated patch", "patch", patch.ID, "state", result.State, "runs", len(result.Runs))

	return result, nil
}

// runStep executes one configured step. ran is false when the project has no
// command for it.
func (e *patchEvaluator) runStep(ctx context.Context, root m.Path, patch m.Patch, step m.Step) (m.Run, bool, error) {
	command, timeout, err := patch.Project.Command(step)
	if err != nil {
		return m.Run{}, false, err
	}

	if strings.TrimSpace(command) == "" {
		return m.Run{}, false, nil
	}

	slog.Debug("Running step", "patch", patch.ID, "step", step, "command", command, "dir", root)

	start := time.Now()
	output, execErr := e.runner.Execute(ctx, command, adapter.ExecOptions{Dir: root, Timeout: timeout})
	end := time.Now()

	run := m.Run{
		Step:           step,
		PatchID:        patch.ID,
		ProjectID:      patch.Project.ID,
		TimestampStart: start,
		TimestampEnd:   end,
		Duration:       end.Sub(start),
		Output:         decodeOutput(output),
	}

	run.Log = classifyExecError(execErr)
	run.Success = run.Log == m.LogSuccess

	if execErr != nil {
		slog.Debug("Step failed", "patch", patch.ID, "step", step, "log", run.Log, "error", execErr)
	}

	return run, true, nil
}

func classifyExecError(err error) m.RunLog {
	if err == nil {
		return m.LogSuccess
	}

	var timeoutErr *adapter.TimeoutError
	if errors.As(err, &timeoutErr) {
		return m.LogTimeout
	}

	var exitErr *adapter.ExitError
	if errors.As(err, &exitErr) && exitErr.Code == m.NoChangeExitCode {
		return m.LogNoChange
	}

	return m.LogFailure
}

// decodeOutput drops invalid UTF-8 sequences.
func decodeOutput(output []byte) string {
	return strings.ToValidUTF8(string(output), "")
}
