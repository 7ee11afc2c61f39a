package adapter

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	m "mutate.dev/pkg/mutate/internal/model"
)

const defaultPatchBinary = "patch"

// PatchTool applies and reverts unified diffs against a single target file.
type PatchTool interface {
	Apply(ctx context.Context, patchFile, target m.Path) error
	Revert(ctx context.Context, patchFile, target m.Path) error
}

// PatchError carries the tool output of a failed apply or revert.
type PatchError struct {
	Target m.Path
	Output []byte
	Err    error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %s: %v", e.Target, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

// ExternalPatchTool drives the system `patch` binary through a CommandRunner.
// The explicit target argument overrides the file names in the diff header,
// so the same patch text works for the project directory and any workspace
// copy of it.
type ExternalPatchTool struct {
	runner CommandRunner
	binary string
}

// NewExternalPatchTool constructs an ExternalPatchTool. An empty binary
// selects `patch` from PATH.
func NewExternalPatchTool(runner CommandRunner, binary string) *ExternalPatchTool {
	if binary == "" {
		binary = defaultPatchBinary
	}

	return &ExternalPatchTool{runner: runner, binary: binary}
}

// Apply applies patchFile to target.
func (t *ExternalPatchTool) Apply(ctx context.Context, patchFile, target m.Path) error {
	return t.run(ctx, patchFile, target, false)
}

// Revert undoes a previous Apply of patchFile on target.
func (t *ExternalPatchTool) Revert(ctx context.Context, patchFile, target m.Path) error {
	return t.run(ctx, patchFile, target, true)
}

func (t *ExternalPatchTool) run(ctx context.Context, patchFile, target m.Path, reverse bool) error {
	args := []string{t.binary, "--batch", "--forward", "--ignore-whitespace", "-p1"}
	if reverse {
		args = append(args, "--reverse")
	}

	args = append(args, "--input="+string(patchFile), string(target))

	output, err := t.runner.Execute(ctx, shellquote.Join(args...), ExecOptions{Dir: "/"})
	if err != nil {
		return &PatchError{Target: target, Output: output, Err: err}
	}

	return nil
}
