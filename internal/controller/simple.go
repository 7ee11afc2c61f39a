package controller

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	m "mutate.dev/pkg/mutate/internal/model"
)

// SimpleUI implements UI by writing plain text to the command output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait returns immediately; SimpleUI never blocks.
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayMutators prints the mutator catalog.
func (s *SimpleUI) DisplayMutators(ctx context.Context, mutators []MutatorInfo) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s", renderMutatorTable(mutators))
}

// DisplayProjects prints the registered projects.
func (s *SimpleUI) DisplayProjects(ctx context.Context, projects []m.Project) {
	if ctx.Err() != nil {
		return
	}

	if len(projects) == 0 {
		s.printf("No projects registered\n")
		return
	}

	s.printf("%s", renderProjectTable(projects))
}

// DisplayGenerated prints the patches generated per file.
func (s *SimpleUI) DisplayGenerated(ctx context.Context, project m.Project, counts map[m.Path]int, total int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Generated %d patch(es) for project %s\n\n%s", total, project.Name, renderGeneratedTable(counts, total))
}

// DisplaySchedulerInfo shows the scheduling strategy about to run.
func (s *SimpleUI) DisplaySchedulerInfo(ctx context.Context, mode string, workers int, pending int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Evaluating %d patch(es) %s with %d worker(s)\n", pending, mode, workers)
}

// DisplayPatchResult prints one evaluated patch. Survivors also show their
// diff.
func (s *SimpleUI) DisplayPatchResult(ctx context.Context, patch m.Patch, state m.PatchState, runs []m.Run, err error) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s\n", formatResultLine(patch, state, runs))

	if err != nil {
		s.printf("  error: %v\n", err)
	}

	if state == m.StateSurvived {
		s.printf("%s", patch.Diff)
	}
}

// DisplayMutationScore prints the state tally and the final mutation score.
func (s *SimpleUI) DisplayMutationScore(ctx context.Context, counts m.StateCounts) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\n%s", renderScoreTable(counts))
	s.printf("Mutation score: %.2f%%\n", counts.Score()*100)
}

// DisplayPatch prints a patch with its runs in the requested format.
func (s *SimpleUI) DisplayPatch(ctx context.Context, patch m.Patch, runs []m.Run, format PatchFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		out, err := renderPatchYAML(patch, runs)
		if err != nil {
			return err
		}

		s.printf("%s", out)
	default:
		s.printf("%s", renderPatchTable(patch, runs))
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func formatResultLine(patch m.Patch, state m.PatchState, runs []m.Run) string {
	file := "-"
	if patch.File != nil {
		file = string(patch.File.Filename)
	}

	return fmt.Sprintf("Patch %d (%s) %s:%d -> %s [%d run(s)]", patch.ID, patch.MutatorID, file, patch.Line, state, len(runs))
}
