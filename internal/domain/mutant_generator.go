// Package domain contains the mutation engine: mutant generation, patch
// evaluation and the scheduling strategies that drive it.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"mutate.dev/pkg/mutate/internal/adapter"
	"mutate.dev/pkg/mutate/internal/domain/mutagens"
	m "mutate.dev/pkg/mutate/internal/model"
	"mutate.dev/pkg/mutate/pkg"
)

const diffContextLines = 3

// MutantGenerator turns mutator Replacements into patches carrying a
// unified diff.
type MutantGenerator interface {
	// Generate returns one incomplete patch per replacement found in file.
	Generate(ctx context.Context, project m.Project, file m.File, mutators []mutagens.Mutator) ([]m.Patch, error)
	// Spill generates the patches of every file into sink, in file order.
	Spill(ctx context.Context, project m.Project, files []m.File, mutators []mutagens.Mutator, sink pkg.FileSpill[m.Patch]) error
}

type mutantGenerator struct {
	fsAdapter adapter.SourceFSAdapter
}

// NewMutantGenerator constructs a MutantGenerator reading sources through
// fsAdapter.
func NewMutantGenerator(fsAdapter adapter.SourceFSAdapter) MutantGenerator {
	return &mutantGenerator{fsAdapter: fsAdapter}
}

func (g *mutantGenerator) Generate(ctx context.Context, project m.Project, file m.File, mutators []mutagens.Mutator) ([]m.Patch, error) {
	content, err := g.fsAdapter.ReadFile(ctx, file.Filename)
	if err != nil {
		slog.Error("Failed to read source", "path", file.Filename, "error", err)
		return nil, fmt.Errorf("failed to read %s: %w", file.Filename, err)
	}

	rel, err := g.fsAdapter.RelPath(ctx, project.Workdir, file.Filename)
	if err != nil {
		slog.Error("Source is outside the project", "workdir", project.Workdir, "path", file.Filename, "error", err)
		return nil, fmt.Errorf("failed to get relative source path: %w", err)
	}

	lines, noFinalNewline := splitSourceLines(string(content))
	patches := make([]m.Patch, 0)

	for index, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, mutator := range mutators {
			for _, replacement := range mutator.FindMutations(line) {
				diff := unifiedDiff(string(rel), lines, index, replacement, noFinalNewline)

				fileCopy := file
				patches = append(patches, m.Patch{
					Project:   project,
					File:      &fileCopy,
					Diff:      diff,
					MutatorID: mutator.ID(),
					Line:      index + 1,
					State:     m.StateIncomplete,
				})
			}
		}
	}

	slog.Debug("Generated mutants", "path", file.Filename, "count", len(patches))

	return patches, nil
}

func (g *mutantGenerator) Spill(ctx context.Context, project m.Project, files []m.File, mutators []mutagens.Mutator, sink pkg.FileSpill[m.Patch]) error {
	for _, file := range files {
		patches, err := g.Generate(ctx, project, file, mutators)
		if err != nil {
			return err
		}

		if err := sink.AppendBatch(patches); err != nil {
			return fmt.Errorf("failed to spill patches for %s: %w", file.Filename, err)
		}
	}

	return nil
}

// splitSourceLines splits content after every newline. A final line without
// newline still gets one so mutators always see terminated lines; the second
// result reports that the file itself does not end in a newline.
func splitSourceLines(content string) ([]string, bool) {
	if content == "" {
		return nil, false
	}

	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1], false
	}

	lines[len(lines)-1] += "\n"

	return lines, true
}

// unifiedDiff renders the change of lines[index] in unified format with
// a/ and b/ headers. When the file has no final newline, its last line is
// written unterminated and followed by the no-newline marker on each side
// that still ends with it, so patch restores the exact bytes on revert.
func unifiedDiff(rel string, lines []string, index int, replacement m.Replacement, noFinalNewline bool) string {
	deleted := replacement.IsDeletion() && replacement.StartCol == 0

	mutated := make([]string, 0, len(lines))
	mutated = append(mutated, lines[:index]...)

	if !deleted {
		mutated = append(mutated, replacement.Apply(lines[index]))
	}

	mutated = append(mutated, lines[index+1:]...)

	lastA, lastB := -1, -1
	if noFinalNewline {
		lastA = len(lines) - 1

		if !deleted || index != len(lines)-1 {
			lastB = len(mutated) - 1
		}
	}

	var b strings.Builder

	groups := difflib.NewMatcher(lines, mutated).GetGroupedOpCodes(diffContextLines)
	for i, group := range groups {
		if i == 0 {
			fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", rel, rel)
		}

		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", unifiedRange(first.I1, last.I2), unifiedRange(first.J1, last.J2))

		for _, code := range group {
			if code.Tag == 'e' {
				for k := code.I1; k < code.I2; k++ {
					j := code.J1 + k - code.I1
					writeDiffLine(&b, ' ', lines[k], k == lastA || j == lastB)
				}

				continue
			}

			if code.Tag == 'r' || code.Tag == 'd' {
				for k := code.I1; k < code.I2; k++ {
					writeDiffLine(&b, '-', lines[k], k == lastA)
				}
			}

			if code.Tag == 'r' || code.Tag == 'i' {
				for j := code.J1; j < code.J2; j++ {
					writeDiffLine(&b, '+', mutated[j], j == lastB)
				}
			}
		}
	}

	return b.String()
}

const noNewlineMarker = "\\ No newline at end of file\n"

func writeDiffLine(b *strings.Builder, prefix byte, line string, unterminated bool) {
	b.WriteByte(prefix)

	if !unterminated {
		b.WriteString(line)
		return
	}

	b.WriteString(strings.TrimSuffix(line, "\n"))
	b.WriteString("\n")
	b.WriteString(noNewlineMarker)
}

// unifiedRange formats a hunk range the way diff -u does.
func unifiedRange(start, stop int) string {
	beginning := start + 1
	length := stop - start

	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}

	if length == 0 {
		beginning--
	}

	return fmt.Sprintf("%d,%d", beginning, length)
}
