// Package controller renders mutation testing progress and reports.
package controller

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "mutate.dev/pkg/mutate/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReport StartMode = iota
	ModeRun
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode        StartMode
	total       int
	onInterrupt func()
}

// WithReportMode sets the UI to one-shot report mode.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithRunMode sets the UI to evaluation progress mode for total patches.
func WithRunMode(total int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
		c.total = total
	}
}

// WithInterrupt registers the callback invoked when the user aborts an
// interactive session.
func WithInterrupt(fn func()) StartOption {
	return func(c *StartConfig) {
		c.onInterrupt = fn
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeReport}
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// PatchFormat selects how a single patch is rendered.
type PatchFormat string

// Supported patch formats.
const (
	FormatTable PatchFormat = "table"
	FormatYAML  PatchFormat = "yaml"
)

// ParsePatchFormat validates a user supplied format name.
func ParsePatchFormat(name string) (PatchFormat, error) {
	switch PatchFormat(name) {
	case FormatTable, FormatYAML:
		return PatchFormat(name), nil
	}

	return "", fmt.Errorf("unsupported format %q (want %s or %s)", name, FormatTable, FormatYAML)
}

// MutatorInfo describes one catalog entry for display.
type MutatorInfo struct {
	ID          string
	Description string
	Tags        []string
}

// UI presents the results of CLI operations.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish
	DisplayMutators(ctx context.Context, mutators []MutatorInfo)
	DisplayProjects(ctx context.Context, projects []m.Project)
	DisplayGenerated(ctx context.Context, project m.Project, counts map[m.Path]int, total int)
	DisplaySchedulerInfo(ctx context.Context, mode string, workers int, pending int)
	DisplayPatchResult(ctx context.Context, patch m.Patch, state m.PatchState, runs []m.Run, err error)
	DisplayMutationScore(ctx context.Context, counts m.StateCounts)
	DisplayPatch(ctx context.Context, patch m.Patch, runs []m.Run, format PatchFormat) error
}

// NewUI returns the interactive TUI when useTTY is set and the plain text UI
// otherwise.
func NewUI(cmd *cobra.Command, useTTY bool) UI {
	if useTTY {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal. Redirected files and
// in-memory writers are not.
func IsTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(file.Fd()))
}
