package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "mutate.dev/pkg/mutate/internal/model"
)

const maxRecentResults = 10

// Message types.
type schedulerInfoMsg struct {
	mode    string
	workers int
	pending int
}

type patchResultMsg struct {
	line  string
	state m.PatchState
	err   error
}

type finishedMsg struct{}

// TUI implements UI with a Bubble Tea progress view while patches are
// evaluated. One-shot reports are rendered as plain tables.
type TUI struct {
	*SimpleUI

	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{SimpleUI: NewSimpleUI(cmd), output: cmd.OutOrStdout()}
}

// Start launches the progress view in run mode. Report mode needs no
// program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)
	if cfg.mode != ModeRun {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	program := tea.NewProgram(newRunModel(cfg.total, cfg.onInterrupt), tea.WithOutput(t.output))
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Error("Progress view failed", "error", err)
		}
	}()

	t.program = program
	t.done = done

	return nil
}

// Close asks the progress view to render its final frame and exit.
func (t *TUI) Close(_ context.Context) {
	if program := t.current(); program != nil {
		program.Send(finishedMsg{})
	}
}

// Wait blocks until the progress view has exited.
func (t *TUI) Wait(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	t.mu.Lock()
	t.program = nil
	t.done = nil
	t.mu.Unlock()
}

// DisplaySchedulerInfo updates the progress header.
func (t *TUI) DisplaySchedulerInfo(ctx context.Context, mode string, workers int, pending int) {
	program := t.current()
	if program == nil {
		t.SimpleUI.DisplaySchedulerInfo(ctx, mode, workers, pending)
		return
	}

	program.Send(schedulerInfoMsg{mode: mode, workers: workers, pending: pending})
}

// DisplayPatchResult advances the progress bar.
func (t *TUI) DisplayPatchResult(ctx context.Context, patch m.Patch, state m.PatchState, runs []m.Run, err error) {
	program := t.current()
	if program == nil {
		t.SimpleUI.DisplayPatchResult(ctx, patch, state, runs, err)
		return
	}

	program.Send(patchResultMsg{line: formatResultLine(patch, state, runs), state: state, err: err})
}

func (t *TUI) current() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program
}

// runModel is the Bubble Tea model shown while patches are evaluated.
type runModel struct {
	width       int
	progressBar progress.Model
	mode        string
	workers     int
	total       int
	completed   int
	counts      m.StateCounts
	recent      []patchResultMsg
	finished    bool
	onInterrupt func()
}

func newRunModel(total int, onInterrupt func()) runModel {
	return runModel{
		progressBar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		total:       total,
		counts:      make(m.StateCounts),
		onInterrupt: onInterrupt,
	}
}

func (r runModel) Init() tea.Cmd {
	return nil
}

func (r runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		if msg.Width > 8 {
			r.progressBar.Width = min(msg.Width-8, 80)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if r.onInterrupt != nil {
				r.onInterrupt()
			}

			return r, tea.Quit
		}

	case schedulerInfoMsg:
		r.mode = msg.mode
		r.workers = msg.workers

		if msg.pending > r.total {
			r.total = msg.pending
		}

	case patchResultMsg:
		r.completed++
		r.counts[msg.state]++

		r.recent = append(r.recent, msg)
		if len(r.recent) > maxRecentResults {
			r.recent = r.recent[len(r.recent)-maxRecentResults:]
		}

	case finishedMsg:
		r.finished = true
		return r, tea.Quit
	}

	return r, nil
}

func (r runModel) percent() float64 {
	if r.total == 0 {
		return 0
	}

	return min(float64(r.completed)/float64(r.total), 1)
}

func stateColor(state m.PatchState) lipgloss.Color {
	switch state {
	case m.StateKilled:
		return lipgloss.Color("2") // Green
	case m.StateSurvived, m.StateError:
		return lipgloss.Color("1") // Red
	default:
		return lipgloss.Color("8") // Gray
	}
}

func (r runModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	title := titleStyle.Render("mutate: evaluating patches")

	summary := summaryStyle.Render(fmt.Sprintf(
		"Progress: %s / %s  •  Mode: %s  •  Workers: %s  •  Killed: %s  •  Survived: %s  •  Errors: %s",
		accentStyle.Render(fmt.Sprintf("%d", r.completed)),
		accentStyle.Render(fmt.Sprintf("%d", r.total)),
		accentStyle.Render(r.mode),
		accentStyle.Render(fmt.Sprintf("%d", r.workers)),
		accentStyle.Render(fmt.Sprintf("%d", r.counts[m.StateKilled])),
		accentStyle.Render(fmt.Sprintf("%d", r.counts[m.StateSurvived])),
		accentStyle.Render(fmt.Sprintf("%d", r.counts[m.StateError])),
	))

	progressView := lipgloss.NewStyle().Padding(0, 2).Render(r.progressBar.ViewAs(r.percent()))

	lines := make([]string, 0, len(r.recent))
	for _, result := range r.recent {
		line := lipgloss.NewStyle().Foreground(stateColor(result.state)).Render(result.line)
		if result.err != nil {
			line += " " + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(result.err.Error())
		}

		lines = append(lines, line)
	}

	if len(lines) == 0 {
		lines = append(lines, "waiting for results")
	}

	resultsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1).
		Margin(1, 1, 1, 0).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	footer := "Press q to stop"
	if r.finished {
		footer = "Done"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		progressView,
		resultsBox,
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 2).Render(footer),
	) + "\n"
}
