package controller

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	m "mutate.dev/pkg/mutate/internal/model"
)

type runReport struct {
	Step     string `yaml:"step"`
	Log      string `yaml:"log"`
	Success  bool   `yaml:"success"`
	Duration string `yaml:"duration"`
	Output   string `yaml:"output,omitempty"`
}

type patchReport struct {
	ID      int64       `yaml:"id"`
	Project string      `yaml:"project"`
	File    string      `yaml:"file,omitempty"`
	Line    int         `yaml:"line"`
	Mutator string      `yaml:"mutator"`
	State   string      `yaml:"state"`
	Diff    string      `yaml:"diff"`
	Runs    []runReport `yaml:"runs"`
}

func newPatchReport(patch m.Patch, runs []m.Run) patchReport {
	report := patchReport{
		ID:      patch.ID,
		Project: patch.Project.Name,
		Line:    patch.Line,
		Mutator: patch.MutatorID,
		State:   string(patch.State),
		Diff:    patch.Diff,
		Runs:    make([]runReport, 0, len(runs)),
	}

	if patch.File != nil {
		report.File = string(patch.File.Filename)
	}

	for _, run := range runs {
		report.Runs = append(report.Runs, runReport{
			Step:     run.Step.String(),
			Log:      string(run.Log),
			Success:  run.Success,
			Duration: run.Duration.String(),
			Output:   run.Output,
		})
	}

	return report
}

func renderPatchYAML(patch m.Patch, runs []m.Run) (string, error) {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(newPatchReport(patch, runs)); err != nil {
		return "", fmt.Errorf("failed to encode patch %d: %w", patch.ID, err)
	}

	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode patch %d: %w", patch.ID, err)
	}

	return buf.String(), nil
}

func renderPatchTable(patch m.Patch, runs []m.Run) string {
	var b strings.Builder

	file := "-"
	if patch.File != nil {
		file = string(patch.File.Filename)
	}

	fmt.Fprintf(&b, "Patch %d (%s) %s:%d -> %s\n", patch.ID, patch.MutatorID, file, patch.Line, patch.State)
	fmt.Fprintf(&b, "Project: %s\n\n", patch.Project.Name)
	b.WriteString(patch.Diff)

	if len(runs) == 0 {
		return b.String()
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Step", "Log", "Success", "Duration"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, run := range runs {
		table.Append([]string{
			run.Step.String(),
			string(run.Log),
			fmt.Sprintf("%t", run.Success),
			run.Duration.String(),
		})
	}

	table.Render()

	b.WriteString("\n")
	b.WriteString(tableBuffer.String())

	return b.String()
}

func renderMutatorTable(mutators []MutatorInfo) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "Tags", "Description"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, info := range mutators {
		table.Append([]string{info.ID, strings.Join(info.Tags, ","), info.Description})
	}

	table.Render()

	return tableBuffer.String()
}

func renderProjectTable(projects []m.Project) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "Name", "Workdir", "Build", "Test"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, project := range projects {
		table.Append([]string{
			fmt.Sprintf("%d", project.ID),
			project.Name,
			string(project.Workdir),
			project.BuildCommand,
			project.TestCommand,
		})
	}

	table.Render()

	return tableBuffer.String()
}

func renderGeneratedTable(counts map[m.Path]int, total int) string {
	paths := make([]string, 0, len(counts))
	for path := range counts {
		paths = append(paths, string(path))
	}

	sort.Strings(paths)

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Patches"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, path := range paths {
		table.Append([]string{path, fmt.Sprintf("%d", counts[m.Path(path)])})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(paths)),
		fmt.Sprintf("%d", total),
	})

	table.Render()

	return tableBuffer.String()
}

var scoredStates = []m.PatchState{m.StateKilled, m.StateSurvived, m.StateError, m.StateIncomplete}

func renderScoreTable(counts m.StateCounts) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"State", "Patches"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, state := range scoredStates {
		table.Append([]string{string(state), fmt.Sprintf("%d", counts[state])})
	}

	table.Render()

	return tableBuffer.String()
}
