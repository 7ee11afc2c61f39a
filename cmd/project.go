package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "mutate.dev/pkg/mutate/internal/model"
)

const projectFileFlagName = "file"

// projectFile is the YAML document accepted by "project add".
type projectFile struct {
	Name              string        `yaml:"name" validate:"required"`
	Workdir           string        `yaml:"workdir" validate:"required,dir"`
	Build             string        `yaml:"build"`
	Quickcheck        string        `yaml:"quickcheck"`
	QuickcheckTimeout time.Duration `yaml:"quickcheck_timeout" validate:"gte=0"`
	Test              string        `yaml:"test" validate:"required"`
	TestTimeout       time.Duration `yaml:"test_timeout" validate:"gte=0"`
	Clean             string        `yaml:"clean"`
}

func (f projectFile) project() m.Project {
	return m.Project{
		Name:              f.Name,
		Workdir:           m.Path(f.Workdir),
		BuildCommand:      f.Build,
		QuickcheckCommand: f.Quickcheck,
		QuickcheckTimeout: f.QuickcheckTimeout,
		TestCommand:       f.Test,
		TestTimeout:       f.TestTimeout,
		CleanCommand:      f.Clean,
	}
}

// loadProjectFile decodes and validates a project definition. A relative
// workdir is resolved against the directory holding the file.
func loadProjectFile(path string) (m.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read project file", "path", path, "error", err)
		return m.Project{}, fmt.Errorf("failed to read project file: %w", err)
	}

	var file projectFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		slog.Error("Failed to decode project file", "path", path, "error", err)
		return m.Project{}, fmt.Errorf("failed to decode project file %s: %w", path, err)
	}

	if file.Workdir != "" && !filepath.IsAbs(file.Workdir) {
		file.Workdir = filepath.Join(filepath.Dir(path), file.Workdir)
	}

	if file.Workdir != "" {
		abs, err := filepath.Abs(file.Workdir)
		if err != nil {
			return m.Project{}, fmt.Errorf("failed to resolve workdir %s: %w", file.Workdir, err)
		}

		file.Workdir = abs
	}

	if err := validator.New().Struct(file); err != nil {
		return m.Project{}, describeValidation(path, err)
	}

	return file.project(), nil
}

func describeValidation(path string, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid project file %s: %w", path, err)
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s: failed %q", fieldErr.Field(), fieldErr.Tag()))
	}

	return fmt.Errorf("invalid project file %s: %s", path, strings.Join(problems, ", "))
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage the projects under test",
	}

	cmd.AddCommand(newProjectAddCmd(), newProjectListCmd())

	return cmd
}

func newProjectAddCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a project from a YAML definition",
		Long: `Register a project from a YAML definition such as:

  name: demo
  workdir: ./demo
  build: make
  quickcheck: make check-fast
  quickcheck_timeout: 30s
  test: make check
  test_timeout: 5m
  clean: make clean

Only name, workdir and test are required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := loadProjectFile(path)
			if err != nil {
				return err
			}

			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			project, err = workflow.AddProject(cmd.Context(), project)
			if err != nil {
				return err
			}

			cmd.Printf("Registered project %d (%s)\n", project.ID, project.Name)

			return nil
		},
	}

	cmd.Flags().StringVarP(&path, projectFileFlagName, "f", "", "project definition file")
	cobra.CheckErr(cmd.MarkFlagRequired(projectFileFlagName))

	return cmd
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, closeFn, err := openWorkflow(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			return workflow.ListProjects(cmd.Context())
		},
	}
}

// projectCmd represents the project command group.
var projectCmd = newProjectCmd()

func init() {
	rootCmd.AddCommand(projectCmd)
}
