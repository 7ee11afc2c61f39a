package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownStep is returned when a pipeline step outside the known set is
// requested from a project. It signals a programming error.
var ErrUnknownStep = errors.New("unknown pipeline step")

// Step identifies one stage of the evaluation pipeline.
type Step int

const (
	// StepBuild compiles the mutant.
	StepBuild Step = iota
	// StepQuickcheck runs the optional fast gate before the full suite.
	StepQuickcheck
	// StepTest runs the full test suite.
	StepTest
	// StepClean resets build artifacts; it never affects classification.
	StepClean
)

// PipelineSteps is the ordered, short-circuiting part of the pipeline.
var PipelineSteps = []Step{StepBuild, StepQuickcheck, StepTest}

func (s Step) String() string {
	switch s {
	case StepBuild:
		return "build"
	case StepQuickcheck:
		return "quickcheck"
	case StepTest:
		return "test"
	case StepClean:
		return "clean"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ParseStep converts a persisted step name back into a Step.
func ParseStep(name string) (Step, error) {
	switch name {
	case "build":
		return StepBuild, nil
	case "quickcheck":
		return StepQuickcheck, nil
	case "test":
		return StepTest, nil
	case "clean":
		return StepClean, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownStep, name)
}

// Project holds the configuration needed to evaluate patches of one code base.
type Project struct {
	ID                int64
	Name              string
	Workdir           Path
	BuildCommand      string
	QuickcheckCommand string
	QuickcheckTimeout time.Duration
	TestCommand       string
	TestTimeout       time.Duration
	CleanCommand      string
}

// Command returns the command line and timeout configured for step. An empty
// command means the step is not configured. A zero timeout means unbounded.
func (p Project) Command(step Step) (string, time.Duration, error) {
	switch step {
	case StepBuild:
		return p.BuildCommand, 0, nil
	case StepQuickcheck:
		return p.QuickcheckCommand, p.QuickcheckTimeout, nil
	case StepTest:
		return p.TestCommand, p.TestTimeout, nil
	case StepClean:
		return p.CleanCommand, 0, nil
	default:
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
}
