package model

import "time"

// RunLog classifies the outcome of one pipeline step.
type RunLog string

const (
	// LogSuccess means the command exited with code 0 inside its timeout.
	LogSuccess RunLog = "success"
	// LogTimeout means the watchdog killed the command.
	LogTimeout RunLog = "timeout"
	// LogNoChange means the command exited with the reserved code 77.
	LogNoChange RunLog = "nochange"
	// LogFailure means any other non-zero exit or a spawn failure.
	LogFailure RunLog = "failure"
)

// NoChangeExitCode is the exit code a step uses to report that the mutation
// had no observable effect. It still counts as a kill.
const NoChangeExitCode = 77

// Run is the audit record of one executed pipeline step.
type Run struct {
	ID             int64
	Step           Step
	PatchID        int64
	ProjectID      int64
	TimestampStart time.Time
	TimestampEnd   time.Time
	Duration       time.Duration
	Output         string
	Log            RunLog
	Success        bool
}
