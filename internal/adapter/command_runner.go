package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"

	m "mutate.dev/pkg/mutate/internal/model"
)

// pipeDrainDelay bounds how long Wait keeps reading output after the process
// exited while a detached descendant still holds the pipes open.
const pipeDrainDelay = 5 * time.Second

// ErrEmptyCommand is returned when a command line has no words.
var ErrEmptyCommand = errors.New("empty command line")

// TimeoutError reports that the watchdog killed the process tree.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Output  []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}

// ExitError reports a non-zero exit status that was not caused by a timeout.
type ExitError struct {
	Command string
	Code    int
	Output  []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

// StartError reports that the command line could not be turned into a
// running process.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start command %q: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ExecOptions configures a single command execution.
type ExecOptions struct {
	Dir     m.Path
	Timeout time.Duration // zero disables the watchdog
	Stdin   io.Reader
}

// CommandRunner abstracts external process execution for the evaluation
// pipeline.
type CommandRunner interface {
	// Execute word-splits commandLine without shell interpretation, runs it and
	// returns its stdout. It blocks until the process exits or its timeout
	// kills the whole process tree. A running command is never cancelled
	// through ctx; ctx is only checked before spawning.
	Execute(ctx context.Context, commandLine string, opts ExecOptions) ([]byte, error)
}

// LocalCommandRunner runs commands on the local machine with os/exec.
type LocalCommandRunner struct {
	killTree func(pid int) error
}

// NewLocalCommandRunner constructs a LocalCommandRunner.
func NewLocalCommandRunner() *LocalCommandRunner {
	return &LocalCommandRunner{killTree: killProcessTree}
}

// Execute implements CommandRunner.
func (r *LocalCommandRunner) Execute(ctx context.Context, commandLine string, opts ExecOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, &StartError{Command: commandLine, Err: err}
	}

	if len(args) == 0 {
		return nil, &StartError{Command: commandLine, Err: ErrEmptyCommand}
	}

	// #nosec G204 - commands come from the project configuration by design
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = string(opts.Dir)
	cmd.Stdin = opts.Stdin
	cmd.WaitDelay = pipeDrainDelay
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		slog.Debug("Failed to start command", "command", commandLine, "dir", opts.Dir, "error", err)
		return nil, &StartError{Command: commandLine, Err: err}
	}

	var deadline *watchdog

	if opts.Timeout > 0 {
		pid := cmd.Process.Pid
		deadline = startWatchdog(opts.Timeout, func() {
			slog.Debug("Command timed out, killing process tree", "command", commandLine, "pid", pid, "timeout", opts.Timeout)

			if err := r.killTree(pid); err != nil {
				slog.Warn("Failed to kill process tree", "pid", pid, "error", err)
			}
		})
	}

	waitErr := cmd.Wait()
	timedOut := deadline != nil && deadline.finish()

	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil
	}

	output := stdout.Bytes()

	// A command that exited cleanly beat its deadline even if the timer
	// fired while Wait was returning.
	if timedOut && waitErr != nil {
		return output, &TimeoutError{Command: commandLine, Timeout: opts.Timeout, Output: output}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return output, &ExitError{Command: commandLine, Code: exitErr.ExitCode(), Output: output}
		}

		return output, fmt.Errorf("failed to wait for command %q: %w", commandLine, waitErr)
	}

	return output, nil
}

// watchdog runs kill once its timeout elapses, unless finish was called
// first. finish waits for a kill in progress, and no kill starts after
// finish returns.
type watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	kill     func()
	fired    bool
	finished bool
}

func startWatchdog(timeout time.Duration, kill func()) *watchdog {
	w := &watchdog{kill: kill}
	w.timer = time.AfterFunc(timeout, w.expire)

	return w
}

func (w *watchdog) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finished {
		return
	}

	w.fired = true
	w.kill()
}

// finish disarms the watchdog and reports whether it fired.
func (w *watchdog) finish() bool {
	w.timer.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.finished = true

	return w.fired
}
