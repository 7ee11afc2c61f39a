package adapter

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mutate.dev/pkg/mutate/internal/model"
)

// These tests exercise LocalCommandRunner against real system binaries.

func TestLocalCommandRunner_Execute_Success(t *testing.T) {
	runner := NewLocalCommandRunner()

	out, err := runner.Execute(context.Background(), "echo hello world", ExecOptions{Dir: m.Path(t.TempDir())})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(out))
}

func TestLocalCommandRunner_Execute_NoShellInterpretation(t *testing.T) {
	runner := NewLocalCommandRunner()

	out, err := runner.Execute(context.Background(), `echo "a b" | cat > x`, ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a b | cat > x\n", string(out))
}

func TestLocalCommandRunner_Execute_StderrDiscarded(t *testing.T) {
	runner := NewLocalCommandRunner()

	out, err := runner.Execute(context.Background(), `sh -c "echo out; echo err 1>&2"`, ExecOptions{})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(out))
}

func TestLocalCommandRunner_Execute_NonZeroExit(t *testing.T) {
	runner := NewLocalCommandRunner()

	out, err := runner.Execute(context.Background(), `sh -c "echo partial; exit 77"`, ExecOptions{})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 77, exitErr.Code)
	assert.Equal(t, "partial\n", string(exitErr.Output))
	assert.Equal(t, "partial\n", string(out))
}

func TestLocalCommandRunner_Execute_StartFailure(t *testing.T) {
	runner := NewLocalCommandRunner()

	tests := []struct {
		name    string
		command string
	}{
		{"empty", "   "},
		{"missing binary", "definitely-not-a-binary-xyz --flag"},
		{"shell builtin", "exit 1"},
		{"unterminated quote", `echo "oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Execute(context.Background(), tt.command, ExecOptions{})

			var startErr *StartError
			assert.True(t, errors.As(err, &startErr), "got %v", err)
		})
	}
}

func TestLocalCommandRunner_Execute_WorkingDirectory(t *testing.T) {
	runner := NewLocalCommandRunner()
	dir := t.TempDir()

	out, err := runner.Execute(context.Background(), "pwd", ExecOptions{Dir: m.Path(dir)})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(out)), strings.TrimPrefix(dir, "/private")))
}

func TestLocalCommandRunner_Execute_Stdin(t *testing.T) {
	runner := NewLocalCommandRunner()

	out, err := runner.Execute(context.Background(), "cat", ExecOptions{Stdin: strings.NewReader("piped")})
	require.NoError(t, err)
	assert.Equal(t, "piped", string(out))
}

func TestLocalCommandRunner_Execute_CancelledBeforeStart(t *testing.T) {
	runner := NewLocalCommandRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Execute(ctx, "true", ExecOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalCommandRunner_Execute_FastCommandWithinTimeout(t *testing.T) {
	runner := NewLocalCommandRunner()

	_, err := runner.Execute(context.Background(), "true", ExecOptions{Timeout: 10 * time.Second})
	assert.NoError(t, err)
}

func TestWatchdog_FinishBeforeDeadline(t *testing.T) {
	var kills atomic.Int32

	w := startWatchdog(time.Hour, func() { kills.Add(1) })

	assert.False(t, w.finish())

	w.expire()
	assert.Zero(t, kills.Load(), "no kill after finish")
	assert.False(t, w.finish())
}

func TestWatchdog_FiresOnce(t *testing.T) {
	var kills atomic.Int32

	w := startWatchdog(time.Millisecond, func() { kills.Add(1) })

	require.Eventually(t, func() bool { return kills.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.finish())
	assert.Equal(t, int32(1), kills.Load())
}

func TestLocalCommandRunner_Execute_CleanExitIsNotTimeout(t *testing.T) {
	runner := NewLocalCommandRunner()
	runner.killTree = func(int) error { return nil }

	// The watchdog fires while the command is still running but kills nothing,
	// so the command exits on its own with status zero.
	out, err := runner.Execute(context.Background(), "sh -c 'sleep 0.2; echo done'", ExecOptions{Timeout: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(out))
}
