// Package execx runs external tools (yt-dlp, ffmpeg, whisper-cli) under a
// context, capturing output and killing the whole process group when the
// context ends.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"farsisub/internal/logging"
)

const (
	stderrTailLimit = 2048
	waitDelay       = 5 * time.Second
)

// Result captures a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes a named binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f(ctx, name, args...)
}

// ExitError reports a command that failed to start or exited non-zero.
type ExitError struct {
	Name   string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// CommandRunner is the Runner backed by os/exec.
type CommandRunner struct {
	Logger *slog.Logger
	// Env entries appended to the inherited environment.
	Env []string
}

// NewCommandRunner returns a runner that logs through logger.
func NewCommandRunner(logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandRunner{Logger: logger}
}

// Run executes name with args. Stdout and stderr are captured separately. A
// cancelled or expired ctx kills the process group and the returned error
// wraps ctx.Err().
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var result Result
	logger := r.logger()

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("executing command",
		logging.String("command", name),
		logging.String("args", strings.Join(args, " ")),
	)
	start := time.Now()
	err := cmd.Run()
	result = Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		logger.Debug("command failed",
			logging.String("command", name),
			logging.Duration("duration", result.Duration),
			logging.String("stderr", Tail(result.Stderr, stderrTailLimit)),
			logging.Error(err),
		)
		return result, &ExitError{Name: name, Err: err, Stderr: Tail(result.Stderr, stderrTailLimit)}
	}

	logger.Debug("command finished",
		logging.String("command", name),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (r *CommandRunner) logger() *slog.Logger {
	if r == nil || r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// Tail returns the last limit bytes of output, trimmed, prefixed with "..."
// when truncated.
func Tail(output []byte, limit int) string {
	trimmed := strings.TrimSpace(string(output))
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return "..." + trimmed[len(trimmed)-limit:]
}

// IsNotFound reports whether err means the binary could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
