package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds run_cmd invocations that do not set their own timeout.
const DefaultCommandTimeout = 900 * time.Second

// ErrCommandTimeout is returned when a process exceeds its deadline.
var ErrCommandTimeout = errors.New("command timed out")

// CommandResult is the captured outcome of a process run.
type CommandResult struct {
	Output   string
	ExitCode int
}

// RunCommand executes argv directly (no shell) and returns stdout followed by
// stderr. A non-zero exit is reported as an error alongside the full result so
// callers can still inspect the output.
func RunCommand(ctx context.Context, argv []string, cwd string, timeout time.Duration) (CommandResult, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return CommandResult{ExitCode: -1}, fmt.Errorf("empty command provided")
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Output: joinStreams(stdout.String(), stderr.String())}

	if runCtx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, fmt.Errorf("%w after %v: %s", ErrCommandTimeout, timeout, strings.Join(argv, " "))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("command failed with exit code %d", res.ExitCode)
		}
		res.ExitCode = -1
		return res, fmt.Errorf("command failed: %w", err)
	}
	return res, nil
}

func joinStreams(stdout, stderr string) string {
	out := stdout
	if stderr != "" {
		out += "\n" + stderr
	}
	return strings.TrimSpace(out)
}
