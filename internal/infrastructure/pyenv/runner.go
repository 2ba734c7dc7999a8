// Package pyenv adapts the script runner and package installer ports to a
// local Python interpreter and pip.
package pyenv

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// Runner executes script files with a local interpreter, captured stdio and
// an enforced wall-clock timeout.
type Runner struct {
	interpreter string
}

// NewRunner builds a runner. An empty interpreter defaults to python3.
func NewRunner(interpreter string) *Runner {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &Runner{interpreter: interpreter}
}

// Run implements ports.ScriptRunner. A deadline hit is reported via
// RunResult.TimedOut, not as an error.
func (r *Runner) Run(ctx context.Context, scriptPath string, timeout time.Duration) (domain.RunResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.interpreter, scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := domain.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}
	return result, nil
}

var _ ports.ScriptRunner = (*Runner)(nil)
