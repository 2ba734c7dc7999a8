package pyenv

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// Installer installs packages with pip through the configured interpreter.
type Installer struct {
	interpreter string
	timeout     time.Duration
}

// NewInstaller builds an installer. Defaults: python3, 120s per package.
func NewInstaller(interpreter string, timeout time.Duration) *Installer {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Installer{interpreter: interpreter, timeout: timeout}
}

// Install implements ports.PackageInstaller.
func (i *Installer) Install(ctx context.Context, pkg string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, i.interpreter, "-m", "pip", "install", pkg)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("install %s: timed out after %s", pkg, i.timeout)
		}
		detail := strings.TrimSpace(output.String())
		if len(detail) > 300 {
			detail = detail[len(detail)-300:]
		}
		return fmt.Errorf("install %s: %w: %s", pkg, err, detail)
	}
	return nil
}

var _ ports.PackageInstaller = (*Installer)(nil)
