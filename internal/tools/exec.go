package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// waitDelay bounds how long a killed process may hold its output pipes open.
const waitDelay = 2 * time.Second

// CommandRunner wraps one external scanner run inside the project directory.
type CommandRunner struct {
	name    string
	bin     string
	args    []string
	target  string
	timeout time.Duration
}

// NewCommandRunner creates a runner invoking bin with args in the project
// directory. When target is non-empty it is a glob that must match at least one
// file in the project root for the tool to run.
func NewCommandRunner(name, bin string, args []string, target string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{name: name, bin: bin, args: args, target: target, timeout: timeout}
}

func (r *CommandRunner) Name() string { return r.name }

func (r *CommandRunner) Run(ctx context.Context, in Input) models.ToolResult {
	dir, err := projectDir(in)
	if err != nil {
		return failure(r.name, "", err.Error())
	}

	if r.target != "" {
		matches, _ := filepath.Glob(filepath.Join(dir, r.target))
		if len(matches) == 0 {
			return failure(r.name, "", fmt.Sprintf("%s not found in project directory", r.target))
		}
	}

	bin, err := exec.LookPath(r.bin)
	if err != nil {
		return failure(r.name, "", "tool not installed: "+r.bin)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, r.args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	start := time.Now()
	output, err := cmd.CombinedOutput()
	out := string(output)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			return failure(r.name, out, "cancelled")
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			slog.Warn("tool timed out",
				"tool", r.name,
				"bin", r.bin,
				"timeout", r.timeout.String(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return failure(r.name, out, "timeout")
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return failure(r.name, out, fmt.Sprintf("exit status %d", exitErr.ExitCode()))
		}
		return failure(r.name, out, err.Error())
	}

	return success(r.name, out)
}

var _ Runner = (*CommandRunner)(nil)
