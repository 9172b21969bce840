package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/buildscope/internal/analysis"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/pkg/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoRunners       = errors.New("no tool runners registered")
	ErrDuplicateRunner = errors.New("duplicate tool runner name")
)

// DefaultRunners returns the fixed runner set in invocation order.
func DefaultRunners(cfg config.ToolsConfig) []Runner {
	return []Runner{
		BuildStatus{},
		ErrorLines{},
		ErrorGroups{},
		SecretScan{},
		NewCommandRunner(NameDependencyAudit, "pip-audit", []string{"-r", "requirements.txt"}, "requirements.txt", cfg.Timeout),
		NewCommandRunner(NameDockerfileLint, "hadolint", []string{"Dockerfile"}, "Dockerfile", cfg.Timeout),
		SyntaxCheck{},
		NewCommandRunner(NameTerraformCheck, "tflint", []string{"--format", "compact"}, "*.tf", cfg.Timeout),
		NewCommandRunner(NamePythonLint, "flake8", []string{"."}, "", cfg.Timeout),
	}
}

// Aggregator runs every registered runner and collects one result per runner.
type Aggregator struct {
	runners     []Runner
	parallelism int
}

// NewAggregator creates an Aggregator. Runner names must be unique since they
// key the results. A parallelism of 1 or less runs the tools sequentially.
func NewAggregator(runners []Runner, parallelism int) (*Aggregator, error) {
	if len(runners) == 0 {
		return nil, ErrNoRunners
	}
	seen := make(map[string]bool, len(runners))
	for _, r := range runners {
		if seen[r.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRunner, r.Name())
		}
		seen[r.Name()] = true
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Aggregator{runners: runners, parallelism: parallelism}, nil
}

// Names returns the runner names in invocation order.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.runners))
	for i, r := range a.runners {
		names[i] = r.Name()
	}
	return names
}

// Run invokes every runner independently. The result slice always has one
// entry per runner, in registration order, whatever the individual outcomes.
func (a *Aggregator) Run(ctx context.Context, in Input) []models.ToolResult {
	results := make([]models.ToolResult, len(a.runners))

	if a.parallelism == 1 {
		for i, r := range a.runners {
			results[i] = runOne(ctx, r, in)
		}
		return results
	}

	// Plain Group, not WithContext: one tool failing must not cancel the rest.
	var g errgroup.Group
	g.SetLimit(a.parallelism)
	for i, r := range a.runners {
		g.Go(func() error {
			results[i] = runOne(ctx, r, in)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runOne runs r and normalizes its result, masking any credentials a tool
// echoed. It recovers from panics.
func runOne(ctx context.Context, r Runner, in Input) (res models.ToolResult) {
	name := r.Name()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in tool runner", "tool", name, "error", rec)
			res = failure(name, "", fmt.Sprintf("panic: %v", rec))
		}
		res.ToolName = name
		res.Output = analysis.MaskSecrets(res.Output)
		res.ErrorDetail = analysis.MaskSecrets(res.ErrorDetail)
		if res.Status != models.ToolStatusOK && res.Status != models.ToolStatusError {
			res.Status = models.ToolStatusError
		}
		res.DurationMs = time.Since(start).Milliseconds()

		slog.Debug("tool finished",
			"tool", name,
			"status", res.Status,
			"duration_ms", res.DurationMs,
		)
	}()

	if ctx.Err() != nil {
		return failure(name, "", "cancelled")
	}
	return r.Run(ctx, in)
}
