// Package tools runs the fixed battery of log and project checks.
package tools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// Tool names, in the order they are registered by DefaultRunners.
const (
	NameBuildStatus     = "build_status"
	NameErrorLines      = "error_lines"
	NameErrorGroups     = "error_groups"
	NameSecretScan      = "secret_scan"
	NameDependencyAudit = "dependency_audit"
	NameDockerfileLint  = "dockerfile_lint"
	NameSyntaxCheck     = "syntax_check"
	NameTerraformCheck  = "terraform_check"
	NamePythonLint      = "python_lint"
)

var (
	ErrNoProjectDir       = errors.New("no project directory provided")
	ErrProjectDirNotFound = errors.New("project directory not found")
)

// Input is what every runner receives. ProjectDir may be empty.
type Input struct {
	Log        models.LogDocument
	ProjectDir string
}

// Runner executes one check. Implementations must never panic and must report
// every failure through the returned ToolResult.
type Runner interface {
	Name() string
	Run(ctx context.Context, in Input) models.ToolResult
}

func success(name, output string) models.ToolResult {
	return models.ToolResult{ToolName: name, Status: models.ToolStatusOK, Output: output}
}

func failure(name, output, detail string) models.ToolResult {
	return models.ToolResult{ToolName: name, Status: models.ToolStatusError, Output: output, ErrorDetail: detail}
}

// projectDir validates the project directory of in.
func projectDir(in Input) (string, error) {
	if in.ProjectDir == "" {
		return "", ErrNoProjectDir
	}
	info, err := os.Stat(in.ProjectDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrProjectDirNotFound, in.ProjectDir)
	}
	return in.ProjectDir, nil
}
