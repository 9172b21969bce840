package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/buildscope/internal/analysis"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

var failureMarkers = []string{"BUILD FAILURE", "FAILURE", "Error:", "Exception", "Traceback"}

// BuildStatus reports whether the log shows a failed build.
type BuildStatus struct{}

func (BuildStatus) Name() string { return NameBuildStatus }

func (BuildStatus) Run(_ context.Context, in Input) models.ToolResult {
	for _, m := range failureMarkers {
		if strings.Contains(in.Log.Content, m) {
			return success(NameBuildStatus, "Build failed.")
		}
	}
	return success(NameBuildStatus, "Build passed.")
}

// ErrorLines returns every error or exception line of the log verbatim,
// with credentials masked.
type ErrorLines struct{}

func (ErrorLines) Name() string { return NameErrorLines }

func (ErrorLines) Run(_ context.Context, in Input) models.ToolResult {
	lines := analysis.ExtractErrorLines(in.Log.Content)
	if len(lines) == 0 {
		return success(NameErrorLines, "No errors found.")
	}
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = analysis.MaskSecrets(l.Text)
	}
	return success(NameErrorLines, strings.Join(texts, "\n"))
}

// ErrorGroups collapses repeated error lines into counted groups.
type ErrorGroups struct{}

func (ErrorGroups) Name() string { return NameErrorGroups }

func (ErrorGroups) Run(_ context.Context, in Input) models.ToolResult {
	groups := analysis.Group(analysis.ExtractErrorLines(in.Log.Content))
	if len(groups) == 0 {
		return success(NameErrorGroups, "No errors found.")
	}
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%dx (first at line %d) %s\n", g.Count, g.FirstLine, analysis.MaskSecrets(g.Sample))
	}
	return success(NameErrorGroups, strings.TrimSuffix(b.String(), "\n"))
}
