package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/buildscope/internal/ai"
	"github.com/kiranshivaraju/buildscope/internal/report"
	"github.com/kiranshivaraju/buildscope/internal/tools"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// ToolRunner runs the tool battery against one log.
type ToolRunner interface {
	Run(ctx context.Context, in tools.Input) []models.ToolResult
}

// LogSummarizer produces the LLM summary for one log and its tool results.
type LogSummarizer interface {
	Summarize(ctx context.Context, doc models.LogDocument, results []models.ToolResult) *ai.SummarizeResult
}

// Service runs the full analysis pipeline: tools, summary, report.
type Service struct {
	tools      ToolRunner
	summarizer LogSummarizer
}

// NewService creates a new Service.
func NewService(t ToolRunner, s LogSummarizer) *Service {
	return &Service{tools: t, summarizer: s}
}

// Analyze runs every tool against doc (and projectDir, which may be empty),
// summarizes the results and renders the HTML report. Tool and provider
// failures are reported inside the response; only a rendering failure is
// returned as an error.
func (s *Service) Analyze(ctx context.Context, doc models.LogDocument, projectDir string) (*models.AnalysisResponse, error) {
	start := time.Now()

	results := s.tools.Run(ctx, tools.Input{Log: doc, ProjectDir: projectDir})
	sum := s.summarizer.Summarize(ctx, doc, results)

	html, err := report.Render(sum.Summary, results)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", doc.Name, err)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	slog.Info("log analyzed",
		"log", doc.Name,
		"bytes", len(doc.Content),
		"tools", len(results),
		"tools_failed", failed,
		"summary_state", string(sum.State),
		"provider", sum.Summary.Provider,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &models.AnalysisResponse{
		ToolResults:    results,
		Summary:        sum.Summary.Text,
		SuggestedFixes: sum.Summary.SuggestedFixes,
		PRTitle:        sum.Summary.PRTitle,
		PRBody:         sum.Summary.PRBody,
		Provider:       sum.Summary.Provider,
		HTMLReport:     html,
	}, nil
}
