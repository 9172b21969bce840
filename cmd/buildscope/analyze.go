package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kiranshivaraju/buildscope/internal/ai"
	"github.com/kiranshivaraju/buildscope/internal/analyzer"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/internal/tools"
	"github.com/kiranshivaraju/buildscope/pkg/models"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	logPath    string
	projectDir string
	htmlPath   string
	asJSON     bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a build log",
		Long: `Run every tool against a build log (and optionally a project directory),
ask the configured LLM provider for a summary and print the result.

Examples:
  buildscope analyze --log build.log
  buildscope analyze --log build.log --project . --html report.html
  buildscope analyze --log build.log --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runAnalyze(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.logPath, "log", "l", "", "build log file to analyze (required)")
	cmd.Flags().StringVarP(&opts.projectDir, "project", "p", "", "project directory for file-based tools (default $PROJECT_DIR)")
	cmd.Flags().StringVar(&opts.htmlPath, "html", "", "write the HTML report to this file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("log")

	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, opts *analyzeOptions, out io.Writer) error {
	data, err := os.ReadFile(opts.logPath)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if len(data) == 0 {
		return errors.New("read log: file is empty")
	}
	doc := models.LogDocument{
		Name:    filepath.Base(opts.logPath),
		Content: strings.ToValidUTF8(string(data), "\uFFFD"),
	}

	projectDir := cfg.Tools.ProjectDir
	if opts.projectDir != "" {
		projectDir = opts.projectDir
	}

	agg, err := tools.NewAggregator(tools.DefaultRunners(cfg.Tools), cfg.Tools.Parallelism)
	if err != nil {
		return fmt.Errorf("create tool aggregator: %w", err)
	}
	svc := analyzer.NewService(agg, ai.NewSummarizerFromConfig(cfg.AI))

	result, err := svc.Analyze(ctx, doc, projectDir)
	if err != nil {
		return err
	}

	if opts.htmlPath != "" {
		if err := os.WriteFile(opts.htmlPath, []byte(result.HTMLReport), 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printText(out, result, opts.htmlPath)
}

func printText(out io.Writer, result *models.AnalysisResponse, htmlPath string) error {
	var b strings.Builder
	for _, r := range result.ToolResults {
		line := fmt.Sprintf("%-18s %-5s", r.ToolName, r.Status)
		if r.ErrorDetail != "" {
			line += "  " + r.ErrorDetail
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	b.WriteString("\nSummary")
	if result.Provider != "" {
		fmt.Fprintf(&b, " (%s)", result.Provider)
	}
	b.WriteString(":\n" + result.Summary + "\n")

	if result.SuggestedFixes != "" {
		b.WriteString("\nSuggested fixes:\n" + result.SuggestedFixes + "\n")
	}
	if result.PRTitle != "" {
		b.WriteString("\nPull request:\n" + result.PRTitle + "\n")
		if result.PRBody != "" {
			b.WriteString("\n" + result.PRBody + "\n")
		}
	}
	if htmlPath != "" {
		fmt.Fprintf(&b, "\nHTML report written to %s\n", htmlPath)
	}

	_, err := io.WriteString(out, b.String())
	return err
}
