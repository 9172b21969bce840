package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// FailureSummary is returned when no provider produced an analysis.
const FailureSummary = "No AI analysis was possible: no LLM provider could be reached."

// State is a step of the provider fallback machine. Transitions only move
// forward: TryPrimary -> TrySecondary -> Done|Failed.
type State string

const (
	StateTryPrimary   State = "try_primary"
	StateTrySecondary State = "try_secondary"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Attempt records one provider call.
type Attempt struct {
	Provider string
	Err      error
}

// SummarizeResult is the output of a summarization run.
type SummarizeResult struct {
	Summary  models.Summary
	State    State
	Attempts []Attempt
}

// Summarizer asks the primary provider for a summary and falls back to the
// secondary exactly once. Either provider may be nil when not configured.
type Summarizer struct {
	primary     models.AIProvider
	secondary   models.AIProvider
	timeout     time.Duration
	maxLogBytes int
}

// NewSummarizer creates a new Summarizer. timeout bounds each provider call.
func NewSummarizer(primary, secondary models.AIProvider, timeout time.Duration, maxLogBytes int) *Summarizer {
	return &Summarizer{
		primary:     primary,
		secondary:   secondary,
		timeout:     timeout,
		maxLogBytes: maxLogBytes,
	}
}

// Providers returns the configured provider names, "" for an absent slot.
func (s *Summarizer) Providers() (primary, secondary string) {
	if s.primary != nil {
		primary = s.primary.Name()
	}
	if s.secondary != nil {
		secondary = s.secondary.Name()
	}
	return primary, secondary
}

// Summarize runs the fallback machine once. It never returns an error: when
// both providers fail the result carries FailureSummary and StateFailed.
func (s *Summarizer) Summarize(ctx context.Context, doc models.LogDocument, results []models.ToolResult) *SummarizeResult {
	req := BuildPrompt(doc, results, s.maxLogBytes)
	out := &SummarizeResult{}

	state := StateTryPrimary
	for {
		switch state {
		case StateTryPrimary:
			if s.primary == nil {
				state = StateTrySecondary
				continue
			}
			if s.attempt(ctx, s.primary, req, out) {
				state = StateDone
			} else {
				state = StateTrySecondary
			}

		case StateTrySecondary:
			if s.secondary == nil || ctx.Err() != nil {
				state = StateFailed
				continue
			}
			if s.attempt(ctx, s.secondary, req, out) {
				state = StateDone
			} else {
				state = StateFailed
			}

		case StateDone:
			out.State = StateDone
			return out

		case StateFailed:
			out.State = StateFailed
			out.Summary = models.Summary{Text: FailureSummary}
			return out
		}
	}
}

// attempt performs one bounded provider call and records it.
func (s *Summarizer) attempt(ctx context.Context, p models.AIProvider, req models.CompletionRequest, out *SummarizeResult) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := p.Complete(callCtx, req)
	out.Attempts = append(out.Attempts, Attempt{Provider: p.Name(), Err: err})

	if err != nil {
		slog.Warn("ai provider failed",
			"provider", p.Name(),
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return false
	}

	out.Summary = ParseReply(reply)
	out.Summary.Provider = p.Name()
	slog.Info("ai summary generated",
		"provider", p.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}
