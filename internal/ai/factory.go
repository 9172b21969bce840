package ai

import (
	"log/slog"

	"github.com/kiranshivaraju/buildscope/internal/ai/ollama"
	"github.com/kiranshivaraju/buildscope/internal/ai/openai"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// NewProviders constructs the primary (OpenAI) and secondary (Ollama)
// providers from config. A slot is nil when its provider is not configured, or
// for the primary, when the key fails the validity check.
// Called once at startup.
func NewProviders(cfg config.AIConfig) (primary, secondary models.AIProvider) {
	if cfg.HasOpenAI() {
		if openai.ValidKey(cfg.OpenAI.APIKey) {
			primary = openai.NewProvider(cfg.OpenAI)
		} else {
			slog.Warn("OPENAI_API_KEY is set but malformed; primary provider disabled")
		}
	}
	if cfg.HasOllama() {
		secondary = ollama.NewProvider(cfg.Ollama)
	}
	if primary == nil && secondary == nil {
		slog.Warn("no LLM provider configured; summaries will report that no analysis was possible")
	}
	return primary, secondary
}

// NewSummarizerFromConfig wires the configured providers into a Summarizer.
func NewSummarizerFromConfig(cfg config.AIConfig) *Summarizer {
	primary, secondary := NewProviders(cfg)
	return NewSummarizer(primary, secondary, cfg.InferenceTimeout, cfg.MaxLogBytes)
}
