// Package models contains shared data models used across the BuildScope codebase.
package models

import "context"

// AIProvider is the core interface that all LLM integrations must implement.
// Never call specific providers directly; inject this interface.
type AIProvider interface {
	// Complete sends a single system+user prompt and returns the raw model reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// CompletionRequest is the input to one provider call.
type CompletionRequest struct {
	System string
	Prompt string
}

// Summary is the synthesized LLM output for one build log.
type Summary struct {
	Text           string `json:"summary"`
	SuggestedFixes string `json:"suggested_fixes"`
	PRTitle        string `json:"pr_title,omitempty"`
	PRBody         string `json:"pr_body,omitempty"`
	Provider       string `json:"provider"`
}
