package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/buildscope/internal/ai/llm"
	"github.com/kiranshivaraju/buildscope/internal/analysis"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

const maxToolOutputBytes = 4000

const systemPrompt = `You are a senior CI/CD engineer reviewing a failed or suspicious build.
You are given the output of several static-analysis and security tools followed by the raw build log.

Explain what happened in plain language and propose concrete fixes.
Focus on the first real failure, not on its downstream noise. Mention leaked secrets if any tool reports them.
Then draft a GitHub pull request that would apply the fixes.

Respond with JSON only:
{"summary": "what happened and why", "suggested_fixes": "numbered list of concrete fixes", "pr_title": "short imperative PR title", "pr_body": "markdown PR body describing the fix"}`

// BuildPrompt serializes the log and the tool results into one completion request.
// The log is tail-truncated to maxLogBytes since failures cluster at the end.
// Credentials in the log and tool output are masked before they leave the process.
func BuildPrompt(doc models.LogDocument, results []models.ToolResult, maxLogBytes int) models.CompletionRequest {
	var b strings.Builder
	b.WriteString("Analyze this build log and suggest a fix.\n\n## Tool results\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\n### %s (%s)\n", r.ToolName, r.Status)
		if r.ErrorDetail != "" {
			fmt.Fprintf(&b, "error: %s\n", r.ErrorDetail)
		}
		if out := strings.TrimSpace(r.Output); out != "" {
			b.WriteString(analysis.MaskSecrets(llm.Truncate(out, maxToolOutputBytes)))
			b.WriteString("\n")
		}
	}

	name := doc.Name
	if name == "" {
		name = "build.log"
	}
	fmt.Fprintf(&b, "\n## Build log (%s)\n", name)
	b.WriteString(analysis.MaskSecrets(tail(doc.Content, maxLogBytes)))

	return models.CompletionRequest{System: systemPrompt, Prompt: b.String()}
}

// tail keeps the last maxBytes of s without splitting UTF-8 runes.
func tail(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	start := len(s) - maxBytes
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return fmt.Sprintf("[... %d bytes truncated ...]\n%s", start, s[start:])
}

// ParseReply extracts the summary, fixes and PR draft from a model reply.
// Replies that are not the requested JSON are used verbatim as the summary.
func ParseReply(content string) models.Summary {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var reply struct {
		Summary        string          `json:"summary"`
		SuggestedFixes json.RawMessage `json:"suggested_fixes"`
		PRTitle        string          `json:"pr_title"`
		PRBody         string          `json:"pr_body"`
	}
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil || strings.TrimSpace(reply.Summary) == "" {
		return models.Summary{Text: strings.TrimSpace(content)}
	}

	return models.Summary{
		Text:           strings.TrimSpace(reply.Summary),
		SuggestedFixes: fixesText(reply.SuggestedFixes),
		PRTitle:        strings.TrimSpace(reply.PRTitle),
		PRBody:         strings.TrimSpace(reply.PRBody),
	}
}

// fixesText accepts suggested_fixes as a string or a list of strings.
func fixesText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		lines := make([]string, 0, len(list))
		for i, item := range list {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(item)))
		}
		return strings.Join(lines, "\n")
	}
	return strings.TrimSpace(string(raw))
}
