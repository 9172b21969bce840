package models

// AnalysisResponse is returned for every analyzed log. It is built once per
// request and never persisted.
type AnalysisResponse struct {
	ToolResults    ToolResults `json:"tool_results"`
	Summary        string      `json:"summary"`
	SuggestedFixes string      `json:"suggested_fixes,omitempty"`
	PRTitle        string      `json:"pr_title,omitempty"`
	PRBody         string      `json:"pr_body,omitempty"`
	Provider       string      `json:"provider,omitempty"`
	HTMLReport     string      `json:"html_report"`
}
