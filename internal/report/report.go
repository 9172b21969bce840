// Package report renders analysis results as a self-contained HTML fragment.
package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/kiranshivaraju/buildscope/pkg/models"
)

const reportTemplate = `<section class="buildscope-report">
<style>
.buildscope-report{font-family:sans-serif;max-width:960px}
.buildscope-report pre{background:#f6f8fa;padding:8px;overflow-x:auto;white-space:pre-wrap}
.buildscope-report .ok{color:#1a7f37}
.buildscope-report .error{color:#cf222e}
</style>
<h1>Build Log Analysis</h1>
<p>{{.Total}} tools run: {{.Passed}} ok, {{.Failed}} error.</p>
<h2>Summary</h2>
<pre>{{.Summary}}</pre>
{{- if .SuggestedFixes}}
<h2>Suggested Fixes</h2>
<pre>{{.SuggestedFixes}}</pre>
{{- end}}
{{- if .PRTitle}}
<h2>Pull Request</h2>
<h3 class="pr-title">{{.PRTitle}}</h3>
{{- if .PRBody}}
<pre>{{.PRBody}}</pre>
{{- end}}
{{- end}}
<h2>Tool Results</h2>
{{- range .Tools}}
<section class="tool">
<h3>{{.ToolName}} <span class="{{.Status}}">[{{.Status}}]</span></h3>
{{- if .ErrorDetail}}
<p class="error">{{.ErrorDetail}}</p>
{{- end}}
{{- if .Output}}
<pre>{{.Output}}</pre>
{{- else}}
<p><em>(no output)</em></p>
{{- end}}
</section>
{{- end}}
</section>
`

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

type view struct {
	Summary        string
	SuggestedFixes string
	PRTitle        string
	PRBody         string
	Tools          []models.ToolResult
	Total          int
	Passed         int
	Failed         int
}

// Render produces the HTML report. Output depends only on its arguments, and
// every tool result is rendered in the order given.
func Render(sum models.Summary, results []models.ToolResult) (string, error) {
	v := view{
		Summary:        sum.Text,
		SuggestedFixes: sum.SuggestedFixes,
		PRTitle:        sum.PRTitle,
		PRBody:         sum.PRBody,
		Tools:          results,
		Total:          len(results),
	}
	for _, r := range results {
		if r.OK() {
			v.Passed++
		} else {
			v.Failed++
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}
