package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ToolStatusOK    = "ok"
	ToolStatusError = "error"
)

// LogDocument is an uploaded build log. It is read once and never modified.
type LogDocument struct {
	Name    string
	Content string
}

// ToolResult is the outcome of one tool runner invocation.
type ToolResult struct {
	ToolName    string `json:"tool_name"`
	Status      string `json:"status"`
	Output      string `json:"output"`
	ErrorDetail string `json:"error_detail,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// OK reports whether the tool ran to completion without error.
func (r ToolResult) OK() bool { return r.Status == ToolStatusOK }

// ToolResults is the ordered set of results for one log. It encodes as a JSON
// object keyed by tool name whose members appear in run order.
type ToolResults []ToolResult

// MarshalJSON writes {"<tool_name>": {...}, ...} in slice order. Tool names
// are unique within one run.
func (rs ToolResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.ToolName)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, keeping member order. A result
// without a tool_name takes its key.
func (rs *ToolResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tool_results: expected object, got %v", tok)
	}

	out := ToolResults{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var r ToolResult
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("tool_results[%s]: %w", key, err)
		}
		if r.ToolName == "" {
			r.ToolName = key
		}
		out = append(out, r)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*rs = out
	return nil
}
