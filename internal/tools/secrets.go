package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/buildscope/internal/analysis"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

const maxScanFileBytes = 1 << 20

// skipDirs are never descended into when walking a project.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".terraform": true, ".venv": true, "__pycache__": true,
}

// SecretScan looks for credential patterns in the log and, when a project
// directory is available, in the text files under it. Matches are redacted.
type SecretScan struct{}

func (SecretScan) Name() string { return NameSecretScan }

func (SecretScan) Run(ctx context.Context, in Input) models.ToolResult {
	var findings []string

	for i, line := range analysis.SplitLines(in.Log.Content) {
		for _, f := range scanLine(line) {
			findings = append(findings, fmt.Sprintf("log:%d: %s", i+1, f))
		}
	}

	var notes []string
	if dir, err := projectDir(in); err == nil {
		found, err := scanTree(ctx, dir)
		if err != nil {
			notes = append(notes, fmt.Sprintf("project scan incomplete: %v", err))
		}
		findings = append(findings, found...)
	}

	if len(findings) == 0 {
		return success(NameSecretScan, strings.Join(append([]string{"No secrets found."}, notes...), "\n"))
	}

	out := strings.Join(append(findings, notes...), "\n")
	return failure(NameSecretScan, out, fmt.Sprintf("%d potential secrets found", len(findings)))
}

func scanLine(line string) []string {
	var out []string
	for _, m := range analysis.FindSecrets(line) {
		out = append(out, fmt.Sprintf("%s: %s", m.Kind, m.Redacted))
	}
	return out
}

func scanTree(ctx context.Context, root string) ([]string, error) {
	var findings []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() > maxScanFileBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || isBinary(data) {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), maxScanFileBytes)
		for n := 1; sc.Scan(); n++ {
			for _, f := range scanLine(sc.Text()) {
				findings = append(findings, fmt.Sprintf("%s:%d: %s", filepath.ToSlash(rel), n, f))
			}
		}
		return nil
	})
	return findings, err
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.IndexByte(head, 0) >= 0
}
