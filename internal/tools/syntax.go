package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiranshivaraju/buildscope/pkg/models"
	"gopkg.in/yaml.v3"
)

var errTrailingJSON = errors.New("unexpected content after top-level JSON value")

// SyntaxCheck parses every YAML and JSON file under the project directory.
type SyntaxCheck struct{}

func (SyntaxCheck) Name() string { return NameSyntaxCheck }

func (SyntaxCheck) Run(ctx context.Context, in Input) models.ToolResult {
	dir, err := projectDir(in)
	if err != nil {
		return failure(NameSyntaxCheck, "", err.Error())
	}

	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml", ".json":
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return failure(NameSyntaxCheck, "", fmt.Sprintf("walking project: %v", walkErr))
	}
	if len(files) == 0 {
		return success(NameSyntaxCheck, "No YAML or JSON files found.")
	}
	sort.Strings(files)

	var b strings.Builder
	invalid := 0
	for _, path := range files {
		rel, _ := filepath.Rel(dir, path)
		if err := parseFile(path); err != nil {
			invalid++
			fmt.Fprintf(&b, "%s: %v\n", filepath.ToSlash(rel), err)
			continue
		}
		fmt.Fprintf(&b, "%s: OK\n", filepath.ToSlash(rel))
	}

	out := strings.TrimSuffix(b.String(), "\n")
	if invalid > 0 {
		return failure(NameSyntaxCheck, out, fmt.Sprintf("%d of %d files failed to parse", invalid, len(files)))
	}
	return success(NameSyntaxCheck, out)
}

func parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(f)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if err := dec.Decode(&v); !errors.Is(err, io.EOF) {
			return errTrailingJSON
		}
		return nil
	}

	dec := yaml.NewDecoder(f)
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
