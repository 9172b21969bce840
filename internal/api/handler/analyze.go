package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	mw "github.com/kiranshivaraju/buildscope/internal/api/middleware"
	"github.com/kiranshivaraju/buildscope/internal/api/response"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

const (
	logField        = "log"
	projectDirField = "project_dir"
	maxMemory       = 32 << 20
)

var (
	// ErrProjectDirNotAccepted is returned when a request names a project
	// directory but no PROJECT_ROOT is configured.
	ErrProjectDirNotAccepted = errors.New("project_dir is not accepted: no project root configured")
	// ErrProjectDirNotFound is returned when the resolved project directory
	// does not exist or is not a directory.
	ErrProjectDirNotFound = errors.New("project_dir does not exist under the project root")
)

// Analyzer defines the interface the handler depends on.
type Analyzer interface {
	Analyze(ctx context.Context, doc models.LogDocument, projectDir string) (*models.AnalysisResponse, error)
}

// AnalyzeOptions configures upload limits and project directory resolution.
type AnalyzeOptions struct {
	MaxUploadBytes    int64
	DefaultProjectDir string
	ProjectRoot       string
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /analyze/.
func NewAnalyzeHandler(svc Analyzer, opts AnalyzeOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)
		}

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					fmt.Sprintf("Upload exceeds %d bytes", opts.MaxUploadBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Expected a multipart/form-data body", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		doc, err := readLog(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		dir, err := ResolveProjectDir(opts, r.FormValue(projectDirField))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_PROJECT_DIR", err.Error(), nil)
			return
		}

		result, err := svc.Analyze(r.Context(), doc, dir)
		if err != nil {
			slog.Error("analysis failed",
				"error", err,
				"request_id", mw.RequestIDFrom(r.Context()),
			)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Raw(w, http.StatusOK, result)
	}
}

func readLog(r *http.Request) (models.LogDocument, error) {
	file, header, err := r.FormFile(logField)
	if err != nil {
		return models.LogDocument{}, errors.New("log file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.LogDocument{}, errors.New("log file could not be read")
	}
	if len(data) == 0 {
		return models.LogDocument{}, errors.New("log file is empty")
	}

	return models.LogDocument{
		Name:    filepath.Base(header.Filename),
		Content: strings.ToValidUTF8(string(data), "\uFFFD"),
	}, nil
}

// ResolveProjectDir maps the request's project_dir onto the configured
// project root. An empty value selects the default directory. The value is
// cleaned as a rooted path before joining so it can never leave the root.
func ResolveProjectDir(opts AnalyzeOptions, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return opts.DefaultProjectDir, nil
	}
	if opts.ProjectRoot == "" {
		return "", ErrProjectDirNotAccepted
	}

	rel := filepath.Clean("/" + filepath.ToSlash(value))
	dir := filepath.Join(opts.ProjectRoot, rel)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", ErrProjectDirNotFound
	}
	return dir, nil
}
