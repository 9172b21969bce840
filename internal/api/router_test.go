package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/buildscope/internal/ai"
	"github.com/kiranshivaraju/buildscope/internal/analyzer"
	"github.com/kiranshivaraju/buildscope/internal/api"
	"github.com/kiranshivaraju/buildscope/internal/api/handler"
	mw "github.com/kiranshivaraju/buildscope/internal/api/middleware"
	"github.com/kiranshivaraju/buildscope/internal/cache"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/internal/tools"
	"github.com/kiranshivaraju/buildscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Ping(_ context.Context) error { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- helpers ---

// unreachableURL returns the address of a server that has already shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func newPipelineRouter(t *testing.T, deps api.Dependencies) http.Handler {
	t.Helper()
	agg, err := tools.NewAggregator(tools.DefaultRunners(config.ToolsConfig{Timeout: 5 * time.Second}), 1)
	require.NoError(t, err)

	summarizer := ai.NewSummarizerFromConfig(config.AIConfig{
		InferenceTimeout: 2 * time.Second,
		MaxLogBytes:      4096,
		OpenAI: config.OpenAIConfig{
			APIKey:  "sk-test-0123456789abcdefghij",
			Model:   "gpt-4",
			BaseURL: unreachableURL(t),
		},
		Ollama: config.OllamaConfig{
			BaseURL: unreachableURL(t),
			Model:   "llama3.2",
		},
	})

	deps.AnalyzeHandler = handler.NewAnalyzeHandler(
		analyzer.NewService(agg, summarizer),
		handler.AnalyzeOptions{MaxUploadBytes: 1 << 20},
	)
	deps.HealthHandler = handler.NewHealthHandler(handler.HealthInfo{Tools: agg.Names()}, nil)
	return api.NewRouter(deps)
}

func uploadRequest(t *testing.T, path, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, err := mpw.CreateFormFile("log", "build.log")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	return req
}

// --- router tests ---

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newPipelineRouter(t, api.Dependencies{Auth: mw.NewAuth("$2a$04$invalidhashinvalidhashinvalidhashinvalidhashinvalid")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(mw.RequestIDHeader))
}

func TestRouter_Analyze_BothProvidersUnreachable(t *testing.T) {
	router := newPipelineRouter(t, api.Dependencies{})

	for _, path := range []string{"/analyze/", "/analyze"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, path, "compiling\nERROR: build failed\n"))

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var body struct {
				ToolResults map[string]struct {
					ToolName string `json:"tool_name"`
					Status   string `json:"status"`
					Output   string `json:"output"`
				} `json:"tool_results"`
				Summary    string          `json:"summary"`
				HTMLReport string          `json:"html_report"`
				Data       json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

			assert.Nil(t, body.Data)
			assert.Equal(t, ai.FailureSummary, body.Summary)
			assert.NotEmpty(t, body.HTMLReport)
			require.NotEmpty(t, body.ToolResults)
			for name, r := range body.ToolResults {
				assert.Equal(t, name, r.ToolName)
			}

			var ordered models.AnalysisResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ordered))
			require.Len(t, ordered.ToolResults, len(body.ToolResults))
			assert.Equal(t, tools.NameBuildStatus, ordered.ToolResults[0].ToolName)

			errorLines := body.ToolResults[tools.NameErrorLines].Output
			assert.Contains(t, errorLines, "ERROR: build failed")
		})
	}
}

func TestRouter_Analyze_RequiresAuthWhenConfigured(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("bs_router_key_123456"), bcrypt.MinCost)
	require.NoError(t, err)
	router := newPipelineRouter(t, api.Dependencies{Auth: mw.NewAuth(string(hash))})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/analyze/", "ERROR: x\n"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_TOKEN", errObj["code"])
}

func TestRouter_Analyze_RateLimitHeaders(t *testing.T) {
	router := newPipelineRouter(t, api.Dependencies{RateLimit: mw.NewRateLimit(&stubCache{}, 10)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/analyze/", "ok\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_Analyze_WrongMethod(t *testing.T) {
	router := newPipelineRouter(t, api.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/analyze/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newPipelineRouter(t, api.Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_NilHandlersAreNotImplemented(t *testing.T) {
	router := api.NewRouter(api.Dependencies{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "/analyze/", "ok\n"))

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

var _ cache.Cache = (*stubCache)(nil)
