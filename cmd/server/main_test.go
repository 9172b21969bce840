package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/buildscope/internal/cache"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock cache ──────────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Ping(_ context.Context) error { return c.pingErr }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*testCache)(nil)

// ─── helper: clear env ──────────────────────────────────────────────────────

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BUILDSCOPE_PORT", "BUILDSCOPE_MAX_UPLOAD_MB", "BUILDSCOPE_API_KEY_HASH", "REDIS_URL",
		"TOOL_TIMEOUT_SECS", "TOOLS_PARALLELISM", "PROJECT_DIR", "PROJECT_ROOT",
		"AI_INFERENCE_TIMEOUT_SECS", "OPENAI_API_KEY", "OLLAMA_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	clearConfigEnv(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

// ─── handler wiring tests ───────────────────────────────────────────────────

func TestNewHandler_HealthWithoutCache(t *testing.T) {
	h, _, err := newHandler(testConfig(t), nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	providers := data["providers"].(map[string]any)
	assert.Equal(t, "none", providers["primary"])
	assert.Equal(t, "none", providers["secondary"])
	assert.Len(t, data["tools"], 9)
}

func TestNewHandler_HealthCacheDegraded(t *testing.T) {
	h, _, err := newHandler(testConfig(t), &testCache{pingErr: errors.New("redis down")})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestNewHandler_AnalyzeRequiresAuthWhenHashSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.APIKeyHash = "$2a$04$abcdefghijklmnopqrstuuFZbQ3Ckq6n0b0xNnlBv7Zt0EjCRKvOK"

	h, _, err := newHandler(cfg, nil)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/analyze/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ─── write timeout ──────────────────────────────────────────────────────────

func TestWriteTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Timeout = 10 * time.Second
	cfg.AI.InferenceTimeout = 20 * time.Second

	cfg.Tools.Parallelism = 1
	assert.Equal(t, 9*10*time.Second+40*time.Second+writeSlack, writeTimeout(cfg, 9))

	cfg.Tools.Parallelism = 4
	assert.Equal(t, 3*10*time.Second+40*time.Second+writeSlack, writeTimeout(cfg, 9))
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnInvalidConfig(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BUILDSCOPE_PORT", "70000")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnUnreachableRedis(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
