package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the BuildScope server.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Tools  ToolsConfig
	AI     AIConfig
}

type ServerConfig struct {
	Port         int
	Env          string
	MaxUploadMB  int
	APIKeyHash   string
	RateLimitRPM int
}

type RedisConfig struct {
	URL string
}

// ToolsConfig controls how tool runners are invoked.
type ToolsConfig struct {
	Timeout     time.Duration
	Parallelism int
	ProjectDir  string
	ProjectRoot string
}

// AIConfig is the process-wide provider configuration. It is resolved once at
// startup and treated as read-only afterwards.
type AIConfig struct {
	InferenceTimeout time.Duration
	MaxLogBytes      int
	OpenAI           OpenAIConfig
	Ollama           OllamaConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

// HasOpenAI reports whether a primary provider credential is present.
func (c AIConfig) HasOpenAI() bool { return c.OpenAI.APIKey != "" }

// HasOllama reports whether a secondary provider is configured.
func (c AIConfig) HasOllama() bool { return c.Ollama.BaseURL != "" }

// Load reads configuration from the environment (and a .env file when present)
// and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         envInt("BUILDSCOPE_PORT", 8080),
			Env:          envString("BUILDSCOPE_ENV", "development"),
			MaxUploadMB:  envInt("BUILDSCOPE_MAX_UPLOAD_MB", 10),
			APIKeyHash:   os.Getenv("BUILDSCOPE_API_KEY_HASH"),
			RateLimitRPM: envInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Tools: ToolsConfig{
			Timeout:     envDurationSecs("TOOL_TIMEOUT_SECS", 60*time.Second),
			Parallelism: envInt("TOOLS_PARALLELISM", 1),
			ProjectDir:  os.Getenv("PROJECT_DIR"),
			ProjectRoot: os.Getenv("PROJECT_ROOT"),
		},
		AI: AIConfig{
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			MaxLogBytes:      envInt("AI_MAX_LOG_BYTES", 32*1024),
			OpenAI: OpenAIConfig{
				APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
				Model:   envString("OPENAI_MODEL", "gpt-4"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Ollama: OllamaConfig{
				BaseURL: os.Getenv("OLLAMA_BASE_URL"),
				Model:   envString("OLLAMA_MODEL", "llama3.2"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("BUILDSCOPE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("BUILDSCOPE_MAX_UPLOAD_MB must be positive, got %d", c.Server.MaxUploadMB)
	}

	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("TOOL_TIMEOUT_SECS must be positive")
	}
	if c.Tools.Parallelism < 1 {
		return fmt.Errorf("TOOLS_PARALLELISM must be at least 1, got %d", c.Tools.Parallelism)
	}

	if c.AI.InferenceTimeout <= 0 {
		return fmt.Errorf("AI_INFERENCE_TIMEOUT_SECS must be positive")
	}
	if c.AI.MaxLogBytes <= 0 {
		return fmt.Errorf("AI_MAX_LOG_BYTES must be positive, got %d", c.AI.MaxLogBytes)
	}
	if !isHTTPURL(c.AI.OpenAI.BaseURL) {
		return fmt.Errorf("OPENAI_BASE_URL must start with http:// or https://, got %q", c.AI.OpenAI.BaseURL)
	}
	if c.AI.HasOllama() && !isHTTPURL(c.AI.Ollama.BaseURL) {
		return fmt.Errorf("OLLAMA_BASE_URL must start with http:// or https://, got %q", c.AI.Ollama.BaseURL)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
