package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/kiranshivaraju/buildscope/internal/ai/llm"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

const minKeyLen = 20

// Provider implements models.AIProvider against an OpenAI-compatible
// chat completions endpoint.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{cfg: cfg, client: llm.NewHTTPClient()}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Model() string { return p.cfg.Model }

// ValidKey is a lightweight, offline sanity check of an API key's shape.
func ValidKey(key string) bool {
	if len(key) < minKeyLen || !strings.HasPrefix(key, "sk-") {
		return false
	}
	return strings.IndexFunc(key, unicode.IsSpace) < 0
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if !ValidKey(p.cfg.APIKey) {
		return "", fmt.Errorf("%w: malformed OpenAI API key", llm.ErrProviderAuth)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	u := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", llm.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", llm.StatusError(resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding chat response: %v", llm.ErrInvalidResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", llm.ErrInvalidResponse)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", llm.ErrInvalidResponse)
	}
	return content, nil
}

// --- OpenAI wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

var _ models.AIProvider = (*Provider)(nil)
