package ai

import "github.com/kiranshivaraju/buildscope/internal/ai/llm"

var (
	ErrProviderUnavailable = llm.ErrProviderUnavailable
	ErrProviderAuth        = llm.ErrProviderAuth
	ErrInferenceTimeout    = llm.ErrInferenceTimeout
	ErrInvalidResponse     = llm.ErrInvalidResponse
)
