package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/buildscope/internal/ai"
	"github.com/kiranshivaraju/buildscope/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)

	calls atomic.Int32
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// Calls returns how many times Complete was invoked.
func (m *MockProvider) Calls() int { return int(m.calls.Load()) }

// NewMockProvider returns a MockProvider replying with a well-formed JSON analysis.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return `{"summary": "Mock summary: compilation failed", "suggested_fixes": "1. Fix the import", "pr_title": "Fix missing import", "pr_body": "Adds the missing import so the build compiles."}`, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(name string, err error) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider(name string) *MockProvider {
	return &MockProvider{
		Name_: name,
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
