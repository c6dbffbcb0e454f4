package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jonathan/resume-tailor/internal/llm"
)

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, opts llm.GenerateOptions) (string, error) {
	args := m.Called(ctx, prompt, tier, opts)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	args := m.Called(tier)
	return args.String(0)
}

func (m *MockLLMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
