package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jonathan/resume-tailor/internal/types"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, tc *types.TailoringContext) (*types.TailoringResult, error) {
	args := m.Called(ctx, tc)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*types.TailoringResult), args.Error(1)
}
