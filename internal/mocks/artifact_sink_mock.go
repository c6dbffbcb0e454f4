package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockArtifactSink struct {
	mock.Mock
}

func (m *MockArtifactSink) Store(ctx context.Context, userID, jobID, kind, text string) error {
	args := m.Called(ctx, userID, jobID, kind, text)
	return args.Error(0)
}
