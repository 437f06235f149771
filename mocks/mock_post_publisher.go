package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPostPublisher is a mock implementation of port.PostPublisher.
type MockPostPublisher struct {
	mock.Mock
}

func (m *MockPostPublisher) Publish(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}
