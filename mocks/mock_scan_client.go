package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"personashield/internal/domain"
	"personashield/internal/port"
)

// MockScanClient is a mock implementation of port.ScanClient.
type MockScanClient struct {
	mock.Mock
}

func (m *MockScanClient) Submit(ctx context.Context, input port.SubmitInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockScanClient) PollStatus(ctx context.Context, requestID string) (*domain.StatusSnapshot, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusSnapshot), args.Error(1)
}

func (m *MockScanClient) FetchResult(ctx context.Context, requestID string) (*domain.ScanResult, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}
