package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"personashield/internal/port"
	"personashield/internal/scan"
)

// MockScanRunner is a mock implementation of service.ScanRunner.
type MockScanRunner struct {
	mock.Mock
}

func (m *MockScanRunner) RunWith(ctx context.Context, filePath string, store port.ArtifactStore) (*scan.RunResult, error) {
	args := m.Called(ctx, filePath, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scan.RunResult), args.Error(1)
}
