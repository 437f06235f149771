package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"personashield/internal/domain"
)

// MockScanJobRepo is a mock implementation of port.ScanJobRepository.
type MockScanJobRepo struct {
	mock.Mock
}

func (m *MockScanJobRepo) Create(ctx context.Context, rec *domain.ScanJobRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockScanJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanJobRecord), args.Error(1)
}

func (m *MockScanJobRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ScanJobRecord), args.Int(1), args.Error(2)
}
