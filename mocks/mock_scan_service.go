package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"personashield/internal/artifact"
	"personashield/internal/domain"
	"personashield/internal/service"
)

// MockScanService is a mock implementation of service.ScanService.
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Scan(ctx context.Context, input service.ScanInput) (*domain.ScanJobRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanJobRecord), args.Error(1)
}

func (m *MockScanService) GetJob(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanJobRecord), args.Error(1)
}

func (m *MockScanService) ListJobs(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ScanJobRecord), args.Int(1), args.Error(2)
}

func (m *MockScanService) GetArtifact(ctx context.Context, id uuid.UUID, format artifact.Format) (*service.Artifact, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Artifact), args.Error(1)
}
