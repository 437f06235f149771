package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"personashield/internal/domain"
	"personashield/internal/service"
)

// MockModerationService is a mock implementation of service.ModerationService.
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) Assess(ctx context.Context, input service.AssessInput) (*domain.PostReview, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostReview), args.Error(1)
}

func (m *MockModerationService) Publish(ctx context.Context, id uuid.UUID, confirm bool) (*domain.PostReview, error) {
	args := m.Called(ctx, id, confirm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostReview), args.Error(1)
}

func (m *MockModerationService) Cancel(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostReview), args.Error(1)
}

func (m *MockModerationService) GetReview(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostReview), args.Error(1)
}
