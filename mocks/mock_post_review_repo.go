package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"personashield/internal/domain"
)

// MockPostReviewRepo is a mock implementation of port.PostReviewRepository.
type MockPostReviewRepo struct {
	mock.Mock
}

func (m *MockPostReviewRepo) Create(ctx context.Context, review *domain.PostReview) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockPostReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostReview), args.Error(1)
}

func (m *MockPostReviewRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReviewStatus, postID string) error {
	args := m.Called(ctx, id, from, to, postID)
	return args.Error(0)
}
