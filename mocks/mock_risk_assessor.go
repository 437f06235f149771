package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"personashield/internal/domain"
	"personashield/internal/port"
)

// MockRiskAssessor is a mock implementation of port.RiskAssessor.
type MockRiskAssessor struct {
	mock.Mock
}

func (m *MockRiskAssessor) Assess(ctx context.Context, input port.AssessInput) (*domain.Assessment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assessment), args.Error(1)
}
