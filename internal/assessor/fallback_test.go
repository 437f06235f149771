package assessor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"personashield/internal/assessor"
	"personashield/internal/config"
	"personashield/internal/domain"
	"personashield/internal/port"
	"personashield/mocks"
)

var testInput = port.AssessInput{Text: "heading home"}

func TestFallbackAssessor_FirstSucceeds(t *testing.T) {
	a1 := new(mocks.MockRiskAssessor)
	a2 := new(mocks.MockRiskAssessor)
	a1.On("Assess", mock.Anything, testInput).Return(&domain.Assessment{Verdict: domain.VerdictClear, Model: "azure"}, nil)

	fa := assessor.NewFallbackAssessor([]port.RiskAssessor{a1, a2}, []string{"azure", "openai"})
	got, err := fa.Assess(context.Background(), testInput)

	require.NoError(t, err)
	assert.Equal(t, "azure", got.Model)
	a2.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
}

func TestFallbackAssessor_FallsBackOnError(t *testing.T) {
	a1 := new(mocks.MockRiskAssessor)
	a2 := new(mocks.MockRiskAssessor)
	a1.On("Assess", mock.Anything, testInput).Return(nil, errors.New("status 500"))
	a2.On("Assess", mock.Anything, testInput).Return(&domain.Assessment{Verdict: domain.VerdictRisky, Model: "openai"}, nil)

	fa := assessor.NewFallbackAssessor([]port.RiskAssessor{a1, a2}, []string{"azure", "openai"})
	got, err := fa.Assess(context.Background(), testInput)

	require.NoError(t, err)
	assert.Equal(t, "openai", got.Model)
}

func TestFallbackAssessor_SkipsRateLimitedProvider(t *testing.T) {
	a1 := new(mocks.MockRiskAssessor)
	a2 := new(mocks.MockRiskAssessor)
	a1.On("Assess", mock.Anything, testInput).Return(nil, assessor.NewRateLimitError("azure", errors.New("429"), 60)).Once()
	a2.On("Assess", mock.Anything, testInput).Return(&domain.Assessment{Verdict: domain.VerdictClear}, nil)

	fa := assessor.NewFallbackAssessor([]port.RiskAssessor{a1, a2}, []string{"azure", "openai"})

	_, err := fa.Assess(context.Background(), testInput)
	require.NoError(t, err)
	_, err = fa.Assess(context.Background(), testInput)
	require.NoError(t, err)

	a1.AssertNumberOfCalls(t, "Assess", 1)
	a2.AssertNumberOfCalls(t, "Assess", 2)
}

func TestFallbackAssessor_AllRateLimited(t *testing.T) {
	a1 := new(mocks.MockRiskAssessor)
	a2 := new(mocks.MockRiskAssessor)
	a1.On("Assess", mock.Anything, testInput).Return(nil, assessor.NewRateLimitError("azure", errors.New("429"), 30))
	a2.On("Assess", mock.Anything, testInput).Return(nil, assessor.NewRateLimitError("openai", errors.New("429"), 90))

	fa := assessor.NewFallbackAssessor([]port.RiskAssessor{a1, a2}, []string{"azure", "openai"})
	_, err := fa.Assess(context.Background(), testInput)

	var rlErr *assessor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
	assert.InDelta(t, 30, rlErr.RetryAfter.Seconds(), 2)
}

func TestFallbackAssessor_AllFail(t *testing.T) {
	a1 := new(mocks.MockRiskAssessor)
	a2 := new(mocks.MockRiskAssessor)
	a1.On("Assess", mock.Anything, testInput).Return(nil, assessor.NewRateLimitError("azure", errors.New("429"), 30))
	a2.On("Assess", mock.Anything, testInput).Return(nil, errors.New("status 500"))

	fa := assessor.NewFallbackAssessor([]port.RiskAssessor{a1, a2}, []string{"azure", "openai"})
	_, err := fa.Assess(context.Background(), testInput)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all assessors failed")
	var rlErr *assessor.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := assessor.New(&config.AssessorConfig{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestNewChain_RegisteredProviders(t *testing.T) {
	assessor.RegisterProvider("fake", func(cfg *config.AssessorConfig) (port.RiskAssessor, error) {
		return new(mocks.MockRiskAssessor), nil
	})

	single, err := assessor.NewChain(&config.AssessorConfig{Provider: "fake", Endpoint: "http://primary"}, &config.AssessorConfig{})
	require.NoError(t, err)
	_, isChain := single.(*assessor.FallbackAssessor)
	assert.False(t, isChain)

	chain, err := assessor.NewChain(
		&config.AssessorConfig{Provider: "fake", Endpoint: "http://primary"},
		&config.AssessorConfig{Provider: "fake", Endpoint: "http://fallback"},
	)
	require.NoError(t, err)
	_, isChain = chain.(*assessor.FallbackAssessor)
	assert.True(t, isChain)

	_, err = assessor.NewChain(
		&config.AssessorConfig{Provider: "fake", Endpoint: "http://primary"},
		&config.AssessorConfig{Provider: "nope", Endpoint: "http://fallback"},
	)
	assert.Error(t, err)
}
