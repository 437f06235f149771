package port

import (
	"context"

	"personashield/internal/domain"
)

// ImageInput is an image attached to a post.
type ImageInput struct {
	Bytes       []byte
	Filename    string
	ContentType string
}

// AssessInput carries a composed post for risk assessment.
type AssessInput struct {
	Text  string
	Image *ImageInput
}

// RiskAssessor asks a vision-language model whether a post carries risk.
type RiskAssessor interface {
	Assess(ctx context.Context, input AssessInput) (*domain.Assessment, error)
}
