package port

import (
	"context"

	"github.com/google/uuid"

	"personashield/internal/domain"
)

// ScanJobRepository persists scan run audit records.
type ScanJobRepository interface {
	Create(ctx context.Context, rec *domain.ScanJobRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error)
	ListRecent(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error)
}

// PostReviewRepository persists moderation decisions.
type PostReviewRepository interface {
	Create(ctx context.Context, review *domain.PostReview) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PostReview, error)
	// UpdateStatus moves a review from status from to status to in one
	// conditional write. It returns domain.ErrReviewNotPending when the
	// review is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReviewStatus, postID string) error
}
