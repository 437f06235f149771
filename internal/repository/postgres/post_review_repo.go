package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"personashield/internal/domain"
	"personashield/internal/port"
)

type postReviewRepo struct {
	db *sqlx.DB
}

// NewPostReviewRepo creates a new PostgreSQL-backed PostReviewRepository.
func NewPostReviewRepo(db *sqlx.DB) port.PostReviewRepository {
	return &postReviewRepo{db: db}
}

func (r *postReviewRepo) Create(ctx context.Context, review *domain.PostReview) error {
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	query := `INSERT INTO post_reviews
		(id, text, has_image, verdict, details, raw_output, model, scan_job_id,
		 scan_message, status, post_id, created_by, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		review.ID, review.Text, review.HasImage, review.Verdict, review.Details, review.RawOutput,
		review.Model, review.ScanJobID, review.ScanMessage, review.Status, review.PostID,
		review.CreatedBy, review.PublishedAt, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postReviewRepo.Create: %w", err)
	}
	return nil
}

func (r *postReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	var review domain.PostReview
	err := r.db.GetContext(ctx, &review, "SELECT * FROM post_reviews WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("postReviewRepo.GetByID: %w", err)
	}
	return &review, nil
}

func (r *postReviewRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ReviewStatus, postID string) error {
	now := time.Now().UTC()
	var publishedAt *time.Time
	if to == domain.ReviewStatusPublished {
		publishedAt = &now
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE post_reviews
		 SET status = $1, post_id = $2, published_at = $3, updated_at = $4
		 WHERE id = $5 AND status = $6`,
		to, postID, publishedAt, now, id, from)
	if err != nil {
		return fmt.Errorf("postReviewRepo.UpdateStatus: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postReviewRepo.UpdateStatus rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing updated: either the review does not exist or it left from.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrReviewNotPending
}
