package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"personashield/internal/domain"
	"personashield/internal/port"
)

// ImageUpload is an image attached to a composed post.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// AssessInput is the DTO for assessing a composed post.
type AssessInput struct {
	Text     string
	Image    *ImageUpload
	Operator string
}

// PublishInput is the DTO for publishing an assessed post.
type PublishInput struct {
	Confirm bool `json:"confirm"`
}

// ModerationService defines the post assessment and publishing contract.
type ModerationService interface {
	Assess(ctx context.Context, input AssessInput) (*domain.PostReview, error)
	Publish(ctx context.Context, id uuid.UUID, confirm bool) (*domain.PostReview, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.PostReview, error)
	GetReview(ctx context.Context, id uuid.UUID) (*domain.PostReview, error)
}

type moderationService struct {
	scanSvc    ScanService
	assessor   port.RiskAssessor
	publisher  port.PostPublisher
	reviewRepo port.PostReviewRepository

	maxImageBytes int64
}

// NewModerationService creates a new ModerationService. Attached images above
// maxImageSizeMB are rejected; zero disables the limit.
func NewModerationService(
	scanSvc ScanService,
	assessor port.RiskAssessor,
	publisher port.PostPublisher,
	reviewRepo port.PostReviewRepository,
	maxImageSizeMB int64,
) ModerationService {
	return &moderationService{
		scanSvc:       scanSvc,
		assessor:      assessor,
		publisher:     publisher,
		reviewRepo:    reviewRepo,
		maxImageBytes: maxImageSizeMB * 1024 * 1024,
	}
}

func (s *moderationService) Assess(ctx context.Context, input AssessInput) (*domain.PostReview, error) {
	text := strings.TrimSpace(input.Text)
	if utf8.RuneCountInString(text) > domain.MaxPostLength {
		return nil, domain.ErrPostTooLong
	}
	if text == "" && input.Image == nil {
		return nil, domain.ErrEmptyPost
	}

	review := &domain.PostReview{
		ID:        uuid.New(),
		Text:      text,
		HasImage:  input.Image != nil,
		Status:    domain.ReviewStatusPending,
		CreatedBy: input.Operator,
	}

	assessInput := port.AssessInput{Text: text}
	if input.Image != nil {
		contentType, err := detectImageType(input.Image.Filename, input.Image.Content)
		if err != nil {
			return nil, err
		}
		if s.maxImageBytes > 0 && int64(len(input.Image.Content)) > s.maxImageBytes {
			return nil, domain.ErrFileTooLarge
		}
		assessInput.Image = &port.ImageInput{
			Bytes:       input.Image.Content,
			Filename:    input.Image.Filename,
			ContentType: contentType,
		}
		s.scanImage(ctx, review, input.Image)
	}

	assessment, err := s.assessor.Assess(ctx, assessInput)
	if err != nil {
		log.Printf("moderationService.Assess: assessment of review %s failed: %v", review.ID, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrAssessmentFailed, err)
	}
	review.Verdict = assessment.Verdict
	review.Details = assessment.Details
	review.RawOutput = assessment.Raw
	review.Model = assessment.Model

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("recording post review: %w", err)
	}

	log.Printf("moderationService.Assess: review %s verdict=%s has_image=%t", review.ID, review.Verdict, review.HasImage)
	return review, nil
}

// scanImage runs the attached image through the scan service and records the
// outcome on the review. A failed scan never blocks the assessment.
func (s *moderationService) scanImage(ctx context.Context, review *domain.PostReview, image *ImageUpload) {
	rec, err := s.scanSvc.Scan(ctx, ScanInput{Filename: image.Filename, Content: image.Content})
	if rec != nil {
		id := rec.ID
		review.ScanJobID = &id
	}
	if err == nil {
		review.ScanMessage = "image text extracted"
		return
	}

	log.Printf("moderationService.Assess: scan of %s failed: %v", image.Filename, err)
	if rec != nil && rec.RequestID != "" {
		review.ScanMessage = fmt.Sprintf("image text could not be extracted (request %s)", rec.RequestID)
		return
	}
	review.ScanMessage = "image text could not be extracted"
}

func (s *moderationService) Publish(ctx context.Context, id uuid.UUID, confirm bool) (*domain.PostReview, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Status != domain.ReviewStatusPending {
		return nil, domain.ErrReviewNotPending
	}

	switch review.Verdict {
	case domain.VerdictClear:
	case domain.VerdictRisky:
		if !confirm {
			return nil, domain.ErrRiskNotAcknowledged
		}
	default:
		return nil, domain.ErrVerdictUnknown
	}

	if review.Text == "" {
		return nil, domain.ErrEmptyPost
	}

	// Claim the review before posting; a concurrent publish loses here.
	if err := s.reviewRepo.UpdateStatus(ctx, id, domain.ReviewStatusPending, domain.ReviewStatusPublishing, ""); err != nil {
		return nil, err
	}

	postID, err := s.publisher.Publish(ctx, review.Text)
	if err != nil {
		log.Printf("moderationService.Publish: publishing review %s failed: %v", id, err)
		if rbErr := s.reviewRepo.UpdateStatus(context.WithoutCancel(ctx), id,
			domain.ReviewStatusPublishing, domain.ReviewStatusPending, ""); rbErr != nil {
			log.Printf("moderationService.Publish: failed to release review %s: %v", id, rbErr)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
	}

	if err := s.reviewRepo.UpdateStatus(context.WithoutCancel(ctx), id,
		domain.ReviewStatusPublishing, domain.ReviewStatusPublished, postID); err != nil {
		log.Printf("moderationService.Publish: review %s was published as post %s but not recorded: %v", id, postID, err)
		return nil, err
	}

	now := time.Now()
	review.Status = domain.ReviewStatusPublished
	review.PostID = postID
	review.PublishedAt = &now
	review.UpdatedAt = now

	log.Printf("moderationService.Publish: review %s published as post %s", id, postID)
	return review, nil
}

func (s *moderationService) Cancel(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	if err := s.reviewRepo.UpdateStatus(ctx, id, domain.ReviewStatusPending, domain.ReviewStatusCancelled, ""); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(ctx, id)
}

func (s *moderationService) GetReview(ctx context.Context, id uuid.UUID) (*domain.PostReview, error) {
	return s.reviewRepo.GetByID(ctx, id)
}
