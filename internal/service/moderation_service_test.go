package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"personashield/internal/assessor"
	"personashield/internal/domain"
	"personashield/internal/port"
	"personashield/internal/scan"
	"personashield/internal/service"
	"personashield/mocks"
)

type moderationDeps struct {
	scanSvc    *mocks.MockScanService
	assessor   *mocks.MockRiskAssessor
	publisher  *mocks.MockPostPublisher
	reviewRepo *mocks.MockPostReviewRepo
}

func newModerationService() (service.ModerationService, moderationDeps) {
	return newModerationServiceWithLimit(20)
}

func newModerationServiceWithLimit(maxImageSizeMB int64) (service.ModerationService, moderationDeps) {
	deps := moderationDeps{
		scanSvc:    new(mocks.MockScanService),
		assessor:   new(mocks.MockRiskAssessor),
		publisher:  new(mocks.MockPostPublisher),
		reviewRepo: new(mocks.MockPostReviewRepo),
	}
	svc := service.NewModerationService(deps.scanSvc, deps.assessor, deps.publisher, deps.reviewRepo, maxImageSizeMB)
	return svc, deps
}

func TestModerationService_Assess_TextOnly(t *testing.T) {
	svc, deps := newModerationService()

	deps.assessor.On("Assess", mock.Anything, port.AssessInput{Text: "good morning"}).
		Return(&domain.Assessment{Verdict: domain.VerdictClear, Raw: "no", Model: "gpt-4o"}, nil)
	deps.reviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.PostReview")).Return(nil)

	review, err := svc.Assess(context.Background(), service.AssessInput{Text: "  good morning ", Operator: "alice"})

	require.NoError(t, err)
	assert.Equal(t, "good morning", review.Text)
	assert.Equal(t, domain.VerdictClear, review.Verdict)
	assert.Equal(t, domain.ReviewStatusPending, review.Status)
	assert.Equal(t, "alice", review.CreatedBy)
	assert.False(t, review.HasImage)
	assert.Nil(t, review.ScanJobID)
	deps.scanSvc.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestModerationService_Assess_WithImageScansFirst(t *testing.T) {
	svc, deps := newModerationService()

	scanID := uuid.New()
	deps.scanSvc.On("Scan", mock.Anything, mock.MatchedBy(func(in service.ScanInput) bool {
		return in.Filename == "photo.png"
	})).Return(&domain.ScanJobRecord{ID: scanID, RequestID: "req-1"}, nil)
	deps.assessor.On("Assess", mock.Anything, mock.MatchedBy(func(in port.AssessInput) bool {
		return in.Image != nil && in.Image.ContentType == "image/png"
	})).Return(&domain.Assessment{Verdict: domain.VerdictRisky, Details: "- station sign"}, nil)
	deps.reviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.PostReview")).Return(nil)

	review, err := svc.Assess(context.Background(), service.AssessInput{
		Text:  "heading home",
		Image: &service.ImageUpload{Filename: "photo.png", Content: pngContent()},
	})

	require.NoError(t, err)
	assert.True(t, review.HasImage)
	require.NotNil(t, review.ScanJobID)
	assert.Equal(t, scanID, *review.ScanJobID)
	assert.Equal(t, "image text extracted", review.ScanMessage)
	assert.Equal(t, domain.VerdictRisky, review.Verdict)
	assert.Equal(t, "- station sign", review.Details)
}

func TestModerationService_Assess_ScanFailureDoesNotBlock(t *testing.T) {
	svc, deps := newModerationService()

	scanErr := &scan.Error{Step: scan.StepPoll, Kind: scan.KindJobFailed, RequestID: "req-7"}
	deps.scanSvc.On("Scan", mock.Anything, mock.Anything).
		Return(&domain.ScanJobRecord{ID: uuid.New(), RequestID: "req-7"}, scanErr)
	deps.assessor.On("Assess", mock.Anything, mock.Anything).
		Return(&domain.Assessment{Verdict: domain.VerdictClear}, nil)
	deps.reviewRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	review, err := svc.Assess(context.Background(), service.AssessInput{
		Image: &service.ImageUpload{Filename: "photo.png", Content: pngContent()},
	})

	require.NoError(t, err)
	assert.Contains(t, review.ScanMessage, "req-7")
	assert.NotNil(t, review.ScanJobID)
}

func TestModerationService_Assess_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   service.AssessInput
		wantErr error
	}{
		{"empty post", service.AssessInput{Text: "   "}, domain.ErrEmptyPost},
		{"too long", service.AssessInput{Text: strings.Repeat("あ", domain.MaxPostLength+1)}, domain.ErrPostTooLong},
		{
			"unsupported image",
			service.AssessInput{Text: "hi", Image: &service.ImageUpload{Filename: "doc.pdf", Content: []byte("%PDF-1.4")}},
			domain.ErrUnsupportedFileType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newModerationService()
			_, err := svc.Assess(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			deps.assessor.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
		})
	}
}

func TestModerationService_Assess_MaxLengthCountsRunes(t *testing.T) {
	svc, deps := newModerationService()
	deps.assessor.On("Assess", mock.Anything, mock.Anything).Return(&domain.Assessment{Verdict: domain.VerdictClear}, nil)
	deps.reviewRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Assess(context.Background(), service.AssessInput{Text: strings.Repeat("あ", domain.MaxPostLength)})
	assert.NoError(t, err)
}

func TestModerationService_Assess_AssessorRateLimited(t *testing.T) {
	svc, deps := newModerationService()
	rlErr := assessor.NewRateLimitError("openai", errors.New("429"), 30)
	deps.assessor.On("Assess", mock.Anything, mock.Anything).Return(nil, rlErr)

	_, err := svc.Assess(context.Background(), service.AssessInput{Text: "hi"})

	assert.ErrorIs(t, err, domain.ErrAssessmentFailed)
	var target *assessor.RateLimitError
	assert.True(t, errors.As(err, &target))
	deps.reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestModerationService_Publish(t *testing.T) {
	tests := []struct {
		name      string
		review    domain.PostReview
		confirm   bool
		wantErr   error
		publishes bool
	}{
		{"clear publishes", domain.PostReview{Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending}, false, nil, true},
		{"risky needs confirm", domain.PostReview{Text: "hi", Verdict: domain.VerdictRisky, Status: domain.ReviewStatusPending}, false, domain.ErrRiskNotAcknowledged, false},
		{"risky confirmed", domain.PostReview{Text: "hi", Verdict: domain.VerdictRisky, Status: domain.ReviewStatusPending}, true, nil, true},
		{"unknown verdict", domain.PostReview{Text: "hi", Verdict: domain.VerdictUnknown, Status: domain.ReviewStatusPending}, true, domain.ErrVerdictUnknown, false},
		{"already published", domain.PostReview{Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPublished}, false, domain.ErrReviewNotPending, false},
		{"image only", domain.PostReview{Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending, HasImage: true}, false, domain.ErrEmptyPost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newModerationService()
			id := uuid.New()
			review := tt.review
			review.ID = id

			deps.reviewRepo.On("GetByID", mock.Anything, id).Return(&review, nil)
			deps.publisher.On("Publish", mock.Anything, "hi").Return("1800000000000000000", nil)
			deps.reviewRepo.On("UpdateStatus", mock.Anything, id,
				domain.ReviewStatusPending, domain.ReviewStatusPublishing, "").Return(nil)
			deps.reviewRepo.On("UpdateStatus", mock.Anything, id,
				domain.ReviewStatusPublishing, domain.ReviewStatusPublished, "1800000000000000000").Return(nil)

			got, err := svc.Publish(context.Background(), id, tt.confirm)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.ReviewStatusPublished, got.Status)
				assert.Equal(t, "1800000000000000000", got.PostID)
				assert.NotNil(t, got.PublishedAt)
			}
			if tt.publishes {
				deps.publisher.AssertCalled(t, "Publish", mock.Anything, "hi")
			} else {
				deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestModerationService_Publish_PublisherError(t *testing.T) {
	svc, deps := newModerationService()
	id := uuid.New()
	deps.reviewRepo.On("GetByID", mock.Anything, id).
		Return(&domain.PostReview{ID: id, Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending}, nil)
	deps.reviewRepo.On("UpdateStatus", mock.Anything, id,
		domain.ReviewStatusPending, domain.ReviewStatusPublishing, "").Return(nil).Once()
	deps.reviewRepo.On("UpdateStatus", mock.Anything, id,
		domain.ReviewStatusPublishing, domain.ReviewStatusPending, "").Return(nil).Once()
	deps.publisher.On("Publish", mock.Anything, "hi").Return("", errors.New("status 403"))

	_, err := svc.Publish(context.Background(), id, false)

	assert.ErrorIs(t, err, domain.ErrPublishFailed)
	deps.reviewRepo.AssertExpectations(t)
	deps.reviewRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, id,
		domain.ReviewStatusPublishing, domain.ReviewStatusPublished, mock.Anything)
}

func TestModerationService_Publish_NotFound(t *testing.T) {
	svc, deps := newModerationService()
	id := uuid.New()
	deps.reviewRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrReviewNotFound)

	_, err := svc.Publish(context.Background(), id, true)
	assert.ErrorIs(t, err, domain.ErrReviewNotFound)
}

func TestModerationService_Cancel(t *testing.T) {
	svc, deps := newModerationService()
	id := uuid.New()
	deps.reviewRepo.On("UpdateStatus", mock.Anything, id, domain.ReviewStatusPending, domain.ReviewStatusCancelled, "").Return(nil)
	deps.reviewRepo.On("GetByID", mock.Anything, id).
		Return(&domain.PostReview{ID: id, Status: domain.ReviewStatusCancelled}, nil)

	got, err := svc.Cancel(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusCancelled, got.Status)
}

func TestModerationService_Cancel_NotPending(t *testing.T) {
	svc, deps := newModerationService()
	id := uuid.New()
	deps.reviewRepo.On("UpdateStatus", mock.Anything, id, domain.ReviewStatusPending, domain.ReviewStatusCancelled, "").Return(domain.ErrReviewNotPending)

	_, err := svc.Cancel(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrReviewNotPending)
}

func TestModerationService_Assess_ImageTooLarge(t *testing.T) {
	svc, deps := newModerationServiceWithLimit(1)

	big := append(pngContent(), bytes.Repeat([]byte{0x00}, 1024*1024)...)
	_, err := svc.Assess(context.Background(), service.AssessInput{
		Text:  "hi",
		Image: &service.ImageUpload{Filename: "photo.png", Content: big},
	})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	deps.scanSvc.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
	deps.assessor.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
}

func TestModerationService_Publish_ClaimLost(t *testing.T) {
	svc, deps := newModerationService()
	id := uuid.New()
	deps.reviewRepo.On("GetByID", mock.Anything, id).
		Return(&domain.PostReview{ID: id, Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending}, nil)
	deps.reviewRepo.On("UpdateStatus", mock.Anything, id,
		domain.ReviewStatusPending, domain.ReviewStatusPublishing, "").Return(domain.ErrReviewNotPending)

	_, err := svc.Publish(context.Background(), id, false)

	assert.ErrorIs(t, err, domain.ErrReviewNotPending)
	deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// memReviewRepo is a PostReviewRepository whose UpdateStatus is conditional
// on the current status, like the postgres one.
type memReviewRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]domain.PostReview
}

func (r *memReviewRepo) Create(_ context.Context, review *domain.PostReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews[review.ID] = *review
	return nil
}

func (r *memReviewRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.PostReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	return &review, nil
}

func (r *memReviewRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.ReviewStatus, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return domain.ErrReviewNotFound
	}
	if review.Status != from {
		return domain.ErrReviewNotPending
	}
	review.Status = to
	review.PostID = postID
	r.reviews[id] = review
	return nil
}

// gatedPublisher blocks every Publish call until release is closed.
type gatedPublisher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (p *gatedPublisher) Publish(ctx context.Context, _ string) (string, error) {
	p.calls.Add(1)
	select {
	case <-p.release:
		return "1800000000000000001", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestModerationService_Publish_ConcurrentRequestsPostOnce(t *testing.T) {
	id := uuid.New()
	repo := &memReviewRepo{reviews: map[uuid.UUID]domain.PostReview{
		id: {ID: id, Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending},
	}}
	pub := &gatedPublisher{release: make(chan struct{})}
	svc := service.NewModerationService(new(mocks.MockScanService), new(mocks.MockRiskAssessor), pub, repo, 20)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Publish(context.Background(), id, false)
			errs <- err
		}()
	}

	// The loser returns without reaching the publisher, which is still held.
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, domain.ErrReviewNotPending)
	case <-time.After(5 * time.Second):
		t.Fatal("no publish request returned while the publisher was held")
	}
	close(pub.release)
	require.NoError(t, <-errs)

	assert.Equal(t, int32(1), pub.calls.Load())
	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusPublished, got.Status)
	assert.Equal(t, "1800000000000000001", got.PostID)
}

func TestModerationService_Publish_FailureReleasesReview(t *testing.T) {
	id := uuid.New()
	repo := &memReviewRepo{reviews: map[uuid.UUID]domain.PostReview{
		id: {ID: id, Text: "hi", Verdict: domain.VerdictClear, Status: domain.ReviewStatusPending},
	}}
	pub := new(mocks.MockPostPublisher)
	pub.On("Publish", mock.Anything, "hi").Return("", errors.New("status 503")).Once()
	pub.On("Publish", mock.Anything, "hi").Return("1800000000000000002", nil).Once()
	svc := service.NewModerationService(new(mocks.MockScanService), new(mocks.MockRiskAssessor), pub, repo, 20)

	_, err := svc.Publish(context.Background(), id, false)
	require.ErrorIs(t, err, domain.ErrPublishFailed)
	got, _ := repo.GetByID(context.Background(), id)
	assert.Equal(t, domain.ReviewStatusPending, got.Status)

	review, err := svc.Publish(context.Background(), id, false)
	require.NoError(t, err)
	assert.Equal(t, "1800000000000000002", review.PostID)
}
