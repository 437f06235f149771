package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"personashield/internal/artifact"
	"personashield/internal/domain"
	"personashield/internal/port"
	"personashield/internal/scan"
)

// ScanInput is the DTO for scanning an uploaded image.
type ScanInput struct {
	Filename string
	Content  []byte
}

// Artifact is a scan's extracted text in the requested format.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
	Summary     artifact.Summary
}

// ScanRunner runs one file through the remote scan lifecycle, writing the
// artifact through store.
type ScanRunner interface {
	RunWith(ctx context.Context, filePath string, store port.ArtifactStore) (*scan.RunResult, error)
}

// ArtifactStoreFunc opens the artifact store of one scan job.
type ArtifactStoreFunc func(jobID uuid.UUID) port.ArtifactStore

// ScanService defines the scan contract.
type ScanService interface {
	// Scan runs the upload through the scan service. A non-nil record is
	// returned whenever a run was attempted, even when the returned error is
	// non-nil, so callers can surface the request ID.
	Scan(ctx context.Context, input ScanInput) (*domain.ScanJobRecord, error)
	GetJob(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error)
	ListJobs(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error)
	GetArtifact(ctx context.Context, id uuid.UUID, format artifact.Format) (*Artifact, error)
}

type scanService struct {
	runner       ScanRunner
	artifacts    ArtifactStoreFunc
	jobRepo      port.ScanJobRepository
	storage      port.ObjectStorage
	model        string
	maxFileBytes int64
}

// NewScanService creates a new ScanService. artifacts gives every job its own
// store; when nil the runner's store is used. storage may be nil, in which
// case artifacts are kept on local disk only.
func NewScanService(
	runner ScanRunner,
	artifacts ArtifactStoreFunc,
	jobRepo port.ScanJobRepository,
	storage port.ObjectStorage,
	model string,
	maxFileSizeMB int64,
) ScanService {
	return &scanService{
		runner:       runner,
		artifacts:    artifacts,
		jobRepo:      jobRepo,
		storage:      storage,
		model:        model,
		maxFileBytes: maxFileSizeMB * 1024 * 1024,
	}
}

func (s *scanService) Scan(ctx context.Context, input ScanInput) (*domain.ScanJobRecord, error) {
	if _, err := detectImageType(input.Filename, input.Content); err != nil {
		return nil, err
	}
	if s.maxFileBytes > 0 && int64(len(input.Content)) > s.maxFileBytes {
		return nil, domain.ErrFileTooLarge
	}

	tmpDir, err := os.MkdirTemp("", "personashield-scan-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	filename := filepath.Base(input.Filename)
	stagedPath := filepath.Join(tmpDir, filename)
	if err := os.WriteFile(stagedPath, input.Content, 0o600); err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}

	rec := &domain.ScanJobRecord{
		ID:       uuid.New(),
		Filename: filename,
		Model:    s.model,
	}

	var store port.ArtifactStore
	if s.artifacts != nil {
		store = s.artifacts(rec.ID)
	}

	res, runErr := s.runner.RunWith(ctx, stagedPath, store)
	if runErr != nil {
		applyRunError(rec, runErr)
		log.Printf("scanService.Scan: scan of %s failed (request %q, step %s, code %d): %v",
			filename, rec.RequestID, rec.ErrorStep, rec.ErrorCode, runErr)
	} else {
		rec.RequestID = res.Job.RequestID
		rec.Status = domain.ScanStatusCompleted
		rec.OutputPath = res.OutputPath
		rec.CompletedAt = res.Job.CompletedAt
		rec.ObjectKey = s.mirror(ctx, rec)
	}

	if err := s.jobRepo.Create(ctx, rec); err != nil {
		log.Printf("scanService.Scan: failed to record scan job %s: %v", rec.ID, err)
		if rec.ObjectKey != "" {
			if delErr := s.storage.Delete(ctx, rec.ObjectKey); delErr != nil {
				log.Printf("scanService.Scan: failed to remove mirrored artifact %s: %v", rec.ObjectKey, delErr)
			}
		}
		return nil, fmt.Errorf("recording scan job: %w", err)
	}

	return rec, runErr
}

// mirror uploads the rendered artifact to object storage and returns its
// key. Mirroring failures are logged and leave the local artifact in place.
func (s *scanService) mirror(ctx context.Context, rec *domain.ScanJobRecord) string {
	if s.storage == nil {
		return ""
	}

	f, err := os.Open(rec.OutputPath)
	if err != nil {
		log.Printf("scanService.mirror: opening %s: %v", rec.OutputPath, err)
		return ""
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("%s/%s", rec.ID, filepath.Base(rec.OutputPath))
	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        f,
		ContentType: "text/markdown; charset=utf-8",
	}); err != nil {
		log.Printf("scanService.mirror: uploading %s: %v", key, err)
		return ""
	}
	return key
}

func applyRunError(rec *domain.ScanJobRecord, runErr error) {
	rec.Status = domain.ScanStatusError
	rec.ErrorCode = scan.GenericFailureCode
	rec.ErrorMessage = runErr.Error()

	scanErr, ok := scan.AsError(runErr)
	if !ok {
		return
	}
	rec.RequestID = scanErr.RequestID
	rec.ErrorStep = string(scanErr.Step)
	rec.ErrorCode = scanErr.Code()
	if errors.Is(runErr, scan.ErrJobFailed) {
		rec.Status = domain.ScanStatusFailed
	}
}

func (s *scanService) GetJob(ctx context.Context, id uuid.UUID) (*domain.ScanJobRecord, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *scanService) ListJobs(ctx context.Context, offset, limit int) ([]domain.ScanJobRecord, int, error) {
	return s.jobRepo.ListRecent(ctx, offset, limit)
}

func (s *scanService) GetArtifact(ctx context.Context, id uuid.UUID, format artifact.Format) (*Artifact, error) {
	rec, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.ScanStatusCompleted || rec.OutputPath == "" {
		return nil, domain.ErrArtifactUnavailable
	}

	content, err := os.ReadFile(rec.OutputPath)
	if err != nil {
		log.Printf("scanService.GetArtifact: reading %s for job %s: %v", rec.OutputPath, id, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrArtifactUnavailable, err)
	}

	out := &Artifact{
		Filename:    filepath.Base(rec.OutputPath),
		ContentType: format.ContentType(),
		Body:        content,
		Summary:     artifact.Summarize(content),
	}
	if format == artifact.FormatHTML {
		out.Body, err = artifact.RenderHTML(content)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
