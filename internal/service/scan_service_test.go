package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"personashield/internal/artifact"
	"personashield/internal/domain"
	"personashield/internal/port"
	"personashield/internal/scan"
	"personashield/internal/service"
	"personashield/internal/storage/local"
	"personashield/mocks"
)

// pngContent returns minimal valid PNG bytes (magic bytes).
func pngContent() []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, bytes.Repeat([]byte{0x00}, 100)...)
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScanService_Scan_Success(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(runner, nil, jobRepo, nil, "scan-std-model-v1-jp", 20)

	completedAt := time.Unix(1700000010, 0)
	artifact := writeArtifact(t, "Hello")

	var stagedPath string
	runner.On("RunWith", mock.Anything, mock.MatchedBy(func(p string) bool {
		return filepath.Base(p) == "photo.png"
	}), mock.Anything).Run(func(args mock.Arguments) {
		stagedPath = args.String(1)
		content, err := os.ReadFile(stagedPath)
		require.NoError(t, err)
		assert.Equal(t, pngContent(), content)
	}).Return(&scan.RunResult{
		Job:        domain.ScanJob{RequestID: "req-1", Status: domain.ScanStatusCompleted, CompletedAt: &completedAt},
		OutputPath: artifact,
	}, nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})

	require.NoError(t, err)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, domain.ScanStatusCompleted, rec.Status)
	assert.Equal(t, artifact, rec.OutputPath)
	assert.Equal(t, "scan-std-model-v1-jp", rec.Model)
	assert.Empty(t, rec.ObjectKey)
	assert.Equal(t, &completedAt, rec.CompletedAt)

	_, statErr := os.Stat(stagedPath)
	assert.True(t, os.IsNotExist(statErr), "staging directory should be removed")

	runner.AssertExpectations(t)
	jobRepo.AssertExpectations(t)
}

func TestScanService_Scan_MirrorsArtifact(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewScanService(runner, nil, jobRepo, storage, "m", 20)

	artifact := writeArtifact(t, "Hello")
	runner.On("RunWith", mock.Anything, mock.Anything, mock.Anything).
		Return(&scan.RunResult{Job: domain.ScanJob{RequestID: "req-1"}, OutputPath: artifact}, nil)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.HasSuffix(in.Key, "/photo.md") && in.ContentType == "text/markdown; charset=utf-8"
	})).Return(&port.UploadOutput{Location: "s3://bucket/key"}, nil)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})

	require.NoError(t, err)
	assert.Equal(t, rec.ID.String()+"/photo.md", rec.ObjectKey)
	storage.AssertExpectations(t)
}

func TestScanService_Scan_MirrorFailureKeepsLocalArtifact(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewScanService(runner, nil, jobRepo, storage, "m", 20)

	artifact := writeArtifact(t, "Hello")
	runner.On("RunWith", mock.Anything, mock.Anything, mock.Anything).
		Return(&scan.RunResult{Job: domain.ScanJob{RequestID: "req-1"}, OutputPath: artifact}, nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down"))
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})

	require.NoError(t, err)
	assert.Empty(t, rec.ObjectKey)
	assert.Equal(t, artifact, rec.OutputPath)
}

func TestScanService_Scan_RejectedRecordsCode(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(runner, nil, jobRepo, nil, "m", 20)

	runErr := &scan.Error{Step: scan.StepSubmit, Kind: scan.KindRejected, StatusCode: http.StatusUnauthorized, Err: errors.New("invalid token")}
	runner.On("RunWith", mock.Anything, mock.Anything, mock.Anything).Return(nil, runErr)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})

	require.Error(t, err)
	assert.True(t, errors.Is(err, scan.ErrRemoteRejection))
	require.NotNil(t, rec)
	assert.Equal(t, domain.ScanStatusError, rec.Status)
	assert.Equal(t, "submit", rec.ErrorStep)
	assert.Equal(t, http.StatusUnauthorized, rec.ErrorCode)
	assert.Empty(t, rec.RequestID)
}

func TestScanService_Scan_JobFailedKeepsRequestID(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(runner, nil, jobRepo, nil, "m", 20)

	runErr := &scan.Error{Step: scan.StepPoll, Kind: scan.KindJobFailed, RequestID: "req-9", Err: errors.New("remote job reported failed")}
	runner.On("RunWith", mock.Anything, mock.Anything, mock.Anything).Return(nil, runErr)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.jpg", Content: jpegContent()})

	require.Error(t, err)
	assert.Equal(t, domain.ScanStatusFailed, rec.Status)
	assert.Equal(t, "req-9", rec.RequestID)
	assert.Equal(t, scan.GenericFailureCode, rec.ErrorCode)
	assert.Contains(t, rec.ErrorMessage, "job_failed")
}

func TestScanService_Scan_UnsupportedFileType(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(runner, nil, jobRepo, nil, "m", 20)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"pdf extension", "doc.pdf", []byte("%PDF-1.4 test content")},
		{"png extension with text content", "fake.png", []byte("not really an image at all")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Scan(context.Background(), service.ScanInput{Filename: tt.filename, Content: tt.content})
			assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
		})
	}
	runner.AssertNotCalled(t, "RunWith", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanService_Scan_FileTooLarge(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(runner, nil, jobRepo, nil, "m", 1)

	content := append(pngContent(), bytes.Repeat([]byte{0x00}, 1024*1024)...)
	_, err := svc.Scan(context.Background(), service.ScanInput{Filename: "big.png", Content: content})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	runner.AssertNotCalled(t, "RunWith", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanService_Scan_RepoFailureRemovesMirror(t *testing.T) {
	runner := new(mocks.MockScanRunner)
	jobRepo := new(mocks.MockScanJobRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewScanService(runner, nil, jobRepo, storage, "m", 20)

	artifact := writeArtifact(t, "Hello")
	runner.On("RunWith", mock.Anything, mock.Anything, mock.Anything).
		Return(&scan.RunResult{Job: domain.ScanJob{RequestID: "req-1"}, OutputPath: artifact}, nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	storage.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	rec, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})

	require.Error(t, err)
	assert.Nil(t, rec)
	storage.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("string"))
}

func TestScanService_GetJob_NotFound(t *testing.T) {
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(new(mocks.MockScanRunner), nil, jobRepo, nil, "m", 20)

	id := uuid.New()
	jobRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrScanJobNotFound)

	_, err := svc.GetJob(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrScanJobNotFound)
}

func TestScanService_ListJobs(t *testing.T) {
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(new(mocks.MockScanRunner), nil, jobRepo, nil, "m", 20)

	jobs := []domain.ScanJobRecord{{ID: uuid.New()}, {ID: uuid.New()}}
	jobRepo.On("ListRecent", mock.Anything, 0, 20).Return(jobs, 7, nil)

	got, total, err := svc.ListJobs(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 7, total)
}

func TestScanService_GetArtifact(t *testing.T) {
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(new(mocks.MockScanRunner), nil, jobRepo, nil, "m", 20)

	id := uuid.New()
	path := writeArtifact(t, "Exit 3\n\nPlatform 9")
	jobRepo.On("GetByID", mock.Anything, id).Return(&domain.ScanJobRecord{
		ID:         id,
		Status:     domain.ScanStatusCompleted,
		OutputPath: path,
	}, nil)

	md, err := svc.GetArtifact(context.Background(), id, artifact.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "photo.md", md.Filename)
	assert.Equal(t, "Exit 3\n\nPlatform 9", string(md.Body))
	assert.Equal(t, 2, md.Summary.Blocks)

	html, err := svc.GetArtifact(context.Background(), id, artifact.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", html.ContentType)
	assert.Contains(t, string(html.Body), "<p>Platform 9</p>")
}

func TestScanService_GetArtifact_Unavailable(t *testing.T) {
	jobRepo := new(mocks.MockScanJobRepo)
	svc := service.NewScanService(new(mocks.MockScanRunner), nil, jobRepo, nil, "m", 20)

	failedID, missingID := uuid.New(), uuid.New()
	jobRepo.On("GetByID", mock.Anything, failedID).Return(&domain.ScanJobRecord{
		ID:     failedID,
		Status: domain.ScanStatusFailed,
	}, nil)
	jobRepo.On("GetByID", mock.Anything, missingID).Return(&domain.ScanJobRecord{
		ID:         missingID,
		Status:     domain.ScanStatusCompleted,
		OutputPath: filepath.Join(t.TempDir(), "gone.md"),
	}, nil)

	_, err := svc.GetArtifact(context.Background(), failedID, artifact.FormatMarkdown)
	assert.ErrorIs(t, err, domain.ErrArtifactUnavailable)

	_, err = svc.GetArtifact(context.Background(), missingID, artifact.FormatMarkdown)
	assert.ErrorIs(t, err, domain.ErrArtifactUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanService_SameFilenameKeepsArtifactsApart(t *testing.T) {
	client := new(mocks.MockScanClient)
	client.On("Submit", mock.Anything, mock.Anything).Return("req-1", nil).Once()
	client.On("Submit", mock.Anything, mock.Anything).Return("req-2", nil).Once()
	client.On("PollStatus", mock.Anything, mock.Anything).
		Return(&domain.StatusSnapshot{Status: domain.ScanStatusCompleted, Timestamp: 1700000010}, nil)
	client.On("FetchResult", mock.Anything, "req-1").
		Return(&domain.ScanResult{Pages: []domain.Page{{Chunks: []domain.Chunk{{Text: "first upload text"}}}}}, nil)
	client.On("FetchResult", mock.Anything, "req-2").
		Return(&domain.ScanResult{Pages: []domain.Page{{Chunks: []domain.Chunk{{Text: "second upload text"}}}}}, nil)

	outDir := t.TempDir()
	runner := scan.NewRunner(client, local.NewArtifactStore(outDir), scan.RunnerConfig{PollInterval: time.Millisecond})
	jobRepo := new(mocks.MockScanJobRepo)
	jobRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScanJobRecord")).Return(nil)
	svc := service.NewScanService(runner, local.NewJobArtifactStores(outDir), jobRepo, nil, "m", 20)

	first, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})
	require.NoError(t, err)
	second, err := svc.Scan(context.Background(), service.ScanInput{Filename: "photo.png", Content: pngContent()})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, first.ID.String(), "photo.md"), first.OutputPath)
	assert.NotEqual(t, first.OutputPath, second.OutputPath)

	jobRepo.On("GetByID", mock.Anything, first.ID).Return(first, nil)
	jobRepo.On("GetByID", mock.Anything, second.ID).Return(second, nil)

	got, err := svc.GetArtifact(context.Background(), first.ID, artifact.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "first upload text", string(got.Body))

	got, err = svc.GetArtifact(context.Background(), second.ID, artifact.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "second upload text", string(got.Body))
}

// jpegContent returns minimal JPEG bytes (SOI marker).
func jpegContent() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 100)...)
}
