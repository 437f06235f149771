package port

import (
	"context"

	"personashield/internal/domain"
)

// SubmitInput carries the document submitted for asynchronous scanning.
type SubmitInput struct {
	FileBytes []byte
	Filename  string
	Model     string
}

// ScanClient abstracts the three-call lifecycle of the remote scan service.
// Each method issues exactly one request; looping and waiting belong to the caller.
type ScanClient interface {
	Submit(ctx context.Context, input SubmitInput) (string, error)
	PollStatus(ctx context.Context, requestID string) (*domain.StatusSnapshot, error)
	FetchResult(ctx context.Context, requestID string) (*domain.ScanResult, error)
}
