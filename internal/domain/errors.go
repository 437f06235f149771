package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCredentials  = errors.New("invalid operator or password")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")

	ErrScanJobNotFound     = errors.New("scan job not found")
	ErrArtifactUnavailable = errors.New("scan artifact is not available")
	ErrReviewNotFound      = errors.New("post review not found")
	ErrReviewNotPending    = errors.New("post review is no longer pending")
	ErrEmptyPost           = errors.New("post has neither text nor image")
	ErrPostTooLong         = errors.New("post text exceeds maximum length")
	ErrVerdictUnknown      = errors.New("risk verdict could not be determined")
	ErrRiskNotAcknowledged = errors.New("post was assessed as risky and publishing was not confirmed")
	ErrPublishFailed       = errors.New("publishing post failed")
	ErrAssessmentFailed    = errors.New("risk assessment failed")
)
