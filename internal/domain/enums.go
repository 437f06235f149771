package domain

// FileType represents the image types accepted for scanning and assessment.
type FileType string

const (
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"image/jpeg": FileTypeJPG,
	"image/png":  FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// ContentTypes maps FileType back to its MIME content type.
var ContentTypes = map[FileType]string{
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// ScanStatus mirrors the remote scan service's job state.
type ScanStatus string

const (
	ScanStatusSubmitted  ScanStatus = "submitted"
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
	// ScanStatusError marks a run that ended on a local or call-level error
	// before the remote job reached a terminal state.
	ScanStatusError ScanStatus = "error"
)

// IsTerminal reports whether no further remote transitions can occur.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// RiskVerdict is the model's answer to "does this post carry risk".
type RiskVerdict string

const (
	VerdictRisky   RiskVerdict = "risky"
	VerdictClear   RiskVerdict = "clear"
	VerdictUnknown RiskVerdict = "unknown"
)

// ReviewStatus tracks what happened to a reviewed post.
type ReviewStatus string

const (
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusPublishing holds a review while its post is being sent, so
	// only one publish attempt can be in flight.
	ReviewStatusPublishing ReviewStatus = "publishing"
	ReviewStatusPublished  ReviewStatus = "published"
	ReviewStatusCancelled  ReviewStatus = "cancelled"
)

// MaxPostLength is the maximum number of characters in a post.
const MaxPostLength = 140
