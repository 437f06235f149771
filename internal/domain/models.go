package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanJob identifies one submitted extraction request against the remote
// visual-document scan service.
type ScanJob struct {
	RequestID      string     `json:"request_id"`
	Status         ScanStatus `json:"status"`
	SourceFilePath string     `json:"source_file_path"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
}

// StatusSnapshot is one observation of a scan job's remote state.
type StatusSnapshot struct {
	Status    ScanStatus `json:"status"`
	Timestamp float64    `json:"timestamp"`
}

// Time converts the remote unix timestamp into loc.
func (s StatusSnapshot) Time(loc *time.Location) time.Time {
	sec := int64(s.Timestamp)
	nsec := int64((s.Timestamp - float64(sec)) * 1e9)
	t := time.Unix(sec, nsec)
	if loc != nil {
		t = t.In(loc)
	}
	return t
}

// Chunk is the smallest unit of extracted text within a page.
type Chunk struct {
	Text string    `json:"text"`
	Type string    `json:"type,omitempty"`
	BBox []float64 `json:"bbox,omitempty"`
}

// Page is an ordered sequence of chunks.
type Page struct {
	Chunks []Chunk `json:"chunks"`
}

// ScanResult is the structured output of a completed scan job.
type ScanResult struct {
	Pages []Page `json:"pages"`
}

// Text joins every chunk of every page, in order, separated by one blank line.
func (r *ScanResult) Text() string {
	var texts []string
	for _, page := range r.Pages {
		for _, chunk := range page.Chunks {
			texts = append(texts, chunk.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// ScanJobRecord is the persisted audit row for one scan run.
type ScanJobRecord struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	RequestID    string     `db:"request_id" json:"request_id,omitempty"`
	Filename     string     `db:"filename" json:"filename"`
	Model        string     `db:"model" json:"model"`
	Status       ScanStatus `db:"status" json:"status"`
	OutputPath   string     `db:"output_path" json:"output_path,omitempty"`
	ObjectKey    string     `db:"object_key" json:"object_key,omitempty"`
	ErrorStep    string     `db:"error_step" json:"error_step,omitempty"`
	ErrorCode    int        `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// PostReview is a moderation decision for one composed post.
type PostReview struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	Text        string       `db:"text" json:"text"`
	HasImage    bool         `db:"has_image" json:"has_image"`
	Verdict     RiskVerdict  `db:"verdict" json:"verdict"`
	Details     string       `db:"details" json:"details"`
	RawOutput   string       `db:"raw_output" json:"-"`
	Model       string       `db:"model" json:"model"`
	ScanJobID   *uuid.UUID   `db:"scan_job_id" json:"scan_job_id,omitempty"`
	ScanMessage string       `db:"scan_message" json:"scan_message,omitempty"`
	Status      ReviewStatus `db:"status" json:"status"`
	PostID      string       `db:"post_id" json:"post_id,omitempty"`
	CreatedBy   string       `db:"created_by" json:"created_by"`
	PublishedAt *time.Time   `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Assessment is the parsed verdict of the vision-language model.
type Assessment struct {
	Verdict RiskVerdict
	Details string
	Raw     string
	Model   string
}
