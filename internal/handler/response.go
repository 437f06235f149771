package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"personashield/internal/assessor"
	"personashield/internal/domain"
	"personashield/internal/middleware"
	"personashield/internal/scan"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	respondErrorWithDetails(c, status, code, msg, nil)
}

func respondErrorWithDetails(c *gin.Context, status int, code, msg string, details map[string]interface{}) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Details: details},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrScanJobNotFound):
		return http.StatusNotFound, "SCAN_JOB_NOT_FOUND", "scan job not found"
	case errors.Is(err, domain.ErrArtifactUnavailable):
		return http.StatusNotFound, "ARTIFACT_UNAVAILABLE", "scan artifact is not available"
	case errors.Is(err, domain.ErrReviewNotFound):
		return http.StatusNotFound, "REVIEW_NOT_FOUND", "post review not found"
	case errors.Is(err, domain.ErrReviewNotPending):
		return http.StatusConflict, "REVIEW_NOT_PENDING", "post review has already been published or cancelled"
	case errors.Is(err, domain.ErrEmptyPost):
		return http.StatusBadRequest, "EMPTY_POST", "post needs text or an image"
	case errors.Is(err, domain.ErrPostTooLong):
		return http.StatusBadRequest, "POST_TOO_LONG", "post text exceeds " + strconv.Itoa(domain.MaxPostLength) + " characters"
	case errors.Is(err, domain.ErrVerdictUnknown):
		return http.StatusConflict, "VERDICT_UNKNOWN", "risk could not be determined; reassess before publishing"
	case errors.Is(err, domain.ErrRiskNotAcknowledged):
		return http.StatusConflict, "CONFIRMATION_REQUIRED", "post was assessed as risky; confirm to publish anyway"
	case errors.Is(err, domain.ErrAssessmentFailed):
		return http.StatusBadGateway, "ASSESSMENT_FAILED", "risk assessment failed"
	case errors.Is(err, domain.ErrPublishFailed):
		return http.StatusBadGateway, "PUBLISH_FAILED", "publishing post failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// mapScanError translates a scan failure to an HTTP status, error code and
// the details exposed to the caller.
func mapScanError(scanErr *scan.Error) (status int, code, msg string, details map[string]interface{}) {
	details = map[string]interface{}{
		"step": scanErr.Step,
		"code": scanErr.Code(),
	}
	if scanErr.RequestID != "" {
		details["request_id"] = scanErr.RequestID
	}

	switch scanErr.Kind {
	case scan.KindRejected:
		details["upstream_status"] = scanErr.StatusCode
		return http.StatusBadGateway, "SCAN_REJECTED", "scan service rejected the request", details
	case scan.KindJobFailed:
		return http.StatusBadGateway, "SCAN_JOB_FAILED", "scan job failed", details
	case scan.KindTimeout:
		return http.StatusGatewayTimeout, "SCAN_TIMEOUT", "scan job did not finish in time", details
	case scan.KindTransport:
		return http.StatusBadGateway, "SCAN_TRANSPORT_FAILED", "scan service could not be reached", details
	case scan.KindPersistence:
		return http.StatusInternalServerError, "SCAN_PERSIST_FAILED", "scan artifact could not be written", details
	case scan.KindCanceled:
		return http.StatusServiceUnavailable, "SCAN_CANCELED", "scan was canceled", details
	default:
		return http.StatusBadRequest, "SCAN_INVALID_INPUT", "scan source could not be read", details
	}
}

// HandleError maps a domain or scan error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	traceID := c.GetString(middleware.ContextKeyTraceID)

	var rlErr *assessor.RateLimitError
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", strconv.Itoa(int(rlErr.RetryAfter.Seconds())))
		RespondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "assessment provider is rate limited; retry later")
		return
	}

	if scanErr, ok := scan.AsError(err); ok {
		status, code, msg, details := mapScanError(scanErr)
		log.Printf("[%s] scan error: %v", traceID, err)
		respondErrorWithDetails(c, status, code, msg, details)
		return
	}

	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Printf("[%s] internal error: %v", traceID, err)
	}
	RespondError(c, status, code, msg)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
