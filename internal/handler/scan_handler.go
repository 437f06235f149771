package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"personashield/internal/artifact"
	"personashield/internal/scan"
	"personashield/internal/service"
)

// ScanHandler handles image scan endpoints.
type ScanHandler struct {
	scanService service.ScanService
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(scanService service.ScanService) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

// Create handles POST /api/v1/scans
// @Summary Scan an image
// @Description Submit a JPG or PNG to the scan service and wait for the extracted text
// @Tags scans
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image to scan (JPG or PNG)"
// @Success 201 {object} APIResponse{data=domain.ScanJobRecord}
// @Failure 400 {object} APIResponse "Missing file or unsupported type"
// @Failure 502 {object} APIResponse "Scan service rejected the request or the job failed"
// @Failure 504 {object} APIResponse "Scan job did not finish in time"
// @Security BearerAuth
// @Router /scans [post]
func (h *ScanHandler) Create(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "file could not be read")
		return
	}

	rec, err := h.scanService.Scan(c.Request.Context(), service.ScanInput{
		Filename: header.Filename,
		Content:  content,
	})
	if err != nil {
		scanErr, ok := scan.AsError(err)
		if !ok || rec == nil {
			HandleError(c, err)
			return
		}
		status, code, msg, details := mapScanError(scanErr)
		details["scan_job_id"] = rec.ID
		respondErrorWithDetails(c, status, code, msg, details)
		return
	}

	RespondCreated(c, rec)
}

// List handles GET /api/v1/scans
// @Summary List scan jobs
// @Tags scans
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.ScanJobRecord,meta=PagMeta}
// @Security BearerAuth
// @Router /scans [get]
func (h *ScanHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	jobs, total, err := h.scanService.ListJobs(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/scans/:id
// @Summary Get a scan job
// @Tags scans
// @Produce json
// @Param id path string true "Scan job ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.ScanJobRecord}
// @Failure 404 {object} APIResponse "Scan job not found"
// @Security BearerAuth
// @Router /scans/{id} [get]
func (h *ScanHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan job ID")
		return
	}

	rec, err := h.scanService.GetJob(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// GetArtifact handles GET /api/v1/scans/:id/artifact
// @Summary Download the extracted text of a scan job
// @Tags scans
// @Produce text/markdown
// @Produce text/html
// @Param id path string true "Scan job ID (UUID)"
// @Param format query string false "md or html" default(md)
// @Success 200 {string} string "Extracted text"
// @Failure 404 {object} APIResponse "Scan job or artifact not found"
// @Security BearerAuth
// @Router /scans/{id}/artifact [get]
func (h *ScanHandler) GetArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid scan job ID")
		return
	}
	format, err := artifact.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be md or html")
		return
	}

	out, err := h.scanService.GetArtifact(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("X-Artifact-Blocks", strconv.Itoa(out.Summary.Blocks))
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
