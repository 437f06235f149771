package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"personashield/internal/middleware"
	"personashield/internal/service"
)

// PostHandler handles post assessment and publishing endpoints.
type PostHandler struct {
	moderationService service.ModerationService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(moderationService service.ModerationService) *PostHandler {
	return &PostHandler{moderationService: moderationService}
}

// Assess handles POST /api/v1/posts/assess
// @Summary Assess a post before publishing
// @Description Checks post text and an optional image for privacy and reputational risk
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param text formData string false "Post text (max 140 characters)"
// @Param image formData file false "Attached image (JPG or PNG)"
// @Success 201 {object} APIResponse{data=domain.PostReview}
// @Failure 400 {object} APIResponse "Empty post, text too long or unsupported image"
// @Failure 429 {object} APIResponse "Assessment provider rate limited"
// @Failure 502 {object} APIResponse "Assessment failed"
// @Security BearerAuth
// @Router /posts/assess [post]
func (h *PostHandler) Assess(c *gin.Context) {
	input := service.AssessInput{
		Text:     c.PostForm("text"),
		Operator: middleware.GetOperator(c),
	}

	file, header, err := c.Request.FormFile("image")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		content, readErr := io.ReadAll(file)
		if readErr != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_FILE", "image could not be read")
			return
		}
		input.Image = &service.ImageUpload{Filename: header.Filename, Content: content}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "image field could not be parsed")
		return
	}

	review, err := h.moderationService.Assess(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, review)
}

// GetByID handles GET /api/v1/posts/:id
// @Summary Get a post review
// @Tags posts
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.PostReview}
// @Failure 404 {object} APIResponse "Review not found"
// @Security BearerAuth
// @Router /posts/{id} [get]
func (h *PostHandler) GetByID(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	review, err := h.moderationService.GetReview(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, review)
}

// Publish handles POST /api/v1/posts/:id/publish
// @Summary Publish an assessed post
// @Description Risky posts are only published when confirm is true
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Param body body service.PublishInput false "Publish options"
// @Success 200 {object} APIResponse{data=domain.PostReview}
// @Failure 409 {object} APIResponse "Confirmation required, unknown verdict or review not pending"
// @Failure 502 {object} APIResponse "Publishing failed"
// @Security BearerAuth
// @Router /posts/{id}/publish [post]
func (h *PostHandler) Publish(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	var input service.PublishInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	review, err := h.moderationService.Publish(c.Request.Context(), id, input.Confirm)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, review)
}

// Cancel handles POST /api/v1/posts/:id/cancel
// @Summary Cancel a pending post
// @Tags posts
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.PostReview}
// @Failure 409 {object} APIResponse "Review not pending"
// @Security BearerAuth
// @Router /posts/{id}/cancel [post]
func (h *PostHandler) Cancel(c *gin.Context) {
	id, ok := parseReviewID(c)
	if !ok {
		return
	}

	review, err := h.moderationService.Cancel(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, review)
}

func parseReviewID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid review ID")
		return uuid.Nil, false
	}
	return id, true
}
