package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/middleware"
	"github.com/mulyahr/timesheet-backend/internal/service"
)

// AttachmentHandler handles attachment HTTP requests
type AttachmentHandler struct {
	attachmentService *service.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// AttachmentResponse represents attachment metadata in API responses
type AttachmentResponse struct {
	ID          string `json:"id"`
	TimesheetID string `json:"timesheetId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	RangeStart  string `json:"rangeStart"`
	RangeEnd    string `json:"rangeEnd"`
	UploadedAt  string `json:"uploadedAt"`
}

// Upload handles POST /api/v1/timesheets/:id/attachments (multipart form with
// a file part plus rangeStart and rangeEnd fields)
func (h *AttachmentHandler) Upload(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "Missing file", []ValidationError{
			{Field: "file", Message: "A file part is required"},
		})
	}

	var v domain.ValidationErrors
	rangeStart, okStart := parseDate(&v, "rangeStart", c.FormValue("rangeStart"))
	rangeEnd, okEnd := parseDate(&v, "rangeEnd", c.FormValue("rangeEnd"))
	if !okStart || !okEnd {
		return respondDomainError(c, &v)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return NewInternalError(c, "Failed to read uploaded file")
	}
	defer src.Close()
	body, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError(c, "Failed to read uploaded file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	att, err := h.attachmentService.Upload(c.Request().Context(), c.Param("id"), employeeID, service.UploadRequest{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Body:        body,
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toAttachmentResponse(att))
}

// List handles GET /api/v1/timesheets/:id/attachments
func (h *AttachmentHandler) List(c echo.Context) error {
	attachments, err := h.attachmentService.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	response := make([]AttachmentResponse, len(attachments))
	for i, att := range attachments {
		response[i] = toAttachmentResponse(att)
	}
	return c.JSON(http.StatusOK, response)
}

// Download handles GET /api/v1/attachments/:id
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid attachment ID", nil)
	}
	att, body, err := h.attachmentService.Download(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
	return c.Blob(http.StatusOK, att.ContentType, body)
}

// Thumbnail handles GET /api/v1/attachments/:id/thumbnail
func (h *AttachmentHandler) Thumbnail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid attachment ID", nil)
	}
	_, body, err := h.attachmentService.Thumbnail(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Blob(http.StatusOK, "image/jpeg", body)
}

func toAttachmentResponse(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          att.ID.String(),
		TimesheetID: att.TimesheetID,
		Filename:    att.Filename,
		ContentType: att.ContentType,
		RangeStart:  att.RangeStart.Format(domain.DateLayout),
		RangeEnd:    att.RangeEnd.Format(domain.DateLayout),
		UploadedAt:  att.UploadedAt.Format(time.RFC3339),
	}
}
