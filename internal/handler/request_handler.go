package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/models"
	"github.com/pixelforge/intake-api/internal/service"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
	"github.com/pixelforge/intake-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, payload dto.CreateRequestPayload) (*models.ServiceRequest, error)
	Get(ctx context.Context, id string) (*models.ServiceRequest, error)
	Track(ctx context.Context, trackingCode string) (*dto.TrackingResponse, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, *models.Pagination, error)
	Transition(ctx context.Context, id, newStatus, adminNote, actor string) (*models.ServiceRequest, error)
	UpdatePriority(ctx context.Context, id, priority string) (*models.ServiceRequest, error)
	AppendNote(ctx context.Context, id, note, addedBy string) (*models.ServiceRequest, error)
	Assign(ctx context.Context, id, assignee string) (*models.ServiceRequest, error)
	Cancel(ctx context.Context, id, actor string) (*models.ServiceRequest, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	SendCustomEmail(ctx context.Context, id string, req dto.SendEmailRequest) (*dto.SendEmailResult, error)
	AttachDeliverable(ctx context.Context, id, fileName, contentType string, size int64, file io.Reader) (*models.ServiceRequest, error)
}

type exportService interface {
	Export(ctx context.Context, filter models.RequestFilter, format service.ExportFormat) (*service.ExportResult, error)
}

type deliverableOpener interface {
	Open(storageID string) (*os.File, error)
}

type downloadTokenParser interface {
	Parse(token string) (storageID, fileName string, err error)
}

// RequestHandler exposes the intake and lifecycle endpoints.
type RequestHandler struct {
	service requestService
	exports exportService
	storage deliverableOpener
	signer  downloadTokenParser
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(svc requestService, exports exportService, storage deliverableOpener, signer downloadTokenParser) *RequestHandler {
	return &RequestHandler{service: svc, exports: exports, storage: storage, signer: signer}
}

// Create godoc
// @Summary Submit a service request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /service-requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Track godoc
// @Summary Track a request by its public ID
// @Tags Requests
// @Produce json
// @Param requestId path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Router /service-requests/track/{requestId} [get]
func (h *RequestHandler) Track(c *gin.Context) {
	tracked, err := h.service.Track(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tracked, nil)
}

// List godoc
// @Summary List service requests
// @Tags Admin
// @Produce json
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Param requestType query string false "Request type filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin [get]
func (h *RequestHandler) List(c *gin.Context) {
	filter, err := parseRequestFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get one request with full admin detail
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UpdateStatus godoc
// @Summary Transition a request to a new status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var payload dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	request, err := h.service.Transition(c.Request.Context(), c.Param("id"), payload.Status, payload.AdminNote, actorName(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UpdatePriority godoc
// @Summary Change request priority
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdatePriorityRequest true "New priority"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/priority [put]
func (h *RequestHandler) UpdatePriority(c *gin.Context) {
	var payload dto.UpdatePriorityRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	request, err := h.service.UpdatePriority(c.Request.Context(), c.Param("id"), payload.Priority)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// AddNote godoc
// @Summary Append an internal admin note
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AddNoteRequest true "Note"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/notes [post]
func (h *RequestHandler) AddNote(c *gin.Context) {
	var payload dto.AddNoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	addedBy := payload.AddedBy
	if addedBy == "" {
		addedBy = actorName(c)
	}
	request, err := h.service.AppendNote(c.Request.Context(), c.Param("id"), payload.Note, addedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Assign godoc
// @Summary Assign a request to a team member
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/assign [put]
func (h *RequestHandler) Assign(c *gin.Context) {
	var payload dto.AssignRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	request, err := h.service.Assign(c.Request.Context(), c.Param("id"), payload.AssignedTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Cancel godoc
// @Summary Cancel a request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id} [delete]
func (h *RequestHandler) Cancel(c *gin.Context) {
	request, err := h.service.Cancel(c.Request.Context(), c.Param("id"), actorName(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Stats godoc
// @Summary Dashboard counts by status
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/dashboard-stats [get]
func (h *RequestHandler) Stats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// SendEmail godoc
// @Summary Send a custom email to the client
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.SendEmailRequest true "Email content"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/send-email [post]
func (h *RequestHandler) SendEmail(c *gin.Context) {
	var payload dto.SendEmailRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.SendCustomEmail(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UploadDeliverable godoc
// @Summary Attach a deliverable file to a request
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Request ID"
// @Param file formData file true "Deliverable file"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /service-requests/admin/{id}/deliverables [post]
func (h *RequestHandler) UploadDeliverable(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := fileHeader.Header.Get("Content-Type")
	request, err := h.service.AttachDeliverable(c.Request.Context(), c.Param("id"), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Export godoc
// @Summary Export the filtered request listing
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /service-requests/admin/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	filter, err := parseRequestFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	result, err := h.exports.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// Download godoc
// @Summary Download a deliverable via signed token
// @Tags Requests
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /deliverables/download [get]
func (h *RequestHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	storageID, fileName, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link"))
		return
	}
	file, err := h.storage.Open(storageID)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read deliverable"))
		return
	}
	headers := map[string]string{
		"Content-Disposition": `attachment; filename="` + fileName + `"`,
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, headers)
}

func parseRequestFilter(c *gin.Context) (models.RequestFilter, error) {
	filter := models.RequestFilter{
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		SortOrder: strings.TrimSpace(c.Query("sortOrder")),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.RequestStatus(strings.ToLower(raw))
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority := models.RequestPriority(strings.ToLower(raw))
		if !priority.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown priority filter")
		}
		filter.Priority = &priority
	}
	if raw := strings.TrimSpace(c.Query("requestType")); raw != "" {
		requestType := models.RequestType(strings.ToLower(raw))
		if !requestType.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown requestType filter")
		}
		filter.RequestType = &requestType
	}

	if raw := strings.TrimSpace(c.Query("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil || pageSize < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "pageSize must be a positive integer")
		}
		filter.PageSize = pageSize
	}

	return filter, nil
}

// actorName resolves the display name recorded on notes and transitions.
func actorName(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.FullName != "" {
		return claims.FullName
	}
	return claims.Email
}
