package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
	"github.com/pixelforge/intake-api/pkg/jobs"
)

type requestStore interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	FindByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	FindByTrackingCode(ctx context.Context, code string) (*models.ServiceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus, note *models.AdminNote) error
	UpdatePriority(ctx context.Context, id string, priority models.RequestPriority) error
	AppendNote(ctx context.Context, id string, note models.AdminNote) error
	Assign(ctx context.Context, id, assignee string) error
	AppendDeliverable(ctx context.Context, id string, deliverable models.Deliverable) error
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
	CountByPriority(ctx context.Context, priority models.RequestPriority) (int, error)
	CountAll(ctx context.Context) (int, error)
}

type catalogStore interface {
	FindCategoryByID(ctx context.Context, id string) (*models.Category, error)
	FindActiveServiceByID(ctx context.Context, id string) (*models.Service, error)
	FindActiveComboByID(ctx context.Context, id string) (*models.Combo, error)
	FindTemplateByID(ctx context.Context, id string) (*models.Template, error)
}

// NotificationGateway delivers client-facing emails. Callers treat the
// result as advisory for status updates: a failed send never fails the
// triggering transition.
type NotificationGateway interface {
	SendStatusUpdate(ctx context.Context, email, name, trackingCode, status, note string) error
	SendCustom(ctx context.Context, name, email, subject, body string) error
}

type retryQueue interface {
	Enqueue(job jobs.Job) error
}

type deliverableStorage interface {
	SaveStream(storageID string, r io.Reader) (int64, error)
	Delete(storageID string) error
}

type downloadSigner interface {
	Generate(storageID, fileName string) (string, time.Time, error)
}

// StatusEmailJob is the retry payload for a failed status notification.
type StatusEmailJob struct {
	Email        string
	Name         string
	TrackingCode string
	Status       string
	Note         string
}

// StatusEmailRetryHandler re-attempts a failed status email off the request
// path. Retries stay best-effort: exhaustion is logged by the queue.
func StatusEmailRetryHandler(gateway NotificationGateway, metrics *MetricsService, timeout time.Duration) jobs.Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(StatusEmailJob)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := gateway.SendStatusUpdate(sendCtx, payload.Email, payload.Name, payload.TrackingCode, payload.Status, payload.Note)
		if metrics != nil {
			metrics.RecordNotification(err == nil)
		}
		return err
	}
}

// mobilePattern matches 10-digit mobile numbers starting 6-9.
var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

const dashboardCacheKey = "dash:requests"

// RequestServiceConfig tunes lifecycle behaviour.
type RequestServiceConfig struct {
	NotifyTimeout    time.Duration
	DefaultCurrency  string
	SignedURLPath    string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RequestServiceParams groups constructor dependencies.
type RequestServiceParams struct {
	Repo     requestStore
	Catalog  catalogStore
	Gateway  NotificationGateway
	Retry    retryQueue
	Storage  deliverableStorage
	Signer   downloadSigner
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
	Validate *validator.Validate
	Config   RequestServiceConfig
}

// RequestService owns the service-request lifecycle: creation validation,
// status transitions, the append-only note trail and the best-effort
// notification contract.
type RequestService struct {
	repo     requestStore
	catalog  catalogStore
	gateway  NotificationGateway
	retry    retryQueue
	storage  deliverableStorage
	signer   downloadSigner
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	validate *validator.Validate
	cfg      RequestServiceConfig

	now     func() time.Time
	newCode func() string
}

// NewRequestService constructs the lifecycle service with defaults.
func NewRequestService(params RequestServiceParams) *RequestService {
	cfg := params.Config
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	if cfg.SignedURLPath == "" {
		cfg.SignedURLPath = "/api/v1/deliverables/download"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validate
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{
		repo:     params.Repo,
		catalog:  params.Catalog,
		gateway:  params.Gateway,
		retry:    params.Retry,
		storage:  params.Storage,
		signer:   params.Signer,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		validate: validate,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newCode:  newTrackingCode,
	}
}

// newTrackingCode builds the public identifier: millisecond timestamp plus a
// random suffix keeps collisions negligible without a DB round trip.
func newTrackingCode() string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("SR-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf)))
}

// Create validates the selection path against the request type, checks the
// client info formats and persists a new request in status submitted. No
// notification fires on creation.
func (s *RequestService) Create(ctx context.Context, payload dto.CreateRequestPayload) (*models.ServiceRequest, error) {
	if err := s.validate.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}

	requestType := models.RequestType(strings.ToLower(strings.TrimSpace(payload.RequestType)))
	if !requestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requestType must be \"service\" or \"combo\"")
	}
	if !mobilePattern.MatchString(payload.ClientInfo.Phone) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "phone must be a 10-digit mobile number starting with 6-9")
	}

	selection := payload.SelectionPath
	category, err := s.catalog.FindCategoryByID(ctx, selection.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Selected category does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify category")
	}
	if !category.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Selected category is not available")
	}

	request := &models.ServiceRequest{
		TrackingCode:    s.newCode(),
		RequestType:     requestType,
		CategoryID:      selection.CategoryID,
		FullName:        strings.TrimSpace(payload.ClientInfo.FullName),
		Email:           strings.ToLower(strings.TrimSpace(payload.ClientInfo.Email)),
		Phone:           payload.ClientInfo.Phone,
		Description:     payload.Requirements.Description,
		PreferredColors: payload.Requirements.PreferredColors,
		AvoidColors:     payload.Requirements.AvoidColors,
		Tone:            payload.Requirements.Tone,
		CustomFields:    payload.Requirements.CustomFields,
		Status:          models.StatusSubmitted,
		Priority:        models.PriorityMedium,
		AdminNotes:      models.AdminNoteList{},
		Deliverables:    models.DeliverableList{},
		Currency:        s.cfg.DefaultCurrency,
	}
	if payload.ClientInfo.BusinessName != "" {
		request.BusinessName = &payload.ClientInfo.BusinessName
	}
	if payload.ClientInfo.Industry != "" {
		request.Industry = &payload.ClientInfo.Industry
	}
	if payload.Requirements.AdditionalNotes != "" {
		request.AdditionalNotes = &payload.Requirements.AdditionalNotes
	}
	if request.PreferredColors == nil {
		request.PreferredColors = models.StringList{}
	}
	if request.AvoidColors == nil {
		request.AvoidColors = models.StringList{}
	}
	if request.CustomFields == nil {
		request.CustomFields = models.CustomFieldList{}
	}

	switch requestType {
	case models.RequestTypeService:
		if selection.ServiceID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Service selection is required")
		}
		service, err := s.catalog.FindActiveServiceByID(ctx, selection.ServiceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "Selected service is not available")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify service")
		}
		request.ServiceID = &service.ID
	case models.RequestTypeCombo:
		if selection.ComboID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Combo selection is required")
		}
		combo, err := s.catalog.FindActiveComboByID(ctx, selection.ComboID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "Selected combo is not available")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify combo")
		}
		request.ComboID = &combo.ID
	}

	if selection.TemplateID != "" {
		template, err := s.catalog.FindTemplateByID(ctx, selection.TemplateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "Selected template does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify template")
		}
		request.TemplateID = &template.ID
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service request")
	}
	s.invalidateDashboard(ctx)

	created, err := s.repo.FindByID(ctx, request.ID)
	if err != nil {
		// The row is committed; fall back to the unresolved copy.
		s.logger.Warn("failed to reload created request", zap.String("id", request.ID), zap.Error(err))
		return request, nil
	}
	return created, nil
}

// Transition moves a request to a new status. Any status is reachable from
// any status. The optional note lands in the same write as the status, and
// the client is notified best-effort when the value actually changed.
func (s *RequestService) Transition(ctx context.Context, id, newStatus, adminNote, actor string) (*models.ServiceRequest, error) {
	status := models.RequestStatus(strings.ToLower(strings.TrimSpace(newStatus)))
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("status must be one of: %s", joinStatuses()))
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	var note *models.AdminNote
	if trimmed := strings.TrimSpace(adminNote); trimmed != "" {
		note = &models.AdminNote{Note: trimmed, AddedBy: actorOrDefault(actor), AddedAt: s.now()}
	}

	if err := s.repo.UpdateStatus(ctx, id, status, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.invalidateDashboard(ctx)

	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}

	// The transition is committed; everything below is advisory.
	if updated.Status != current.Status {
		s.notifyStatusChange(ctx, updated, adminNote)
	}

	return updated, nil
}

// notifyStatusChange attempts the status email within a bounded deadline.
// Failure is logged, counted and handed to the retry lane; it never
// propagates to the caller.
func (s *RequestService) notifyStatusChange(ctx context.Context, request *models.ServiceRequest, note string) {
	if s.gateway == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()

	err := s.gateway.SendStatusUpdate(sendCtx, request.Email, request.FullName, request.TrackingCode, string(request.Status), note)
	if s.metrics != nil {
		s.metrics.RecordNotification(err == nil)
	}
	if err == nil {
		return
	}

	s.logger.Warn("status notification failed",
		zap.String("tracking_code", request.TrackingCode),
		zap.String("status", string(request.Status)),
		zap.Error(err),
	)
	if s.retry == nil {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "status_email",
		Payload: StatusEmailJob{
			Email:        request.Email,
			Name:         request.FullName,
			TrackingCode: request.TrackingCode,
			Status:       string(request.Status),
			Note:         note,
		},
	}
	if err := s.retry.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification retry", zap.String("tracking_code", request.TrackingCode), zap.Error(err))
	}
}

// UpdatePriority changes the priority; no notification, no status coupling.
func (s *RequestService) UpdatePriority(ctx context.Context, id, priority string) (*models.ServiceRequest, error) {
	value := models.RequestPriority(strings.ToLower(strings.TrimSpace(priority)))
	if !value.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "priority must be one of: low, medium, high, urgent")
	}
	if err := s.repo.UpdatePriority(ctx, id, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update priority")
	}
	s.invalidateDashboard(ctx)
	return s.reload(ctx, id)
}

// AppendNote adds one entry to the append-only trail without touching status.
func (s *RequestService) AppendNote(ctx context.Context, id, note, addedBy string) (*models.ServiceRequest, error) {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note must not be empty")
	}
	entry := models.AdminNote{Note: trimmed, AddedBy: actorOrDefault(addedBy), AddedAt: s.now()}
	if err := s.repo.AppendNote(ctx, id, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append note")
	}
	return s.reload(ctx, id)
}

// Assign sets the assignee name.
func (s *RequestService) Assign(ctx context.Context, id, assignee string) (*models.ServiceRequest, error) {
	trimmed := strings.TrimSpace(assignee)
	if trimmed == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignedTo must not be empty")
	}
	if err := s.repo.Assign(ctx, id, trimmed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign request")
	}
	return s.reload(ctx, id)
}

// Cancel is the system's only delete: a transition to cancelled, with the
// same notification path.
func (s *RequestService) Cancel(ctx context.Context, id, actor string) (*models.ServiceRequest, error) {
	return s.Transition(ctx, id, string(models.StatusCancelled), "", actor)
}

// Get returns the full admin view of one request.
func (s *RequestService) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	s.signDeliverables(request)
	return request, nil
}

// Track resolves a request by its public tracking code and returns the
// client-safe projection (no admin notes, no internal ID).
func (s *RequestService) Track(ctx context.Context, trackingCode string) (*dto.TrackingResponse, error) {
	request, err := s.repo.FindByTrackingCode(ctx, strings.TrimSpace(trackingCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	s.signDeliverables(request)
	return dto.NewTrackingResponse(request), nil
}

// List returns a filtered page of requests with pagination metadata.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	for i := range requests {
		s.signDeliverables(&requests[i])
	}
	return requests, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// DashboardStats composes independent per-status counts. The snapshot is
// best-effort: counts are separate queries and may drift under writes.
func (s *RequestService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	stats := &models.DashboardStats{}
	counts := []struct {
		dest   *int
		status models.RequestStatus
	}{
		{&stats.Submitted, models.StatusSubmitted},
		{&stats.Reviewing, models.StatusReviewing},
		{&stats.InProgress, models.StatusInProgress},
		{&stats.Revision, models.StatusRevision},
		{&stats.Completed, models.StatusCompleted},
		{&stats.Delivered, models.StatusDelivered},
		{&stats.Cancelled, models.StatusCancelled},
	}
	for _, c := range counts {
		value, err := s.repo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
		}
		*c.dest = value
	}

	urgent, err := s.repo.CountByPriority(ctx, models.PriorityUrgent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
	}
	stats.Urgent = urgent

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
	}
	stats.Total = total

	s.cache.Set(ctx, dashboardCacheKey, stats)
	return stats, nil
}

// SendCustomEmail relays an admin-composed email through the gateway and
// reports the gateway's outcome. Unlike status notifications this surfaces
// delivery failure to the caller.
func (s *RequestService) SendCustomEmail(ctx context.Context, id string, req dto.SendEmailRequest) (*dto.SendEmailResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "notification gateway not configured")
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
	defer cancel()
	if err := s.gateway.SendCustom(sendCtx, req.ClientName, req.ClientEmail, req.Subject, req.Message); err != nil {
		s.logger.Warn("custom email failed", zap.String("request_id", id), zap.Error(err))
		return &dto.SendEmailResult{Success: false, Error: "email delivery failed"}, nil
	}
	return &dto.SendEmailResult{Success: true}, nil
}

// AttachDeliverable stores an uploaded result file and appends its
// reference to the request. Only the storage ID is persisted; download
// links are minted per read so they never go stale.
func (s *RequestService) AttachDeliverable(ctx context.Context, id, fileName, contentType string, size int64, file io.Reader) (*models.ServiceRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "deliverable storage not configured")
	}
	if s.cfg.MaxFileSizeBytes > 0 && size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	if len(s.cfg.AllowedMIMEs) > 0 && !mimeAllowed(contentType, s.cfg.AllowedMIMEs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", contentType))
	}

	safeName := filepath.Base(fileName)
	storageID := fmt.Sprintf("%s/%s%s", request.TrackingCode, uuid.NewString(), filepath.Ext(safeName))
	if _, err := s.storage.SaveStream(storageID, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store deliverable")
	}

	deliverable := models.Deliverable{
		FileName:    safeName,
		StorageID:   storageID,
		DeliveredAt: s.now(),
	}
	if err := s.repo.AppendDeliverable(ctx, id, deliverable); err != nil {
		if delErr := s.storage.Delete(storageID); delErr != nil {
			s.logger.Warn("failed to remove orphaned deliverable", zap.String("storage_id", storageID), zap.Error(delErr))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record deliverable")
	}
	return s.reload(ctx, id)
}

func (s *RequestService) reload(ctx context.Context, id string) (*models.ServiceRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	s.signDeliverables(request)
	return request, nil
}

// signDeliverables mints fresh download links onto a loaded request. Stored
// records carry only the storage ID, so a link is never stale at rest.
func (s *RequestService) signDeliverables(request *models.ServiceRequest) {
	if request == nil || s.signer == nil {
		return
	}
	for i := range request.Deliverables {
		entry := &request.Deliverables[i]
		if entry.StorageID == "" {
			continue
		}
		token, _, err := s.signer.Generate(entry.StorageID, entry.FileName)
		if err != nil {
			s.logger.Warn("failed to sign deliverable link", zap.String("storage_id", entry.StorageID), zap.Error(err))
			continue
		}
		entry.FileURL = s.cfg.SignedURLPath + "?token=" + token
	}
}

func (s *RequestService) invalidateDashboard(ctx context.Context) {
	s.cache.Invalidate(ctx, dashboardCacheKey)
}

func actorOrDefault(actor string) string {
	if trimmed := strings.TrimSpace(actor); trimmed != "" {
		return trimmed
	}
	return "Admin"
}

func joinStatuses() string {
	parts := make([]string, len(models.AllStatuses))
	for i, status := range models.AllStatuses {
		parts[i] = string(status)
	}
	return strings.Join(parts, ", ")
}

func mimeAllowed(contentType string, allowed []string) bool {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		parsed = contentType
	}
	for _, candidate := range allowed {
		if strings.EqualFold(parsed, candidate) {
			return true
		}
	}
	return false
}

// validationMessage flattens validator errors into a field-naming message.
func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return "invalid payload"
	}
	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields = append(fields, fe.Field())
	}
	return "invalid or missing fields: " + strings.Join(fields, ", ")
}
