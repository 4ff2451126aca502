package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
	"github.com/pixelforge/intake-api/pkg/jobs"
)

type requestRepoStub struct {
	requests map[string]*models.ServiceRequest
	nextID   int

	statusUpdates int

	appendedDeliverables []models.Deliverable
	appendDeliverableErr error
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: make(map[string]*models.ServiceRequest)}
}

func (s *requestRepoStub) Create(ctx context.Context, request *models.ServiceRequest) error {
	s.nextID++
	if request.ID == "" {
		request.ID = fmt.Sprintf("req-%d", s.nextID)
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	copied := *request
	s.requests[request.ID] = &copied
	return nil
}

func (s *requestRepoStub) FindByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	if request, ok := s.requests[id]; ok {
		copied := *request
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) FindByTrackingCode(ctx context.Context, code string) (*models.ServiceRequest, error) {
	for _, request := range s.requests {
		if request.TrackingCode == code {
			copied := *request
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error) {
	result := make([]models.ServiceRequest, 0, len(s.requests))
	for _, request := range s.requests {
		if filter.Status != nil && request.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && request.Priority != *filter.Priority {
			continue
		}
		result = append(result, *request)
	}
	return result, len(result), nil
}

func (s *requestRepoStub) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, note *models.AdminNote) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.statusUpdates++
	request.Status = status
	if note != nil {
		request.AdminNotes = append(request.AdminNotes, *note)
	}
	request.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *requestRepoStub) UpdatePriority(ctx context.Context, id string, priority models.RequestPriority) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	request.Priority = priority
	return nil
}

func (s *requestRepoStub) AppendNote(ctx context.Context, id string, note models.AdminNote) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	request.AdminNotes = append(request.AdminNotes, note)
	return nil
}

func (s *requestRepoStub) Assign(ctx context.Context, id, assignee string) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	request.AssignedTo = &assignee
	return nil
}

func (s *requestRepoStub) AppendDeliverable(ctx context.Context, id string, deliverable models.Deliverable) error {
	if s.appendDeliverableErr != nil {
		return s.appendDeliverableErr
	}
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.appendedDeliverables = append(s.appendedDeliverables, deliverable)
	request.Deliverables = append(request.Deliverables, deliverable)
	return nil
}

func (s *requestRepoStub) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	count := 0
	for _, request := range s.requests {
		if request.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *requestRepoStub) CountByPriority(ctx context.Context, priority models.RequestPriority) (int, error) {
	count := 0
	for _, request := range s.requests {
		if request.Priority == priority {
			count++
		}
	}
	return count, nil
}

func (s *requestRepoStub) CountAll(ctx context.Context) (int, error) {
	return len(s.requests), nil
}

type catalogStoreStub struct {
	categories map[string]*models.Category
	services   map[string]*models.Service
	combos     map[string]*models.Combo
	templates  map[string]*models.Template
}

func newCatalogStoreStub() *catalogStoreStub {
	return &catalogStoreStub{
		categories: make(map[string]*models.Category),
		services:   make(map[string]*models.Service),
		combos:     make(map[string]*models.Combo),
		templates:  make(map[string]*models.Template),
	}
}

func (s *catalogStoreStub) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	if category, ok := s.categories[id]; ok {
		return category, nil
	}
	return nil, sql.ErrNoRows
}

func (s *catalogStoreStub) FindActiveServiceByID(ctx context.Context, id string) (*models.Service, error) {
	if service, ok := s.services[id]; ok && service.Active {
		return service, nil
	}
	return nil, sql.ErrNoRows
}

func (s *catalogStoreStub) FindActiveComboByID(ctx context.Context, id string) (*models.Combo, error) {
	if combo, ok := s.combos[id]; ok && combo.Active {
		return combo, nil
	}
	return nil, sql.ErrNoRows
}

func (s *catalogStoreStub) FindTemplateByID(ctx context.Context, id string) (*models.Template, error) {
	if template, ok := s.templates[id]; ok {
		return template, nil
	}
	return nil, sql.ErrNoRows
}

type gatewayStub struct {
	statusCalls []string
	customCalls []string
	err         error
}

func (g *gatewayStub) SendStatusUpdate(ctx context.Context, email, name, trackingCode, status, note string) error {
	g.statusCalls = append(g.statusCalls, status)
	return g.err
}

func (g *gatewayStub) SendCustom(ctx context.Context, name, email, subject, body string) error {
	g.customCalls = append(g.customCalls, subject)
	return g.err
}

type retryStub struct {
	jobs []jobs.Job
}

func (r *retryStub) Enqueue(job jobs.Job) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func validPayload() dto.CreateRequestPayload {
	return dto.CreateRequestPayload{
		RequestType: "service",
		SelectionPath: dto.SelectionPath{
			CategoryID: "cat-1",
			ServiceID:  "svc-1",
		},
		ClientInfo: dto.ClientInfo{
			FullName: "Asha Verma",
			Email:    "asha@example.com",
			Phone:    "9876543210",
		},
		Requirements: dto.Requirements{
			Description:     "Minimal logo for a bakery",
			PreferredColors: []string{"#B86B2B"},
			Tone:            "warm",
		},
	}
}

func newFixture(t *testing.T) (*RequestService, *requestRepoStub, *catalogStoreStub, *gatewayStub, *retryStub) {
	t.Helper()
	repo := newRequestRepoStub()
	catalog := newCatalogStoreStub()
	catalog.categories["cat-1"] = &models.Category{ID: "cat-1", Title: "Branding", Active: true}
	catalog.services["svc-1"] = &models.Service{ID: "svc-1", CategoryID: "cat-1", Title: "Logo Design", Active: true}
	catalog.combos["combo-1"] = &models.Combo{ID: "combo-1", Title: "Startup Pack", Active: true}
	gateway := &gatewayStub{}
	retry := &retryStub{}

	svc := NewRequestService(RequestServiceParams{
		Repo:    repo,
		Catalog: catalog,
		Gateway: gateway,
		Retry:   retry,
	})
	return svc, repo, catalog, gateway, retry
}

func TestRequestServiceCreate(t *testing.T) {
	svc, repo, _, gateway, _ := newFixture(t)

	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.TrackingCode, "SR-"))
	assert.Equal(t, models.StatusSubmitted, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Empty(t, created.AdminNotes)
	require.NotNil(t, created.ServiceID)
	assert.Equal(t, "svc-1", *created.ServiceID)
	assert.Len(t, repo.requests, 1)

	// Submissions never trigger notifications.
	assert.Empty(t, gateway.statusCalls)
}

func TestRequestServiceCreateComboRequiresComboID(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)

	payload := validPayload()
	payload.RequestType = "combo"
	payload.SelectionPath.ServiceID = ""
	payload.SelectionPath.ComboID = ""

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Combo selection is required", appErr.Message)
}

func TestRequestServiceCreateComboPath(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)

	payload := validPayload()
	payload.RequestType = "combo"
	payload.SelectionPath.ServiceID = ""
	payload.SelectionPath.ComboID = "combo-1"

	created, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)
	require.NotNil(t, created.ComboID)
	assert.Equal(t, "combo-1", *created.ComboID)
	assert.Nil(t, created.ServiceID)
}

func TestRequestServiceCreateRejectsBadPhone(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)

	payload := validPayload()
	payload.ClientInfo.Phone = "1234567890"

	_, err := svc.Create(context.Background(), payload)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceCreateInactiveCategory(t *testing.T) {
	svc, _, catalog, _, _ := newFixture(t)
	catalog.categories["cat-1"].Active = false

	_, err := svc.Create(context.Background(), validPayload())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceTransitionWithNote(t *testing.T) {
	svc, repo, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), created.ID, "reviewing", "Checking brief", "Priya")
	require.NoError(t, err)

	assert.Equal(t, models.StatusReviewing, updated.Status)
	require.Len(t, updated.AdminNotes, 1)
	assert.Equal(t, "Checking brief", updated.AdminNotes[0].Note)
	assert.Equal(t, "Priya", updated.AdminNotes[0].AddedBy)

	// Status and note land in one repository write.
	assert.Equal(t, 1, repo.statusUpdates)
	assert.Equal(t, []string{"reviewing"}, gateway.statusCalls)
}

func TestRequestServiceTransitionInvalidStatus(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), created.ID, "archived", "", "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErr.Code)
	assert.Empty(t, gateway.statusCalls)
}

func TestRequestServiceTransitionBackwardsAllowed(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), created.ID, "completed", "", "")
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), created.ID, "submitted", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
}

func TestRequestServiceNotificationFailureDoesNotFailTransition(t *testing.T) {
	svc, _, _, gateway, retry := newFixture(t)
	gateway.err = errors.New("provider down")

	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), created.ID, "in-progress", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	// The failed send lands on the retry lane.
	require.Len(t, retry.jobs, 1)
	assert.Equal(t, "status_email", retry.jobs[0].Type)
	payload, ok := retry.jobs[0].Payload.(StatusEmailJob)
	require.True(t, ok)
	assert.Equal(t, created.TrackingCode, payload.TrackingCode)
	assert.Equal(t, "in-progress", payload.Status)
}

func TestRequestServiceNoOpTransitionSkipsNotification(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), created.ID, "submitted", "still submitted", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, updated.Status)
	require.Len(t, updated.AdminNotes, 1)
	assert.Empty(t, gateway.statusCalls)
}

func TestRequestServiceUpdatePriorityNoNotification(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.UpdatePriority(context.Background(), created.ID, "urgent")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
	assert.Empty(t, gateway.statusCalls)
}

func TestRequestServiceUpdatePriorityInvalid(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.UpdatePriority(context.Background(), created.ID, "critical")
	require.Error(t, err)
}

func TestRequestServiceAppendNoteDefaultsActor(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.AppendNote(context.Background(), created.ID, "client asked for teal", "")
	require.NoError(t, err)
	require.Len(t, updated.AdminNotes, 1)
	assert.Equal(t, "Admin", updated.AdminNotes[0].AddedBy)
}

func TestRequestServiceAppendNoteRejectsEmpty(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.AppendNote(context.Background(), created.ID, "   ", "Priya")
	require.Error(t, err)
}

func TestRequestServiceCancel(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), created.ID, "Priya")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, []string{"cancelled"}, gateway.statusCalls)
}

func TestRequestServiceTrackProjectsPublicView(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.AppendNote(context.Background(), created.ID, "internal pricing note", "Priya")
	require.NoError(t, err)

	tracked, err := svc.Track(context.Background(), created.TrackingCode)
	require.NoError(t, err)

	assert.Equal(t, created.TrackingCode, tracked.RequestID)
	assert.Equal(t, models.StatusSubmitted, tracked.Status)
	assert.NotNil(t, tracked.Deliverables)
}

func TestRequestServiceTrackUnknownCode(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)

	_, err := svc.Track(context.Background(), "SR-0-FFFFFF")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRequestServiceDashboardStats(t *testing.T) {
	svc, _, _, _, _ := newFixture(t)

	first, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), first.ID, "in-progress", "", "")
	require.NoError(t, err)
	_, err = svc.UpdatePriority(context.Background(), second.ID, "urgent")
	require.NoError(t, err)

	stats, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Submitted)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Urgent)
}

func TestRequestServiceSendCustomEmail(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	result, err := svc.SendCustomEmail(context.Background(), created.ID, dto.SendEmailRequest{
		ClientName:  "Asha Verma",
		ClientEmail: "asha@example.com",
		Subject:     "Quick question",
		Message:     "Could you confirm the brand colors?",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"Quick question"}, gateway.customCalls)
}

func TestRequestServiceSendCustomEmailReportsFailure(t *testing.T) {
	svc, _, _, gateway, _ := newFixture(t)
	gateway.err = errors.New("provider down")

	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	result, err := svc.SendCustomEmail(context.Background(), created.ID, dto.SendEmailRequest{
		ClientName:  "Asha Verma",
		ClientEmail: "asha@example.com",
		Subject:     "Quick question",
		Message:     "Could you confirm the brand colors?",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestStatusEmailRetryHandler(t *testing.T) {
	gateway := &gatewayStub{}
	handler := StatusEmailRetryHandler(gateway, nil, time.Second)

	err := handler(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: "status_email",
		Payload: StatusEmailJob{
			Email:        "asha@example.com",
			Name:         "Asha Verma",
			TrackingCode: "SR-1-ABCDEF",
			Status:       "completed",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"completed"}, gateway.statusCalls)

	err = handler(context.Background(), jobs.Job{ID: "job-2", Type: "status_email", Payload: "bogus"})
	require.Error(t, err)
}

type storageStub struct {
	saved   []string
	deleted []string
	saveErr error
}

func (s *storageStub) SaveStream(storageID string, r io.Reader) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	written, err := io.Copy(io.Discard, r)
	if err != nil {
		return 0, err
	}
	s.saved = append(s.saved, storageID)
	return written, nil
}

func (s *storageStub) Delete(storageID string) error {
	s.deleted = append(s.deleted, storageID)
	return nil
}

type signerStub struct {
	calls int
}

func (s *signerStub) Generate(storageID, fileName string) (string, time.Time, error) {
	s.calls++
	return fmt.Sprintf("tok%d", s.calls), time.Now().Add(time.Hour), nil
}

func newDeliverableFixture(t *testing.T) (*RequestService, *requestRepoStub, *storageStub, *signerStub) {
	t.Helper()
	repo := newRequestRepoStub()
	catalog := newCatalogStoreStub()
	catalog.categories["cat-1"] = &models.Category{ID: "cat-1", Title: "Branding", Active: true}
	catalog.services["svc-1"] = &models.Service{ID: "svc-1", CategoryID: "cat-1", Title: "Logo Design", Active: true}
	store := &storageStub{}
	signer := &signerStub{}

	svc := NewRequestService(RequestServiceParams{
		Repo:    repo,
		Catalog: catalog,
		Storage: store,
		Signer:  signer,
		Config:  RequestServiceConfig{SignedURLPath: "/api/v1/deliverables/download"},
	})
	return svc, repo, store, signer
}

func TestRequestServiceAttachDeliverablePersistsStorageIDOnly(t *testing.T) {
	svc, repo, store, _ := newDeliverableFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	updated, err := svc.AttachDeliverable(context.Background(), created.ID, "logo final.png", "image/png", 9, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Len(t, updated.Deliverables, 1)

	entry := updated.Deliverables[0]
	assert.Equal(t, "logo final.png", entry.FileName)
	assert.True(t, strings.HasPrefix(entry.StorageID, created.TrackingCode+"/"))
	assert.Contains(t, entry.FileURL, "/api/v1/deliverables/download?token=")
	require.Len(t, store.saved, 1)
	assert.Equal(t, entry.StorageID, store.saved[0])

	// The stored record must not embed a download link: tokens expire, rows
	// do not.
	require.Len(t, repo.appendedDeliverables, 1)
	assert.Empty(t, repo.appendedDeliverables[0].FileURL)
	assert.Equal(t, entry.StorageID, repo.appendedDeliverables[0].StorageID)
}

func TestRequestServiceDeliverableLinkMintedPerRead(t *testing.T) {
	svc, _, _, signer := newDeliverableFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	attached, err := svc.AttachDeliverable(context.Background(), created.ID, "logo.png", "image/png", 9, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Len(t, attached.Deliverables, 1)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Deliverables, 1)
	assert.NotEmpty(t, fetched.Deliverables[0].FileURL)
	assert.NotEqual(t, attached.Deliverables[0].FileURL, fetched.Deliverables[0].FileURL)

	tracked, err := svc.Track(context.Background(), created.TrackingCode)
	require.NoError(t, err)
	require.Len(t, tracked.Deliverables, 1)
	assert.NotEmpty(t, tracked.Deliverables[0].FileURL)
	assert.Equal(t, 3, signer.calls)
}

func TestRequestServiceAttachDeliverableCleansUpOnPersistFailure(t *testing.T) {
	svc, repo, store, _ := newDeliverableFixture(t)
	created, err := svc.Create(context.Background(), validPayload())
	require.NoError(t, err)

	repo.appendDeliverableErr = errors.New("jsonb append failed")
	_, err = svc.AttachDeliverable(context.Background(), created.ID, "logo.png", "image/png", 9, strings.NewReader("png-bytes"))
	require.Error(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, store.saved, store.deleted)
}
