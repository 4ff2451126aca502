package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/middleware"
	"github.com/pixelforge/intake-api/internal/models"
	"github.com/pixelforge/intake-api/internal/service"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
)

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
}

type fakeRequestSrv struct {
	request    *models.ServiceRequest
	tracking   *dto.TrackingResponse
	stats      *models.DashboardStats
	emailRes   *dto.SendEmailResult
	err        error
	lastFilter models.RequestFilter
	lastStatus string
	lastActor  string
}

func (f *fakeRequestSrv) Create(context.Context, dto.CreateRequestPayload) (*models.ServiceRequest, error) {
	return f.request, f.err
}

func (f *fakeRequestSrv) Get(context.Context, string) (*models.ServiceRequest, error) {
	return f.request, f.err
}

func (f *fakeRequestSrv) Track(context.Context, string) (*dto.TrackingResponse, error) {
	return f.tracking, f.err
}

func (f *fakeRequestSrv) List(_ context.Context, filter models.RequestFilter) ([]models.ServiceRequest, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.ServiceRequest{*f.request}, models.NewPagination(1, 20, 1), nil
}

func (f *fakeRequestSrv) Transition(_ context.Context, _, status, _, actor string) (*models.ServiceRequest, error) {
	f.lastStatus = status
	f.lastActor = actor
	return f.request, f.err
}

func (f *fakeRequestSrv) UpdatePriority(context.Context, string, string) (*models.ServiceRequest, error) {
	return f.request, f.err
}

func (f *fakeRequestSrv) AppendNote(context.Context, string, string, string) (*models.ServiceRequest, error) {
	return f.request, f.err
}

func (f *fakeRequestSrv) Assign(context.Context, string, string) (*models.ServiceRequest, error) {
	return f.request, f.err
}

func (f *fakeRequestSrv) Cancel(_ context.Context, _ string, actor string) (*models.ServiceRequest, error) {
	f.lastActor = actor
	return f.request, f.err
}

func (f *fakeRequestSrv) DashboardStats(context.Context) (*models.DashboardStats, error) {
	return f.stats, f.err
}

func (f *fakeRequestSrv) SendCustomEmail(context.Context, string, dto.SendEmailRequest) (*dto.SendEmailResult, error) {
	return f.emailRes, f.err
}

func (f *fakeRequestSrv) AttachDeliverable(context.Context, string, string, string, int64, io.Reader) (*models.ServiceRequest, error) {
	return f.request, f.err
}

type fakeExportSrv struct {
	result *service.ExportResult
	err    error
}

func (f *fakeExportSrv) Export(context.Context, models.RequestFilter, service.ExportFormat) (*service.ExportResult, error) {
	return f.result, f.err
}

type fakeOpener struct{}

func (fakeOpener) Open(string) (*os.File, error) { return nil, os.ErrNotExist }

type fakeParser struct {
	storageID string
	fileName  string
	err       error
}

func (f fakeParser) Parse(string) (string, string, error) {
	return f.storageID, f.fileName, f.err
}

func sampleRequest() *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:           "req-1",
		TrackingCode: "SR-1700000000000-A1B2C3",
		RequestType:  models.RequestTypeService,
		Status:       models.StatusSubmitted,
		Priority:     models.PriorityMedium,
		FullName:     "Asha Verma",
		Email:        "asha@example.com",
	}
}

func testContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func TestRequestHandlerCreate(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodPost, "/service-requests", dto.CreateRequestPayload{
		RequestType: "service",
	})
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SR-1700000000000-A1B2C3", envelope.Data["requestId"])
}

func TestRequestHandlerCreateBadJSON(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/service-requests", bytes.NewReader([]byte("{nope")))

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandlerCreateValidationError(t *testing.T) {
	srv := &fakeRequestSrv{err: appErrors.Clone(appErrors.ErrValidation, "Combo selection is required")}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodPost, "/service-requests", dto.CreateRequestPayload{})
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Combo selection is required", envelope.Error.Message)
}

func TestRequestHandlerTrackNotFound(t *testing.T) {
	srv := &fakeRequestSrv{err: appErrors.ErrNotFound}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/track/SR-0-FFFFFF", nil)
	c.Params = gin.Params{{Key: "requestId", Value: "SR-0-FFFFFF"}}
	handler.Track(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestHandlerUpdateStatusPassesActor(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodPatch, "/service-requests/admin/req-1/status", dto.UpdateStatusRequest{
		Status:    "reviewing",
		AdminNote: "checking",
	})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", FullName: "Priya Nair"})

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reviewing", srv.lastStatus)
	assert.Equal(t, "Priya Nair", srv.lastActor)
}

func TestRequestHandlerUpdateStatusInvalid(t *testing.T) {
	srv := &fakeRequestSrv{err: appErrors.ErrInvalidStatus}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodPatch, "/service-requests/admin/req-1/status", dto.UpdateStatusRequest{
		Status: "archived",
	})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, envelope.Error.Code)
}

func TestRequestHandlerListParsesFilters(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/admin?status=submitted&priority=urgent&page=2&pageSize=10", nil)
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.Status)
	assert.Equal(t, models.StatusSubmitted, *srv.lastFilter.Status)
	require.NotNil(t, srv.lastFilter.Priority)
	assert.Equal(t, models.PriorityUrgent, *srv.lastFilter.Priority)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 10, srv.lastFilter.PageSize)
}

func TestRequestHandlerListRejectsUnknownStatus(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/admin?status=archived", nil)
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandlerCancelReturnsRequest(t *testing.T) {
	cancelled := sampleRequest()
	cancelled.Status = models.StatusCancelled
	srv := &fakeRequestSrv{request: cancelled}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodDelete, "/service-requests/admin/req-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Cancel(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "cancelled", envelope.Data["status"])
}

func TestRequestHandlerExportDisabled(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/admin/export?format=csv", nil)
	handler.Export(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestHandlerExportCSV(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	exports := &fakeExportSrv{result: &service.ExportResult{
		Content:     []byte("Request ID\nSR-1\n"),
		FileName:    "service-requests.csv",
		ContentType: "text/csv",
	}}
	handler := NewRequestHandler(srv, exports, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/admin/export?format=csv", nil)
	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "service-requests.csv")
	assert.Contains(t, rec.Body.String(), "SR-1")
}

func TestRequestHandlerDownloadInvalidToken(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{err: os.ErrInvalid})

	c, rec := testContext(t, http.MethodGet, "/deliverables/download?token=bogus", nil)
	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestHandlerDownloadMissingFile(t *testing.T) {
	srv := &fakeRequestSrv{request: sampleRequest()}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{storageID: "SR-1/file.png", fileName: "file.png"})

	c, rec := testContext(t, http.MethodGet, "/deliverables/download?token=valid", nil)
	handler.Download(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestHandlerStats(t *testing.T) {
	srv := &fakeRequestSrv{stats: &models.DashboardStats{Total: 5, Submitted: 2, Urgent: 1}}
	handler := NewRequestHandler(srv, nil, fakeOpener{}, fakeParser{})

	c, rec := testContext(t, http.MethodGet, "/service-requests/admin/stats", nil)
	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(5), envelope.Data["total"])
}
