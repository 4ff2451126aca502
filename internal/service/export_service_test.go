package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/intake-api/internal/models"
)

type exportStoreStub struct {
	requests []models.ServiceRequest
	calls    int
}

func (s *exportStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error) {
	s.calls++
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(s.requests) {
		return nil, len(s.requests), nil
	}
	end := start + filter.PageSize
	if end > len(s.requests) {
		end = len(s.requests)
	}
	return s.requests[start:end], len(s.requests), nil
}

func exportSample(code, status string) models.ServiceRequest {
	title := "Branding"
	return models.ServiceRequest{
		TrackingCode:  code,
		RequestType:   models.RequestTypeService,
		Status:        models.RequestStatus(status),
		Priority:      models.PriorityMedium,
		FullName:      "Asha Verma",
		Email:         "asha@example.com",
		CategoryTitle: &title,
	}
}

func TestExportServiceCSV(t *testing.T) {
	store := &exportStoreStub{requests: []models.ServiceRequest{
		exportSample("SR-1-AAAAAA", "submitted"),
		exportSample("SR-2-BBBBBB", "completed"),
	}}
	svc := NewExportService(store, 100)

	result, err := svc.Export(context.Background(), models.RequestFilter{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Request ID")
	assert.Contains(t, lines[1], "SR-1-AAAAAA")
	assert.Contains(t, lines[2], "SR-2-BBBBBB")
}

func TestExportServicePDF(t *testing.T) {
	store := &exportStoreStub{requests: []models.ServiceRequest{
		exportSample("SR-1-AAAAAA", "submitted"),
	}}
	svc := NewExportService(store, 100)

	result, err := svc.Export(context.Background(), models.RequestFilter{}, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(&exportStoreStub{}, 100)

	_, err := svc.Export(context.Background(), models.RequestFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
}

func TestExportServiceRowCap(t *testing.T) {
	requests := make([]models.ServiceRequest, 0, 250)
	for i := 0; i < 250; i++ {
		requests = append(requests, exportSample("SR-0-CCCCCC", "submitted"))
	}
	store := &exportStoreStub{requests: requests}
	svc := NewExportService(store, 150)

	result, err := svc.Export(context.Background(), models.RequestFilter{}, FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	// Header plus capped rows.
	assert.Len(t, lines, 151)
}
