package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
	"github.com/pixelforge/intake-api/pkg/export"
)

// ExportFormat names a supported export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

var exportHeaders = []string{
	"Request ID", "Type", "Status", "Priority", "Client", "Email",
	"Category", "Service", "Combo", "Assigned To", "Created",
}

// ExportResult carries the rendered document and its response metadata.
type ExportResult struct {
	Content     []byte
	FileName    string
	ContentType string
}

type exportStore interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error)
}

// ExportService renders filtered request listings as CSV or PDF documents
// for offline admin workflows.
type ExportService struct {
	repo    exportStore
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	now     func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(repo exportStore, maxRows int) *ExportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ExportService{
		repo:    repo,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the filtered listing in the requested format. Pagination on
// the filter is ignored: exports always walk from the first page up to the
// configured row cap.
func (s *ExportService) Export(ctx context.Context, filter models.RequestFilter, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatCSV, FormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter.Page = 1
	filter.PageSize = 100
	if filter.SortBy == "" {
		filter.SortBy = "createdAt"
		filter.SortOrder = "desc"
	}

	dataset := export.Dataset{Headers: exportHeaders}
	for len(dataset.Rows) < s.maxRows {
		requests, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests for export")
		}
		for i := range requests {
			if len(dataset.Rows) >= s.maxRows {
				break
			}
			dataset.Rows = append(dataset.Rows, exportRow(&requests[i]))
		}
		if len(requests) < filter.PageSize || filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	stamp := s.now().Format("20060102-150405")
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportResult{
			Content:     content,
			FileName:    fmt.Sprintf("service-requests-%s.csv", stamp),
			ContentType: "text/csv",
		}, nil
	default:
		content, err := s.pdf.Render(dataset, "Service Requests")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
		}
		return &ExportResult{
			Content:     content,
			FileName:    fmt.Sprintf("service-requests-%s.pdf", stamp),
			ContentType: "application/pdf",
		}, nil
	}
}

func exportRow(r *models.ServiceRequest) map[string]string {
	return map[string]string{
		"Request ID":  r.TrackingCode,
		"Type":        string(r.RequestType),
		"Status":      string(r.Status),
		"Priority":    string(r.Priority),
		"Client":      r.FullName,
		"Email":       r.Email,
		"Category":    strValue(r.CategoryTitle),
		"Service":     strValue(r.ServiceTitle),
		"Combo":       strValue(r.ComboTitle),
		"Assigned To": strValue(r.AssignedTo),
		"Created":     r.CreatedAt.Format(time.RFC3339),
	}
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
