package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/intake-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var requestRowColumns = []string{
	"id", "tracking_code", "request_type", "category_id", "service_id", "template_id", "combo_id",
	"full_name", "email", "phone", "business_name", "industry",
	"description", "preferred_colors", "avoid_colors", "tone", "additional_notes", "custom_fields",
	"status", "priority", "estimated_delivery", "actual_delivery",
	"admin_notes", "assigned_to", "quoted_amount", "final_amount", "currency", "deliverables",
	"created_at", "updated_at",
	"category_title", "category_slug", "service_title", "service_slug",
	"combo_title", "combo_slug", "template_title",
}

func sampleRequestRow() []driverValue {
	now := time.Now().UTC()
	return []driverValue{
		"req-1", "SR-1700000000000-A1B2C3", "service", "cat-1", "svc-1", nil, nil,
		"Asha Verma", "asha@example.com", "9876543210", nil, nil,
		"Minimal logo", []byte(`["#B86B2B"]`), []byte(`[]`), "warm", nil, []byte(`[]`),
		"submitted", "medium", nil, nil,
		[]byte(`[]`), nil, nil, nil, "INR", []byte(`[]`),
		now, now,
		"Branding", "branding", "Logo Design", "logo-design",
		nil, nil, nil,
	}
}

type driverValue = driver.Value

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ServiceRequest{
		TrackingCode:    "SR-1700000000000-A1B2C3",
		RequestType:     models.RequestTypeService,
		CategoryID:      "cat-1",
		FullName:        "Asha Verma",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		Description:     "Minimal logo",
		PreferredColors: models.StringList{"#B86B2B"},
		AvoidColors:     models.StringList{},
		CustomFields:    models.CustomFieldList{},
		Status:          models.StatusSubmitted,
		Priority:        models.PriorityMedium,
		AdminNotes:      models.AdminNoteList{},
		Deliverables:    models.DeliverableList{},
		Currency:        "INR",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryFindByTrackingCode(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows(requestRowColumns).AddRow(sampleRequestRow()...)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sr.tracking_code = $1")).
		WithArgs("SR-1700000000000-A1B2C3").
		WillReturnRows(rows)

	found, err := repo.FindByTrackingCode(context.Background(), "SR-1700000000000-A1B2C3")
	require.NoError(t, err)
	require.Equal(t, "req-1", found.ID)
	require.Equal(t, models.StatusSubmitted, found.Status)
	require.Equal(t, models.StringList{"#B86B2B"}, found.PreferredColors)
	require.NotNil(t, found.CategoryTitle)
	require.Equal(t, "Branding", *found.CategoryTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sr.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows(requestRowColumns).AddRow(sampleRequestRow()...)
	mock.ExpectQuery(regexp.QuoteMeta("sr.status = $1 AND sr.priority = $2")).
		WithArgs("submitted", "medium").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM service_requests sr WHERE sr.status = $1 AND sr.priority = $2")).
		WithArgs("submitted", "medium").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.StatusSubmitted
	priority := models.PriorityMedium
	requests, total, err := repo.List(context.Background(), models.RequestFilter{
		Status:   &status,
		Priority: &priority,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatusWithNote(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, admin_notes = admin_notes || $3::jsonb")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	note := &models.AdminNote{Note: "Checking brief", AddedBy: "Priya", AddedAt: time.Now().UTC()}
	err := repo.UpdateStatus(context.Background(), "req-1", models.StatusReviewing, note)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatusWithoutNote(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, updated_at = $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "req-1", models.StatusCancelled, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET status = $2, updated_at = $3")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.StatusReviewing, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAppendNote(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("SET admin_notes = admin_notes || $2::jsonb")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendNote(context.Background(), "req-1", models.AdminNote{
		Note:    "client asked for teal",
		AddedBy: "Priya",
		AddedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM service_requests WHERE status = $1")).
		WithArgs("submitted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByStatus(context.Background(), models.StatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
