package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pixelforge/intake-api/internal/models"
)

// RequestRepository persists service requests. Every mutation is a single
// conditional UPDATE so a status change and its note append land as one
// write; concurrent admins race on last-write-wins, never on torn state.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `sr.id, sr.tracking_code, sr.request_type, sr.category_id, sr.service_id, sr.template_id, sr.combo_id,
       sr.full_name, sr.email, sr.phone, sr.business_name, sr.industry,
       sr.description, sr.preferred_colors, sr.avoid_colors, sr.tone, sr.additional_notes, sr.custom_fields,
       sr.status, sr.priority, sr.estimated_delivery, sr.actual_delivery,
       sr.admin_notes, sr.assigned_to, sr.quoted_amount, sr.final_amount, sr.currency, sr.deliverables,
       sr.created_at, sr.updated_at,
       c.title AS category_title, c.slug AS category_slug,
       s.title AS service_title, s.slug AS service_slug,
       cb.title AS combo_title, cb.slug AS combo_slug,
       t.title AS template_title`

const requestFrom = ` FROM service_requests sr
	LEFT JOIN categories c ON c.id = sr.category_id
	LEFT JOIN services s ON s.id = sr.service_id
	LEFT JOIN combos cb ON cb.id = sr.combo_id
	LEFT JOIN templates t ON t.id = sr.template_id`

// Create inserts a new service request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = request.CreatedAt

	const query = `INSERT INTO service_requests
	(id, tracking_code, request_type, category_id, service_id, template_id, combo_id,
	 full_name, email, phone, business_name, industry,
	 description, preferred_colors, avoid_colors, tone, additional_notes, custom_fields,
	 status, priority, admin_notes, currency, deliverables, created_at, updated_at)
	VALUES (:id, :tracking_code, :request_type, :category_id, :service_id, :template_id, :combo_id,
	 :full_name, :email, :phone, :business_name, :industry,
	 :description, :preferred_colors, :avoid_colors, :tone, :additional_notes, :custom_fields,
	 :status, :priority, :admin_notes, :currency, :deliverables, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// FindByID fetches a request by internal identifier with catalog references
// resolved.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE sr.id = $1 LIMIT 1`
	var request models.ServiceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return &request, nil
}

// FindByTrackingCode fetches a request by its public tracking code.
func (r *RequestRepository) FindByTrackingCode(ctx context.Context, code string) (*models.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + requestFrom + ` WHERE sr.tracking_code = $1 LIMIT 1`
	var request models.ServiceRequest
	if err := r.db.GetContext(ctx, &request, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by tracking code: %w", err)
	}
	return &request, nil
}

var requestSortColumns = map[string]string{
	"createdAt": "sr.created_at",
	"updatedAt": "sr.updated_at",
	"status":    "sr.status",
	"priority":  "sr.priority",
}

// List returns requests matching the filter plus the total row count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.ServiceRequest, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("sr.status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("sr.priority = $%d", len(args)))
	}
	if filter.RequestType != nil {
		args = append(args, *filter.RequestType)
		conditions = append(conditions, fmt.Sprintf("sr.request_type = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn, ok := requestSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "sr.created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := `SELECT ` + requestColumns + requestFrom + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", sortColumn, sortOrder, pageSize, (page-1)*pageSize)

	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM service_requests sr` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}

	return requests, total, nil
}

// UpdateStatus sets the status and, when a note is provided, appends it to
// the trail in the same statement.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, note *models.AdminNote) error {
	now := time.Now().UTC()
	if note != nil {
		payload, err := json.Marshal([]models.AdminNote{*note})
		if err != nil {
			return fmt.Errorf("marshal admin note: %w", err)
		}
		const query = `UPDATE service_requests SET status = $2, admin_notes = admin_notes || $3::jsonb, updated_at = $4 WHERE id = $1`
		return r.exec(ctx, query, id, status, payload, now)
	}
	const query = `UPDATE service_requests SET status = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, status, now)
}

// UpdatePriority sets the priority only.
func (r *RequestRepository) UpdatePriority(ctx context.Context, id string, priority models.RequestPriority) error {
	const query = `UPDATE service_requests SET priority = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, priority, time.Now().UTC())
}

// AppendNote appends one entry to the admin trail.
func (r *RequestRepository) AppendNote(ctx context.Context, id string, note models.AdminNote) error {
	payload, err := json.Marshal([]models.AdminNote{note})
	if err != nil {
		return fmt.Errorf("marshal admin note: %w", err)
	}
	const query = `UPDATE service_requests SET admin_notes = admin_notes || $2::jsonb, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, payload, time.Now().UTC())
}

// Assign sets the assignee.
func (r *RequestRepository) Assign(ctx context.Context, id, assignee string) error {
	const query = `UPDATE service_requests SET assigned_to = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, assignee, time.Now().UTC())
}

// AppendDeliverable records an uploaded deliverable file.
func (r *RequestRepository) AppendDeliverable(ctx context.Context, id string, deliverable models.Deliverable) error {
	payload, err := json.Marshal([]models.Deliverable{deliverable})
	if err != nil {
		return fmt.Errorf("marshal deliverable: %w", err)
	}
	const query = `UPDATE service_requests SET deliverables = deliverables || $2::jsonb, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, query, id, payload, time.Now().UTC())
}

// CountByStatus returns the number of requests in one status.
func (r *RequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM service_requests WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count requests by status: %w", err)
	}
	return count, nil
}

// CountByPriority returns the number of requests at one priority.
func (r *RequestRepository) CountByPriority(ctx context.Context, priority models.RequestPriority) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM service_requests WHERE priority = $1`
	if err := r.db.GetContext(ctx, &count, query, priority); err != nil {
		return 0, fmt.Errorf("count requests by priority: %w", err)
	}
	return count, nil
}

// CountAll returns the grand total.
func (r *RequestRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM service_requests`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

func (r *RequestRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update service request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
