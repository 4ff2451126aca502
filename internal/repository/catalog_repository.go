package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
)

// CatalogRepository provides access to categories, services, templates and
// combos. The lifecycle engine only reads from it; mutations come from the
// admin catalog endpoints.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const uniqueViolation = "23505"

func translateConflict(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return appErrors.Clone(appErrors.ErrConflict, message)
	}
	return err
}

// FindCategoryByID fetches a category regardless of active state.
func (r *CatalogRepository) FindCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, title, slug, description, active, sort_order, created_at, updated_at FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// FindActiveServiceByID fetches an active service.
func (r *CatalogRepository) FindActiveServiceByID(ctx context.Context, id string) (*models.Service, error) {
	const query = `SELECT id, category_id, title, slug, description, price, delivery_days, active, created_at, updated_at FROM services WHERE id = $1 AND active = TRUE LIMIT 1`
	var service models.Service
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active service: %w", err)
	}
	return &service, nil
}

// FindActiveComboByID fetches an active combo.
func (r *CatalogRepository) FindActiveComboByID(ctx context.Context, id string) (*models.Combo, error) {
	const query = `SELECT id, title, slug, description, price, delivery_days, active, created_at, updated_at FROM combos WHERE id = $1 AND active = TRUE LIMIT 1`
	var combo models.Combo
	if err := r.db.GetContext(ctx, &combo, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active combo: %w", err)
	}
	return &combo, nil
}

// FindTemplateByID fetches a template regardless of active state.
func (r *CatalogRepository) FindTemplateByID(ctx context.Context, id string) (*models.Template, error) {
	const query = `SELECT id, service_id, title, slug, preview_url, active, created_at, updated_at FROM templates WHERE id = $1 LIMIT 1`
	var template models.Template
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &template, nil
}

// ListActiveCategories returns active categories in display order.
func (r *CatalogRepository) ListActiveCategories(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, title, slug, description, active, sort_order, created_at, updated_at FROM categories WHERE active = TRUE ORDER BY sort_order, title`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListActiveServices returns active services, optionally scoped to a category.
func (r *CatalogRepository) ListActiveServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	query := `SELECT id, category_id, title, slug, description, price, delivery_days, active, created_at, updated_at FROM services WHERE active = TRUE`
	args := []interface{}{}
	if categoryID != "" {
		query += ` AND category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY title`
	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// ListActiveTemplates returns active templates, optionally scoped to a service.
func (r *CatalogRepository) ListActiveTemplates(ctx context.Context, serviceID string) ([]models.Template, error) {
	query := `SELECT id, service_id, title, slug, preview_url, active, created_at, updated_at FROM templates WHERE active = TRUE`
	args := []interface{}{}
	if serviceID != "" {
		query += ` AND service_id = $1`
		args = append(args, serviceID)
	}
	query += ` ORDER BY title`
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ListActiveCombos returns active combos.
func (r *CatalogRepository) ListActiveCombos(ctx context.Context) ([]models.Combo, error) {
	const query = `SELECT id, title, slug, description, price, delivery_days, active, created_at, updated_at FROM combos WHERE active = TRUE ORDER BY title`
	var combos []models.Combo
	if err := r.db.SelectContext(ctx, &combos, query); err != nil {
		return nil, fmt.Errorf("list combos: %w", err)
	}
	return combos, nil
}

// CreateCategory inserts a category; duplicate slugs map to a conflict.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (id, title, slug, description, active, sort_order, created_at, updated_at)
	VALUES (:id, :title, :slug, :description, :active, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return translateConflict(err, "a category with this slug already exists")
	}
	return nil
}

// UpdateCategory rewrites mutable category columns.
func (r *CatalogRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET title = :title, slug = :slug, description = :description, active = :active, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return translateConflict(err, "a category with this slug already exists")
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

// CreateService inserts a service; duplicate slugs map to a conflict.
func (r *CatalogRepository) CreateService(ctx context.Context, service *models.Service) error {
	if service.ID == "" {
		service.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now
	const query = `INSERT INTO services (id, category_id, title, slug, description, price, delivery_days, active, created_at, updated_at)
	VALUES (:id, :category_id, :title, :slug, :description, :price, :delivery_days, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, service); err != nil {
		return translateConflict(err, "a service with this slug already exists")
	}
	return nil
}

// UpdateService rewrites mutable service columns.
func (r *CatalogRepository) UpdateService(ctx context.Context, service *models.Service) error {
	service.UpdatedAt = time.Now().UTC()
	const query = `UPDATE services SET category_id = :category_id, title = :title, slug = :slug, description = :description, price = :price, delivery_days = :delivery_days, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, service)
	if err != nil {
		return translateConflict(err, "a service with this slug already exists")
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

// CreateCombo inserts a combo; duplicate slugs map to a conflict.
func (r *CatalogRepository) CreateCombo(ctx context.Context, combo *models.Combo) error {
	if combo.ID == "" {
		combo.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	combo.CreatedAt = now
	combo.UpdatedAt = now
	const query = `INSERT INTO combos (id, title, slug, description, price, delivery_days, active, created_at, updated_at)
	VALUES (:id, :title, :slug, :description, :price, :delivery_days, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, combo); err != nil {
		return translateConflict(err, "a combo with this slug already exists")
	}
	return nil
}

// CreateTemplate inserts a template; duplicate slugs map to a conflict.
func (r *CatalogRepository) CreateTemplate(ctx context.Context, template *models.Template) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	const query = `INSERT INTO templates (id, service_id, title, slug, preview_url, active, created_at, updated_at)
	VALUES (:id, :service_id, :title, :slug, :preview_url, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return translateConflict(err, "a template with this slug already exists")
	}
	return nil
}
