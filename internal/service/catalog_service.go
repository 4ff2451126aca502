package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
)

type catalogAdminStore interface {
	catalogStore
	ListActiveCategories(ctx context.Context) ([]models.Category, error)
	ListActiveServices(ctx context.Context, categoryID string) ([]models.Service, error)
	ListActiveTemplates(ctx context.Context, serviceID string) ([]models.Template, error)
	ListActiveCombos(ctx context.Context) ([]models.Combo, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	CreateService(ctx context.Context, service *models.Service) error
	UpdateService(ctx context.Context, service *models.Service) error
	CreateCombo(ctx context.Context, combo *models.Combo) error
	CreateTemplate(ctx context.Context, template *models.Template) error
}

// CatalogService serves the browsable catalog and its admin mutations.
type CatalogService struct {
	repo     catalogAdminStore
	validate *validator.Validate
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo catalogAdminStore, validate *validator.Validate) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, validate: validate}
}

// ListCategories returns active categories in display order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListActiveCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// ListServices returns active services, optionally scoped to a category.
func (s *CatalogService) ListServices(ctx context.Context, categoryID string) ([]models.Service, error) {
	services, err := s.repo.ListActiveServices(ctx, strings.TrimSpace(categoryID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}
	if services == nil {
		services = []models.Service{}
	}
	return services, nil
}

// ListTemplates returns active templates, optionally scoped to a service.
func (s *CatalogService) ListTemplates(ctx context.Context, serviceID string) ([]models.Template, error) {
	templates, err := s.repo.ListActiveTemplates(ctx, strings.TrimSpace(serviceID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

// ListCombos returns active combos.
func (s *CatalogService) ListCombos(ctx context.Context) ([]models.Combo, error) {
	combos, err := s.repo.ListActiveCombos(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list combos")
	}
	if combos == nil {
		combos = []models.Combo{}
	}
	return combos, nil
}

// CreateCategory adds a category. New entries start active.
func (s *CatalogService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	category := &models.Category{
		Title:     strings.TrimSpace(req.Title),
		Slug:      normalizeSlug(req.Slug),
		Active:    true,
		SortOrder: req.SortOrder,
	}
	if req.Description != "" {
		category.Description = &req.Description
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory rewrites a category; absent active defaults to keeping it on.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, req dto.UpdateCategoryRequest) (*models.Category, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	current, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	current.Title = strings.TrimSpace(req.Title)
	current.Slug = normalizeSlug(req.Slug)
	current.SortOrder = req.SortOrder
	current.Description = nil
	if req.Description != "" {
		current.Description = &req.Description
	}
	if req.Active != nil {
		current.Active = *req.Active
	}

	if err := s.repo.UpdateCategory(ctx, current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return current, nil
}

// CreateService adds a bookable service under an existing category.
func (s *CatalogService) CreateService(ctx context.Context, req dto.CreateServiceRequest) (*models.Service, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	if _, err := s.repo.FindCategoryByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Selected category does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify category")
	}
	service := &models.Service{
		CategoryID:   req.CategoryID,
		Title:        strings.TrimSpace(req.Title),
		Slug:         normalizeSlug(req.Slug),
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Active:       true,
	}
	if req.Description != "" {
		service.Description = &req.Description
	}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

// UpdateService rewrites a service.
func (s *CatalogService) UpdateService(ctx context.Context, id string, req dto.UpdateServiceRequest) (*models.Service, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	service := &models.Service{
		ID:           id,
		CategoryID:   req.CategoryID,
		Title:        strings.TrimSpace(req.Title),
		Slug:         normalizeSlug(req.Slug),
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Active:       true,
	}
	if req.Description != "" {
		service.Description = &req.Description
	}
	if req.Active != nil {
		service.Active = *req.Active
	}
	if err := s.repo.UpdateService(ctx, service); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return service, nil
}

// CreateCombo adds a service bundle.
func (s *CatalogService) CreateCombo(ctx context.Context, req dto.CreateComboRequest) (*models.Combo, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	combo := &models.Combo{
		Title:        strings.TrimSpace(req.Title),
		Slug:         normalizeSlug(req.Slug),
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Active:       true,
	}
	if req.Description != "" {
		combo.Description = &req.Description
	}
	if err := s.repo.CreateCombo(ctx, combo); err != nil {
		return nil, err
	}
	return combo, nil
}

// CreateTemplate registers a ready-made template.
func (s *CatalogService) CreateTemplate(ctx context.Context, req dto.CreateTemplateRequest) (*models.Template, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	template := &models.Template{
		Title:  strings.TrimSpace(req.Title),
		Slug:   normalizeSlug(req.Slug),
		Active: true,
	}
	if req.ServiceID != "" {
		if _, err := s.repo.FindActiveServiceByID(ctx, req.ServiceID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "Selected service is not available")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify service")
		}
		template.ServiceID = &req.ServiceID
	}
	if req.PreviewURL != "" {
		template.PreviewURL = &req.PreviewURL
	}
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
