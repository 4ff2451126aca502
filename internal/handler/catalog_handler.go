package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelforge/intake-api/internal/dto"
	"github.com/pixelforge/intake-api/internal/models"
	appErrors "github.com/pixelforge/intake-api/pkg/errors"
	"github.com/pixelforge/intake-api/pkg/response"
)

type catalogService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListServices(ctx context.Context, categoryID string) ([]models.Service, error)
	ListTemplates(ctx context.Context, serviceID string) ([]models.Template, error)
	ListCombos(ctx context.Context) ([]models.Combo, error)
	CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, req dto.UpdateCategoryRequest) (*models.Category, error)
	CreateService(ctx context.Context, req dto.CreateServiceRequest) (*models.Service, error)
	UpdateService(ctx context.Context, id string, req dto.UpdateServiceRequest) (*models.Service, error)
	CreateCombo(ctx context.Context, req dto.CreateComboRequest) (*models.Combo, error)
	CreateTemplate(ctx context.Context, req dto.CreateTemplateRequest) (*models.Template, error)
}

// CatalogHandler exposes the browsable catalog and its admin mutations.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListCategories godoc
// @Summary List active categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// ListServices godoc
// @Summary List active services
// @Tags Catalog
// @Produce json
// @Param categoryId query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /services [get]
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, err := h.service.ListServices(c.Request.Context(), c.Query("categoryId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, services, nil)
}

// ListTemplates godoc
// @Summary List active templates
// @Tags Catalog
// @Produce json
// @Param serviceId query string false "Service filter"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context(), c.Query("serviceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// ListCombos godoc
// @Summary List active combos
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /combos [get]
func (h *CatalogHandler) ListCombos(c *gin.Context) {
	combos, err := h.service.ListCombos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, combos, nil)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /categories/admin [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var payload dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.UpdateCategoryRequest true "Category"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /categories/admin/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var payload dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// CreateService godoc
// @Summary Create a service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateServiceRequest true "Service"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /services/admin [post]
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var payload dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	created, err := h.service.CreateService(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateService godoc
// @Summary Update a service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param payload body dto.UpdateServiceRequest true "Service"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /services/admin/{id} [put]
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var payload dto.UpdateServiceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	updated, err := h.service.UpdateService(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// CreateCombo godoc
// @Summary Create a combo
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateComboRequest true "Combo"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /combos/admin [post]
func (h *CatalogHandler) CreateCombo(c *gin.Context) {
	var payload dto.CreateComboRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	combo, err := h.service.CreateCombo(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, combo)
}

// CreateTemplate godoc
// @Summary Register a template
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateTemplateRequest true "Template"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /templates/admin [post]
func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var payload dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	template, err := h.service.CreateTemplate(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}
