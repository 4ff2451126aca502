package dto

// CreateCategoryRequest creates a catalog category.
type CreateCategoryRequest struct {
	Title       string `json:"title" validate:"required,max=160"`
	Slug        string `json:"slug" validate:"required,max=160"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	SortOrder   int    `json:"sortOrder,omitempty"`
}

// UpdateCategoryRequest updates a catalog category.
type UpdateCategoryRequest struct {
	Title       string `json:"title" validate:"required,max=160"`
	Slug        string `json:"slug" validate:"required,max=160"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	SortOrder   int    `json:"sortOrder,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

// CreateServiceRequest creates a bookable service.
type CreateServiceRequest struct {
	CategoryID   string   `json:"categoryId" validate:"required"`
	Title        string   `json:"title" validate:"required,max=160"`
	Slug         string   `json:"slug" validate:"required,max=160"`
	Description  string   `json:"description,omitempty" validate:"max=2000"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	DeliveryDays *int     `json:"deliveryDays,omitempty" validate:"omitempty,gte=1"`
}

// UpdateServiceRequest updates a bookable service.
type UpdateServiceRequest struct {
	CategoryID   string   `json:"categoryId" validate:"required"`
	Title        string   `json:"title" validate:"required,max=160"`
	Slug         string   `json:"slug" validate:"required,max=160"`
	Description  string   `json:"description,omitempty" validate:"max=2000"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	DeliveryDays *int     `json:"deliveryDays,omitempty" validate:"omitempty,gte=1"`
	Active       *bool    `json:"active,omitempty"`
}

// CreateComboRequest creates a service bundle.
type CreateComboRequest struct {
	Title        string   `json:"title" validate:"required,max=160"`
	Slug         string   `json:"slug" validate:"required,max=160"`
	Description  string   `json:"description,omitempty" validate:"max=2000"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	DeliveryDays *int     `json:"deliveryDays,omitempty" validate:"omitempty,gte=1"`
}

// CreateTemplateRequest registers a ready-made template.
type CreateTemplateRequest struct {
	ServiceID  string `json:"serviceId,omitempty"`
	Title      string `json:"title" validate:"required,max=160"`
	Slug       string `json:"slug" validate:"required,max=160"`
	PreviewURL string `json:"previewUrl,omitempty" validate:"omitempty,url"`
}
