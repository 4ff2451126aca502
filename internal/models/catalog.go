package models

import "time"

// Category groups services the agency offers.
type Category struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	SortOrder   int       `db:"sort_order" json:"sortOrder"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Service is one bookable offering within a category.
type Service struct {
	ID           string    `db:"id" json:"id"`
	CategoryID   string    `db:"category_id" json:"categoryId"`
	Title        string    `db:"title" json:"title"`
	Slug         string    `db:"slug" json:"slug"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Price        *float64  `db:"price" json:"price,omitempty"`
	DeliveryDays *int      `db:"delivery_days" json:"deliveryDays,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Template is a ready-made design a client can pick as a starting point.
type Template struct {
	ID         string    `db:"id" json:"id"`
	ServiceID  *string   `db:"service_id" json:"serviceId,omitempty"`
	Title      string    `db:"title" json:"title"`
	Slug       string    `db:"slug" json:"slug"`
	PreviewURL *string   `db:"preview_url" json:"previewUrl,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Combo bundles multiple services at a package price.
type Combo struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Slug         string    `db:"slug" json:"slug"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Price        *float64  `db:"price" json:"price,omitempty"`
	DeliveryDays *int      `db:"delivery_days" json:"deliveryDays,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
