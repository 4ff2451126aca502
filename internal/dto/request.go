package dto

import (
	"time"

	"github.com/pixelforge/intake-api/internal/models"
)

// SelectionPath is the client's choice of catalog entry. Which fields are
// mandatory depends on the request type.
type SelectionPath struct {
	CategoryID string `json:"categoryId" validate:"required"`
	ServiceID  string `json:"serviceId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	ComboID    string `json:"comboId,omitempty"`
}

// ClientInfo identifies the requesting client.
type ClientInfo struct {
	FullName     string `json:"fullName" validate:"required,min=2,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	BusinessName string `json:"businessName,omitempty" validate:"max=160"`
	Industry     string `json:"industry,omitempty" validate:"max=120"`
}

// Requirements is the free-form brief; validated only for size.
type Requirements struct {
	Description     string               `json:"description" validate:"max=5000"`
	PreferredColors []string             `json:"preferredColors,omitempty" validate:"max=20"`
	AvoidColors     []string             `json:"avoidColors,omitempty" validate:"max=20"`
	Tone            string               `json:"tone,omitempty" validate:"max=60"`
	AdditionalNotes string               `json:"additionalNotes,omitempty" validate:"max=5000"`
	CustomFields    []models.CustomField `json:"customFields,omitempty" validate:"max=50"`
}

// CreateRequestPayload is the public submission body.
type CreateRequestPayload struct {
	RequestType   string        `json:"requestType" validate:"required"`
	SelectionPath SelectionPath `json:"selectionPath" validate:"required"`
	ClientInfo    ClientInfo    `json:"clientInfo" validate:"required"`
	Requirements  Requirements  `json:"requirements"`
}

// UpdateStatusRequest drives a lifecycle transition.
type UpdateStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	AdminNote string `json:"adminNote,omitempty" validate:"max=2000"`
}

// UpdatePriorityRequest changes the priority only.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required"`
}

// AddNoteRequest appends an internal note.
type AddNoteRequest struct {
	Note    string `json:"note" validate:"required,max=2000"`
	AddedBy string `json:"addedBy,omitempty" validate:"max=120"`
}

// AssignRequest sets the assignee.
type AssignRequest struct {
	AssignedTo string `json:"assignedTo" validate:"required,max=120"`
}

// SendEmailRequest is a custom admin-composed email.
type SendEmailRequest struct {
	ClientName  string `json:"clientName" validate:"required,max=120"`
	ClientEmail string `json:"clientEmail" validate:"required,email"`
	Subject     string `json:"subject" validate:"required,max=200"`
	Message     string `json:"message" validate:"required,max=10000"`
}

// SendEmailResult reports the gateway outcome for custom emails; unlike
// status notifications this endpoint surfaces delivery failure.
type SendEmailResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TrackingResponse is the public-safe projection returned by the tracking
// lookup. It never carries admin notes or the internal row ID.
type TrackingResponse struct {
	RequestID     string                 `json:"requestId"`
	RequestType   models.RequestType     `json:"requestType"`
	Status        models.RequestStatus   `json:"status"`
	Priority      models.RequestPriority `json:"priority"`
	CategoryTitle *string                `json:"categoryTitle,omitempty"`
	ServiceTitle  *string                `json:"serviceTitle,omitempty"`
	ComboTitle    *string                `json:"comboTitle,omitempty"`
	TemplateTitle *string                `json:"templateTitle,omitempty"`
	FullName      string                 `json:"fullName"`

	EstimatedDelivery *time.Time             `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time             `json:"actualDelivery,omitempty"`
	Deliverables      models.DeliverableList `json:"deliverables"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTrackingResponse projects a request for public consumption.
func NewTrackingResponse(r *models.ServiceRequest) *TrackingResponse {
	deliverables := r.Deliverables
	if deliverables == nil {
		deliverables = models.DeliverableList{}
	}
	return &TrackingResponse{
		RequestID:         r.TrackingCode,
		RequestType:       r.RequestType,
		Status:            r.Status,
		Priority:          r.Priority,
		CategoryTitle:     r.CategoryTitle,
		ServiceTitle:      r.ServiceTitle,
		ComboTitle:        r.ComboTitle,
		TemplateTitle:     r.TemplateTitle,
		FullName:          r.FullName,
		EstimatedDelivery: r.EstimatedDelivery,
		ActualDelivery:    r.ActualDelivery,
		Deliverables:      deliverables,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
