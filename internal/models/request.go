package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RequestType discriminates which selection fields are mandatory.
type RequestType string

const (
	RequestTypeService RequestType = "service"
	RequestTypeCombo   RequestType = "combo"
)

// Valid reports whether the value is a known request type.
func (t RequestType) Valid() bool {
	return t == RequestTypeService || t == RequestTypeCombo
}

// RequestStatus captures the fulfillment lifecycle. Any status is reachable
// from any status; the enum is the only gate. This keeps admin overrides
// simple and is intentional, not a missing workflow.
type RequestStatus string

const (
	StatusSubmitted  RequestStatus = "submitted"
	StatusReviewing  RequestStatus = "reviewing"
	StatusInProgress RequestStatus = "in-progress"
	StatusRevision   RequestStatus = "revision"
	StatusCompleted  RequestStatus = "completed"
	StatusDelivered  RequestStatus = "delivered"
	StatusCancelled  RequestStatus = "cancelled"
)

// AllStatuses lists every lifecycle status in display order.
var AllStatuses = []RequestStatus{
	StatusSubmitted,
	StatusReviewing,
	StatusInProgress,
	StatusRevision,
	StatusCompleted,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether the value is a known lifecycle status.
func (s RequestStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// RequestPriority is independent of status.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// Valid reports whether the value is a known priority.
func (p RequestPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AdminNote is one entry of the append-only internal trail.
type AdminNote struct {
	Note    string    `json:"note"`
	AddedBy string    `json:"addedBy"`
	AddedAt time.Time `json:"addedAt"`
}

// AdminNoteList is stored as a JSONB array; appends happen SQL-side so a
// status change and its note land in one atomic write.
type AdminNoteList []AdminNote

func (l AdminNoteList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *AdminNoteList) Scan(src interface{}) error  { return jsonbScan(src, l) }

// Deliverable references an uploaded result file.
type Deliverable struct {
	FileName    string    `json:"fileName"`
	FileURL     string    `json:"fileUrl"`
	StorageID   string    `json:"storageId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// DeliverableList is stored as a JSONB array.
type DeliverableList []Deliverable

func (l DeliverableList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *DeliverableList) Scan(src interface{}) error  { return jsonbScan(src, l) }

// CustomField is a client-supplied dynamic requirement entry. The payload is
// opaque beyond its shape.
type CustomField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

// CustomFieldList is stored as a JSONB array.
type CustomFieldList []CustomField

func (l CustomFieldList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *CustomFieldList) Scan(src interface{}) error  { return jsonbScan(src, l) }

// StringList is stored as a JSONB array of strings (color preferences).
type StringList []string

func (l StringList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *StringList) Scan(src interface{}) error  { return jsonbScan(src, l) }

// ServiceRequest is the central entity: a client's structured intake request
// tracked through the fulfillment lifecycle. The tracking code, not the row
// ID, is what clients ever see.
type ServiceRequest struct {
	ID           string `db:"id" json:"id"`
	TrackingCode string `db:"tracking_code" json:"requestId"`

	RequestType RequestType `db:"request_type" json:"requestType"`
	CategoryID  string      `db:"category_id" json:"categoryId"`
	ServiceID   *string     `db:"service_id" json:"serviceId,omitempty"`
	TemplateID  *string     `db:"template_id" json:"templateId,omitempty"`
	ComboID     *string     `db:"combo_id" json:"comboId,omitempty"`

	// Resolved catalog references (join columns, read-only).
	CategoryTitle *string `db:"category_title" json:"categoryTitle,omitempty"`
	CategorySlug  *string `db:"category_slug" json:"categorySlug,omitempty"`
	ServiceTitle  *string `db:"service_title" json:"serviceTitle,omitempty"`
	ServiceSlug   *string `db:"service_slug" json:"serviceSlug,omitempty"`
	ComboTitle    *string `db:"combo_title" json:"comboTitle,omitempty"`
	ComboSlug     *string `db:"combo_slug" json:"comboSlug,omitempty"`
	TemplateTitle *string `db:"template_title" json:"templateTitle,omitempty"`

	FullName     string  `db:"full_name" json:"fullName"`
	Email        string  `db:"email" json:"email"`
	Phone        string  `db:"phone" json:"phone"`
	BusinessName *string `db:"business_name" json:"businessName,omitempty"`
	Industry     *string `db:"industry" json:"industry,omitempty"`

	Description     string          `db:"description" json:"description"`
	PreferredColors StringList      `db:"preferred_colors" json:"preferredColors"`
	AvoidColors     StringList      `db:"avoid_colors" json:"avoidColors"`
	Tone            string          `db:"tone" json:"tone"`
	AdditionalNotes *string         `db:"additional_notes" json:"additionalNotes,omitempty"`
	CustomFields    CustomFieldList `db:"custom_fields" json:"customFields"`

	Status   RequestStatus   `db:"status" json:"status"`
	Priority RequestPriority `db:"priority" json:"priority"`

	EstimatedDelivery *time.Time `db:"estimated_delivery" json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `db:"actual_delivery" json:"actualDelivery,omitempty"`

	AdminNotes AdminNoteList `db:"admin_notes" json:"adminNotes"`
	AssignedTo *string       `db:"assigned_to" json:"assignedTo,omitempty"`

	QuotedAmount *float64 `db:"quoted_amount" json:"quotedAmount,omitempty"`
	FinalAmount  *float64 `db:"final_amount" json:"finalAmount,omitempty"`
	Currency     string   `db:"currency" json:"currency"`

	Deliverables DeliverableList `db:"deliverables" json:"deliverables"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RequestFilter captures admin listing criteria; present fields are ANDed.
type RequestFilter struct {
	Status      *RequestStatus
	Priority    *RequestPriority
	RequestType *RequestType
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// DashboardStats is a best-effort snapshot; each count is an independent
// query and the aggregate is not transactionally consistent.
type DashboardStats struct {
	Total      int `json:"total"`
	Submitted  int `json:"submitted"`
	Reviewing  int `json:"reviewing"`
	InProgress int `json:"inProgress"`
	Revision   int `json:"revision"`
	Completed  int `json:"completed"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
	Urgent     int `json:"urgent"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, pageSize, totalItems int) *Pagination {
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPages := (totalItems + pageSize - 1) / pageSize
	return &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		HasNext:     page < totalPages,
		HasPrev:     page > 1 && totalItems > 0,
	}
}

func jsonbValue(v interface{}) (driver.Value, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb column: %w", err)
	}
	return payload, nil
}

func jsonbScan(src interface{}, dest interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
