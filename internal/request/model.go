// File: internal/request/model.go
package request

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"repairdesk_backend/internal/common"

	"github.com/google/uuid"
)

// Media kinds accepted on a request.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// MediaItem is one uploaded evidence file attached to a request.
type MediaItem struct {
	Type string `json:"type" binding:"required,oneof=image video"`
	URL  string `json:"url" binding:"required,url"`
	Path string `json:"path" binding:"required"`
}

// MediaList is the ordered media_urls column, stored as a JSON document.
// The list is set once at creation and never mutated afterwards.
type MediaList []MediaItem

// Value implements the driver.Valuer interface for MediaList.
func (m MediaList) Value() (driver.Value, error) {
	if m == nil {
		m = MediaList{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media list: %w", err)
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for MediaList.
func (m *MediaList) Scan(value interface{}) error {
	if value == nil {
		*m = MediaList{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("failed to scan MediaList: invalid type")
	}
	if err := json.Unmarshal(b, m); err != nil {
		return fmt.Errorf("failed to unmarshal media list: %w", err)
	}
	return nil
}

// CountByType returns how many images and videos the list holds.
func (m MediaList) CountByType() (images, videos int) {
	for _, item := range m {
		switch item.Type {
		case MediaImage:
			images++
		case MediaVideo:
			videos++
		}
	}
	return images, videos
}

// ServiceRequest is the central entity: one device handed in for repair.
// Contact fields are a snapshot of the requester at creation time and are
// never re-derived from the profile later.
type ServiceRequest struct {
	common.BaseModel
	UserID               uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	FullName             string    `gorm:"type:varchar(150);not null" json:"full_name"`
	Email                string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone                string    `gorm:"type:varchar(50);not null;default:''" json:"phone"`
	Brand                string    `gorm:"type:varchar(100);not null" json:"brand"`
	Model                string    `gorm:"type:varchar(100);not null" json:"model"`
	Category             string    `gorm:"type:varchar(100);not null" json:"category"`
	ProductDate          string    `gorm:"type:varchar(50);not null" json:"product_date"`
	Description          string    `gorm:"type:text;not null" json:"description"`
	MediaURLs            MediaList `gorm:"type:jsonb;not null" json:"media_urls"`
	Status               Status    `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	RejectionReason      *string   `gorm:"type:text" json:"rejection_reason,omitempty"`
	EstimatedCost        *float64  `gorm:"type:decimal(12,2)" json:"estimated_cost,omitempty"`
	Currency             *string   `gorm:"type:varchar(10)" json:"currency,omitempty"`
	ApprovedByCustomer   bool      `gorm:"not null;default:false" json:"approved_by_customer"`
	ShippingCompany      *string   `gorm:"type:varchar(100)" json:"shipping_company,omitempty"`
	ShippingTrackingCode *string   `gorm:"type:varchar(100)" json:"shipping_tracking_code,omitempty"`
}

// TableName specifies the table name for GORM.
func (ServiceRequest) TableName() string {
	return "service_requests"
}

// --- DTOs for API requests ---

// CreateRequestRequest is the submission payload. Media must already be
// uploaded; the list references the stored objects.
type CreateRequestRequest struct {
	Brand       string      `json:"brand" binding:"required,max=100"`
	Model       string      `json:"model" binding:"required,max=100"`
	Category    string      `json:"category" binding:"required,max=100"`
	ProductDate string      `json:"product_date" binding:"required,max=50"`
	Description string      `json:"description" binding:"required,min=20"`
	Media       []MediaItem `json:"media_urls" binding:"required,dive"`
}

// UpdateStatusRequest moves a request through the workflow. Cost fields
// usually accompany pending_approval, shipping fields accompany shipped.
type UpdateStatusRequest struct {
	Status               Status   `json:"status" binding:"required"`
	EstimatedCost        *float64 `json:"estimated_cost" binding:"omitempty,gte=0"`
	Currency             *string  `json:"currency" binding:"omitempty,max=10"`
	ShippingCompany      *string  `json:"shipping_company" binding:"omitempty,max=100"`
	ShippingTrackingCode *string  `json:"shipping_tracking_code" binding:"omitempty,max=100"`
}

// RejectRequestRequest carries the mandatory rejection reason.
type RejectRequestRequest struct {
	Reason string `json:"reason" binding:"required"`
}
