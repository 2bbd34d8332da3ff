// File: internal/unread/model.go
package unread

import (
	"time"

	"github.com/google/uuid"
)

// UserPreference stores per-actor settings that survive across sessions.
// Today that is only the notification sound volume.
type UserPreference struct {
	UserID      uuid.UUID `gorm:"type:uuid;primary_key" json:"user_id"`
	AlertVolume float64   `gorm:"type:decimal(3,2);not null;default:0.4" json:"alert_volume"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (UserPreference) TableName() string {
	return "user_preferences"
}

// UpdateVolumeRequest sets the notification sound volume. Zero mutes.
type UpdateVolumeRequest struct {
	AlertVolume *float64 `json:"alert_volume" binding:"required,gte=0,lte=1"`
}

// Alert is a one-shot signal raised when a foreign note lands on a request
// whose thread the actor is not viewing.
type Alert struct {
	RequestID uuid.UUID `json:"request_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	// Volume for the notification sound; 0 means muted, play nothing.
	Volume float64 `json:"volume"`
}
