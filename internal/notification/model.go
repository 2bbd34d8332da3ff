package notification

import (
	"time"

	"github.com/google/uuid"
)

// Severity defines the visual category of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ValidSeverity reports whether s is one of the four known severities.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Notification represents an in-app notification delivered to one profile.
// Notifications are immutable apart from the read flag.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"user_id"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Severity  Severity   `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	Link      *string    `gorm:"type:text" json:"link,omitempty"`
	RequestID *uuid.UUID `gorm:"type:uuid" json:"request_id,omitempty"`
	IsRead    bool       `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_notification_user_status" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
