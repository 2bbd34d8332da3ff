// File: internal/note/model.go
package note

import (
	"strings"
	"time"

	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
)

// Media attachment types accepted on a note.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// ServiceNote is one entry in a request's note thread. Notes are immutable
// once created. Author is denormalized display metadata resolved from the
// profiles table at read time and never persisted with the note.
type ServiceNote struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RequestID uuid.UUID      `gorm:"type:uuid;not null;index:idx_note_request_created" json:"request_id"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null" json:"author_id"`
	Note      string         `gorm:"type:text;not null;default:''" json:"note"`
	MediaURL  *string        `gorm:"type:text" json:"media_url,omitempty"`
	MediaType *string        `gorm:"type:varchar(20)" json:"media_type,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_note_request_created" json:"created_at"`
	Author    *shared.Author `gorm:"-" json:"author,omitempty"`
}

// TableName specifies the table name for GORM.
func (ServiceNote) TableName() string {
	return "service_notes"
}

// CreateNoteRequest is the payload for appending a note to a thread.
type CreateNoteRequest struct {
	Note      string  `json:"note"`
	MediaURL  *string `json:"media_url" binding:"omitempty,url"`
	MediaType *string `json:"media_type" binding:"omitempty,oneof=image video"`
}

// HasContent reports whether the payload carries note text or an
// attachment. A note must have at least one of the two.
func (r CreateNoteRequest) HasContent() bool {
	if strings.TrimSpace(r.Note) != "" {
		return true
	}
	return r.MediaURL != nil && *r.MediaURL != ""
}
