// File: internal/profile/model.go
package profile

import (
	"time"

	"repairdesk_backend/internal/common"

	"github.com/google/uuid"
)

// Profile represents the profile model in the database.
type Profile struct {
	common.BaseModel         // Embeds ID, CreatedAt, UpdatedAt
	Email            string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash     *string `gorm:"type:varchar(255)"` // Pointer to allow NULL
	FullName         *string `gorm:"type:varchar(150)"`
	Phone            *string `gorm:"type:varchar(50)"`
	Role             string  `gorm:"type:varchar(20);not null;default:'customer'"` // "admin" or "customer"
	HasSeenGuide     bool    `gorm:"not null;default:false"`
	LastLoginAt      *time.Time
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// Sanitize removes sensitive information like password hash.
func (p *Profile) Sanitize() {
	p.PasswordHash = nil
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p.Role == common.RoleAdmin
}

// --- DTOs for API requests/responses ---

// RegisterRequest defines the structure for creating a new profile.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"` // bcrypt max is 72 bytes
	FullName string `json:"full_name,omitempty" binding:"omitempty,max=150"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,max=50"`
}

// UpdateMeRequest defines the self-service profile update payload. Only the
// fields the owner may change; role and email stay fixed.
type UpdateMeRequest struct {
	FullName     *string `json:"full_name" binding:"omitempty,max=150"`
	Phone        *string `json:"phone" binding:"omitempty,max=50"`
	HasSeenGuide *bool   `json:"has_seen_guide"`
}

// ProfileResponse defines the structure for profile data sent in API responses.
type ProfileResponse struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Role         string     `json:"role"`
	HasSeenGuide bool       `json:"has_seen_guide"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// ToProfileResponse converts a Profile model to a ProfileResponse DTO.
func ToProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		Phone:        p.Phone,
		Role:         p.Role,
		HasSeenGuide: p.HasSeenGuide,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		LastLoginAt:  p.LastLoginAt,
	}
}

func (p *Profile) GetID() uuid.UUID {
	return p.ID
}

func (p *Profile) GetEmail() string {
	return p.Email
}

func (p *Profile) GetRole() string {
	return p.Role
}
