// File: internal/profile/adapter.go
package profile

import (
	"strings"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
)

// DBToShared converts a GORM Profile model to a shared.Profile.
func DBToShared(p *Profile) *shared.Profile {
	return &shared.Profile{
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

// SharedToProfileResponse converts a shared.Profile to a ProfileResponse DTO.
func SharedToProfileResponse(p *shared.Profile) ProfileResponse {
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

// RegisterRequestToDB builds a GORM Profile model from a registration request.
func RegisterRequestToDB(req *shared.CreateProfileRequest, passwordHash string) *Profile {
	now := time.Now()
	p := &Profile{
		BaseModel: common.BaseModel{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: &passwordHash,
		Role:         common.RoleCustomer,
	}
	if req.FullName != "" {
		fullName := req.FullName
		p.FullName = &fullName
	}
	if req.Phone != "" {
		phone := req.Phone
		p.Phone = &phone
	}
	return p
}
