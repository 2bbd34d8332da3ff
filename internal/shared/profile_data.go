// File: internal/shared/profile_data.go
package shared

import (
	"github.com/google/uuid"
)

// Profile implements the ProfileDataForToken interface.
func (p *Profile) GetID() uuid.UUID {
	return p.ID
}

func (p *Profile) GetEmail() string {
	return p.Email
}

func (p *Profile) GetRole() string {
	return p.Role
}

// DisplayName returns the full name when present, falling back to the
// email address.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}
