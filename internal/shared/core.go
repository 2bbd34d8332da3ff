// File: internal/shared/core.go
package shared

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Profile represents an account profile in the system.
type Profile struct {
	ID           uuid.UUID
	Email        string
	FullName     *string
	Phone        *string
	Role         string
	HasSeenGuide bool
	Ephemeral    bool // true when built in memory after repeated fetch failures
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// Author carries the display metadata attached to a note at read time.
// It is resolved from the profiles table, never stored alongside notes.
type Author struct {
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// CreateProfileRequest represents a request to register a new profile.
type CreateProfileRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// TokenResponse represents the response containing JWT tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// ProfileService defines the interface for profile-related business logic
// consumed by other packages.
type ProfileService interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	// FetchOrCreate resolves the profile row backing an authenticated
	// identity, creating it when absent. It retries transient failures and
	// falls back to an ephemeral in-memory profile so sign-in never hangs.
	FetchOrCreate(ctx context.Context, id uuid.UUID, email string) (*Profile, error)
	FindAdmins(ctx context.Context) ([]*Profile, error)
}

// ProfileDataForToken abstracts the profile data needed for token generation.
type ProfileDataForToken interface {
	GetID() uuid.UUID
	GetEmail() string
	GetRole() string
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(profileData ProfileDataForToken) (string, time.Time, error)
	GenerateRefreshToken(profileData ProfileDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(refreshTokenString string) (*Claims, error)
}

// TokenBlocklist checks whether a token's JTI has been revoked by sign-out.
type TokenBlocklist interface {
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// Claims represents the JWT claims structure.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}
