// File: internal/profile/service.go
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceImplementation implements the shared.ProfileService interface.
type ServiceImplementation struct {
	repo         Repository
	tokenService shared.TokenService
	cfg          *config.Config
	logger       *zap.Logger
}

var _ shared.ProfileService = (*ServiceImplementation)(nil)

// NewService creates a new profile service.
func NewService(
	repo Repository,
	tokenService shared.TokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:         repo,
		tokenService: tokenService,
		cfg:          cfg,
		logger:       logger,
	}
}

// Register creates a new customer profile and issues a session token pair.
func (s *ServiceImplementation) Register(ctx context.Context, req shared.CreateProfileRequest) (*shared.Profile, *shared.TokenResponse, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, nil, common.ErrConflict.WithDetails("A profile with this email already exists.")
	}
	if apiErr, ok := common.IsAPIError(err); !ok || apiErr.Code != common.ErrNotFound.Code {
		return nil, nil, fmt.Errorf("failed to check existing profile by email: %w", err)
	}

	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbProfile := RegisterRequestToDB(&req, hashedPassword)

	if err := s.repo.Create(ctx, dbProfile); err != nil {
		s.logger.Error("Failed to create profile in repository", zap.Error(err), zap.String("email", req.Email))
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, nil, apiErr
		}
		return nil, nil, fmt.Errorf("failed to create profile: %w", err)
	}

	tokenResponse, err := s.issueTokens(dbProfile)
	if err != nil {
		return nil, nil, err
	}

	sharedProfile := DBToShared(dbProfile)
	s.logger.Info("Profile registered successfully", zap.String("profileID", sharedProfile.ID.String()))
	return sharedProfile, tokenResponse, nil
}

// Login verifies credentials and issues a session token pair.
func (s *ServiceImplementation) Login(ctx context.Context, email, password string) (*shared.Profile, *shared.TokenResponse, error) {
	dbProfile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if common.IsCode(err, common.ErrNotFound.Code) {
			s.logger.Info("Profile not found during login", zap.String("email", email))
			return nil, nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		s.logger.Error("Error finding profile by email during login", zap.Error(err), zap.String("email", email))
		return nil, nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}

	if dbProfile.PasswordHash == nil || *dbProfile.PasswordHash == "" {
		s.logger.Warn("Profile has no password hash", zap.String("profileID", dbProfile.ID.String()))
		return nil, nil, common.ErrUnauthorized.WithDetails("Password login is not configured for this account.")
	}

	if !common.CheckPasswordHash(password, *dbProfile.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.String("profileID", dbProfile.ID.String()))
		return nil, nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}

	now := time.Now()
	dbProfile.LastLoginAt = &now
	if err := s.repo.Update(ctx, dbProfile); err != nil {
		// Not critical for auth, keep going.
		s.logger.Error("Failed to update last login time", zap.Error(err), zap.String("profileID", dbProfile.ID.String()))
	}

	tokenResponse, err := s.issueTokens(dbProfile)
	if err != nil {
		return nil, nil, err
	}

	sharedProfile := DBToShared(dbProfile)
	s.logger.Info("Profile logged in successfully", zap.String("profileID", sharedProfile.ID.String()))
	return sharedProfile, tokenResponse, nil
}

func (s *ServiceImplementation) issueTokens(dbProfile *Profile) (*shared.TokenResponse, error) {
	accessToken, accessExpiresAt, err := s.tokenService.GenerateAccessToken(dbProfile)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err), zap.String("profileID", dbProfile.ID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not generate access token.")
	}

	refreshToken, _, err := s.tokenService.GenerateRefreshToken(dbProfile)
	if err != nil {
		// Proceed without a refresh token; the access token still works.
		s.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("profileID", dbProfile.ID.String()))
	}

	return &shared.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiresAt,
	}, nil
}

func (s *ServiceImplementation) GetProfileByID(ctx context.Context, id uuid.UUID) (*shared.Profile, error) {
	dbProfile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if common.IsCode(err, common.ErrNotFound.Code) {
			s.logger.Info("Profile not found by ID", zap.String("profileID", id.String()))
		} else {
			s.logger.Error("Error finding profile by ID", zap.Error(err), zap.String("profileID", id.String()))
		}
		return nil, err
	}
	return DBToShared(dbProfile), nil
}

func (s *ServiceImplementation) GetProfileByEmail(ctx context.Context, email string) (*shared.Profile, error) {
	dbProfile, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return DBToShared(dbProfile), nil
}

// FetchOrCreate resolves the profile row backing an authenticated identity.
// The row can lag behind the identity right after sign-up, and the store can
// be briefly unreachable, so lookups retry with exponential backoff. After
// the final attempt an ephemeral profile is returned instead of an error so
// sign-in never hangs on a missing row.
func (s *ServiceImplementation) FetchOrCreate(ctx context.Context, id uuid.UUID, email string) (*shared.Profile, error) {
	attempts := s.cfg.ProfileBootstrap
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// 500ms, 1s, 2s, ...
			delay := 500 * time.Millisecond << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		dbProfile, err := s.repo.FindByID(ctx, id)
		if err == nil {
			return DBToShared(dbProfile), nil
		}
		if !common.IsCode(err, common.ErrNotFound.Code) {
			s.logger.Warn("Transient profile lookup failure",
				zap.Error(err), zap.Int("attempt", attempt+1), zap.String("profileID", id.String()))
			lastErr = err
			continue
		}

		created := &Profile{
			BaseModel: common.BaseModel{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()},
			Email:     strings.ToLower(strings.TrimSpace(email)),
			Role:      common.RoleCustomer,
		}
		if err := s.repo.Create(ctx, created); err != nil {
			// A concurrent bootstrap may have won the race; retry the lookup.
			s.logger.Warn("Profile bootstrap insert failed",
				zap.Error(err), zap.Int("attempt", attempt+1), zap.String("profileID", id.String()))
			lastErr = err
			continue
		}
		s.logger.Info("Bootstrapped missing profile row", zap.String("profileID", id.String()))
		return DBToShared(created), nil
	}

	s.logger.Error("Falling back to ephemeral profile after repeated failures",
		zap.Error(lastErr), zap.String("profileID", id.String()))
	now := time.Now()
	return &shared.Profile{
		ID:        id,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      common.RoleCustomer,
		Ephemeral: true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateMe applies a self-service update to the caller's own profile. Only
// display name, phone and the onboarding-guide flag are mutable this way.
func (s *ServiceImplementation) UpdateMe(ctx context.Context, id uuid.UUID, req UpdateMeRequest) (*shared.Profile, error) {
	dbProfile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		if trimmed == "" {
			dbProfile.FullName = nil
		} else {
			dbProfile.FullName = &trimmed
		}
	}
	if req.Phone != nil {
		trimmed := strings.TrimSpace(*req.Phone)
		if trimmed == "" {
			dbProfile.Phone = nil
		} else {
			dbProfile.Phone = &trimmed
		}
	}
	if req.HasSeenGuide != nil {
		dbProfile.HasSeenGuide = *req.HasSeenGuide
	}
	dbProfile.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, dbProfile); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err), zap.String("profileID", id.String()))
		return nil, err
	}
	return DBToShared(dbProfile), nil
}

// FindAdmins returns every profile with the admin role.
func (s *ServiceImplementation) FindAdmins(ctx context.Context) ([]*shared.Profile, error) {
	dbProfiles, err := s.repo.FindByRole(ctx, common.RoleAdmin)
	if err != nil {
		s.logger.Error("Failed to list admin profiles", zap.Error(err))
		return nil, err
	}
	admins := make([]*shared.Profile, 0, len(dbProfiles))
	for _, p := range dbProfiles {
		admins = append(admins, DBToShared(p))
	}
	return admins, nil
}

// ResolveAuthors maps author IDs to display metadata in a single batched
// lookup. Authors not found in the profiles table resolve to a customer
// named "Unknown" so callers never fail a whole thread over one orphan.
func (s *ServiceImplementation) ResolveAuthors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.Author, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	authors := make(map[uuid.UUID]shared.Author, len(unique))
	if len(unique) == 0 {
		return authors, nil
	}

	dbProfiles, err := s.repo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, p := range dbProfiles {
		sp := DBToShared(p)
		authors[p.ID] = shared.Author{Role: sp.Role, FullName: sp.DisplayName()}
	}
	for _, id := range unique {
		if _, ok := authors[id]; !ok {
			authors[id] = shared.Author{Role: common.RoleCustomer, FullName: "Unknown"}
		}
	}
	return authors, nil
}
