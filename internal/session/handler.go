// File: internal/session/handler.go
package session

import (
	"errors"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/middleware"
	"repairdesk_backend/internal/profile"
	"repairdesk_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for session handlers.
type Handler struct {
	profileService *profile.ServiceImplementation
	tokenService   shared.TokenService
	blocklist      TokenBlocklistService
	sessions       *Registry
	logger         *zap.Logger
}

// NewHandler creates a new session handler.
func NewHandler(
	profileService *profile.ServiceImplementation,
	tokenService shared.TokenService,
	blocklist TokenBlocklistService,
	sessions *Registry,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		profileService: profileService,
		tokenService:   tokenService,
		blocklist:      blocklist,
		sessions:       sessions,
		logger:         logger,
	}
}

// RegisterRoutes sets up the routes for authentication operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh-token", h.refreshToken)

		authenticatedGroup := authGroup.Group("")
		authenticatedGroup.Use(authMW)
		{
			authenticatedGroup.POST("/logout", h.logout)
		}
	}
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	loggedIn, tokenResponse, err := h.profileService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	// The credentials are already verified; a lifecycle hiccup must not
	// fail the login.
	if _, err := h.sessions.SignIn(c.Request.Context(), &shared.Claims{UserID: loggedIn.ID, Email: loggedIn.Email}); err != nil {
		h.logger.Warn("Session lifecycle initialization failed",
			zap.Error(err), zap.String("profileID", loggedIn.ID.String()))
	}

	response := gin.H{
		"profile": profile.SharedToProfileResponse(loggedIn),
		"token":   tokenResponse,
	}
	common.RespondOK(c, "Login successful.", response)
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Refresh token: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	claims, err := h.tokenService.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.Warn("Refresh token validation failed", zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token."))
		return
	}

	if claims.ID != "" {
		revoked, err := h.blocklist.IsBlocklisted(c.Request.Context(), claims.ID)
		if err == nil && revoked {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Refresh token has been revoked."))
			return
		}
	}

	p, err := h.profileService.GetProfileByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("Profile not found for valid refresh token claims",
			zap.String("profileID", claims.UserID.String()), zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Profile associated with refresh token not found."))
		return
	}

	newAccessToken, newAccessExpiresAt, err := h.tokenService.GenerateAccessToken(p)
	if err != nil {
		h.logger.Error("Failed to generate new access token during refresh",
			zap.Error(err), zap.String("profileID", p.ID.String()))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate new access token."))
		return
	}

	newTokenResponse := &shared.TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    newAccessExpiresAt,
	}
	common.RespondOK(c, "Token refreshed successfully.", newTokenResponse)
}

func (h *Handler) logout(c *gin.Context) {
	claims := middleware.GetUserClaimsFromContext(c)
	if claims == nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("No active session."))
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.blocklist.AddToBlocklist(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.logger.Error("Failed to revoke token on logout", zap.Error(err), zap.String("jti", claims.ID))
			common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not sign out."))
			return
		}
	}

	h.sessions.SignOut(claims.UserID)

	h.logger.Info("Profile signed out", zap.String("profileID", claims.UserID.String()))
	common.RespondOK(c, "Signed out successfully.", nil)
}
