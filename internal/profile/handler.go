// File: internal/profile/handler.go
package profile

import (
	"errors"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for profile handlers.
type Handler struct {
	service *ServiceImplementation
	logger  *zap.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service *ServiceImplementation, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for profile operations.
// It takes the auth middleware function as a parameter.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	profileGroup := router.Group("/profiles")
	{
		profileGroup.POST("/register", h.register)

		authenticatedGroup := profileGroup.Group("")
		authenticatedGroup.Use(authMW)
		{
			authenticatedGroup.GET("/me", h.getMe)
			authenticatedGroup.PATCH("/me", h.updateMe)
			authenticatedGroup.GET("/:id", h.getProfileByID)
		}
	}
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Profile registration: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	created, tokenResponse, err := h.service.Register(c.Request.Context(), shared.CreateProfileRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	response := gin.H{"profile": SharedToProfileResponse(created), "token": tokenResponse}
	common.RespondCreated(c, "Profile registered successfully.", response)
}

func (h *Handler) getMe(c *gin.Context) {
	profileID := common.GetUserIDFromContext(c)
	if profileID == uuid.Nil {
		h.logger.Error("Profile ID not found in context for /me", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Profile identifier missing."))
		return
	}
	p, err := h.service.GetProfileByID(c.Request.Context(), profileID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", SharedToProfileResponse(p))
}

func (h *Handler) updateMe(c *gin.Context) {
	profileID := common.GetUserIDFromContext(c)
	if profileID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Profile identifier missing."))
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	p, err := h.service.UpdateMe(c.Request.Context(), profileID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", SharedToProfileResponse(p))
}

func (h *Handler) getProfileByID(c *gin.Context) {
	paramID := c.Param("id")
	profileIDToFetch, err := uuid.Parse(paramID)
	if err != nil {
		h.logger.Warn("Invalid profile ID format in URL parameter", zap.String("paramID", paramID), zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid profile ID format."))
		return
	}
	requestingID := common.GetUserIDFromContext(c)
	requestingRole := common.GetUserRoleFromContext(c)
	if requestingRole != common.RoleAdmin && requestingID != profileIDToFetch {
		h.logger.Warn("Profile fetch denied",
			zap.String("requestingID", requestingID.String()),
			zap.String("targetID", profileIDToFetch.String()))
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You are not authorized to view this profile."))
		return
	}
	p, err := h.service.GetProfileByID(c.Request.Context(), profileIDToFetch)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", SharedToProfileResponse(p))
}
