package unread

import (
	"errors"
	"strconv"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service  Service
	profiles shared.ProfileService
	logger   *zap.Logger
}

func NewHandler(service Service, profiles shared.ProfileService, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		profiles: profiles,
		logger:   logger,
	}
}

// RegisterRoutes sets up unread-tracking routes. All routes in this group
// should be authenticated.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.getUnreadMap)
	router.POST("/acknowledge/:request_id", h.acknowledge)
	router.POST("/close-thread", h.closeThread)
	router.GET("/volume", h.getVolume)
	router.PUT("/volume", h.setVolume)
}

func (h *Handler) getUnreadMap(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	silent, _ := strconv.ParseBool(c.DefaultQuery("silent", "false"))

	unreadMap, err := h.service.Refresh(c.Request.Context(), actor, silent)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Unread map retrieved successfully.", unreadMap)
}

func (h *Handler) acknowledge(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request ID format."))
		return
	}

	if err := h.service.Acknowledge(c.Request.Context(), actor, requestID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Thread acknowledged.", gin.H{"request_id": requestID, "unread": false})
}

// closeThread reports that the actor navigated away from the thread they
// were viewing. Clients that consume threads over the live stream do not
// need it; the stream reports presence on disconnect.
func (h *Handler) closeThread(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	h.service.ThreadClosed(userID)
	common.RespondOK(c, "Thread closed.", nil)
}

func (h *Handler) getVolume(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	volume, err := h.service.GetVolume(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Volume preference retrieved successfully.", gin.H{"alert_volume": volume})
}

func (h *Handler) setVolume(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	var req UpdateVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	if err := h.service.SetVolume(c.Request.Context(), userID, *req.AlertVolume); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Volume preference saved.", gin.H{"alert_volume": *req.AlertVolume})
}

func (h *Handler) actor(c *gin.Context) (*shared.Profile, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return nil, false
	}
	actor, err := h.profiles.GetProfileByID(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return nil, false
	}
	return actor, true
}
