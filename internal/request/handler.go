package request

import (
	"errors"

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

// RegisterRoutes sets up the routes for service-request operations. All
// routes in this group should be authenticated; adminMW additionally guards
// the staff-only workflow mutations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, adminMW gin.HandlerFunc) {
	router.GET("", h.listRequests)
	router.POST("", h.createRequest)
	router.GET("/:request_id", h.getRequest)
	router.POST("/:request_id/approve-cost", h.approveCost)

	admin := router.Group("")
	admin.Use(adminMW)
	{
		admin.PATCH("/:request_id/status", h.updateStatus)
		admin.POST("/:request_id/reject", h.rejectRequest)
	}
}

func (h *Handler) listRequests(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	requests, pagination, err := h.service.ListRequests(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Service requests retrieved successfully.", requests, pagination)
}

func (h *Handler) getRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	sr, err := h.service.GetRequest(c.Request.Context(), requestID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Service request retrieved successfully.", sr)
}

func (h *Handler) createRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.service.CreateRequest(c.Request.Context(), actor, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Service request created successfully.", created)
}

func (h *Handler) updateStatus(c *gin.Context) {
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), requestID, common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Status updated successfully.", updated)
}

func (h *Handler) rejectRequest(c *gin.Context) {
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	var req RejectRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.service.RejectRequest(c.Request.Context(), requestID, common.GetUserIDFromContext(c), req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Request rejected.", updated)
}

func (h *Handler) approveCost(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	requestID, ok := parseRequestID(c)
	if !ok {
		return
	}

	updated, err := h.service.ApproveCost(c.Request.Context(), requestID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Estimate approved.", updated)
}

// actor loads the acting profile for contact snapshots and role checks.
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

func parseRequestID(c *gin.Context) (uuid.UUID, bool) {
	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request ID format."))
		return uuid.Nil, false
	}
	return requestID, true
}

func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return false
	}
	return true
}
