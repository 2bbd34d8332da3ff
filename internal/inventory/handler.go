// File: internal/inventory/handler.go
package inventory

import (
	"errors"

	"repairdesk_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for inventory management. The whole
// group is staff-only, so the caller must mount it behind the admin
// middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.listItems)
	router.POST("", h.createItem)
	router.GET("/critical", h.listCritical)
	router.GET("/:item_id", h.getItem)
	router.PATCH("/:item_id", h.updateItem)
	router.DELETE("/:item_id", h.deleteItem)
}

func (h *Handler) listItems(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)

	items, pagination, err := h.service.ListItems(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Inventory retrieved successfully.", items, pagination)
}

func (h *Handler) listCritical(c *gin.Context) {
	items, err := h.service.ListCritical(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Critical stock levels retrieved successfully.", items)
}

func (h *Handler) getItem(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Inventory item retrieved successfully.", item)
}

func (h *Handler) createItem(c *gin.Context) {
	var req CreateItemRequest
	if !bindItemJSON(c, &req) {
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Inventory item created successfully.", item)
}

func (h *Handler) updateItem(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !bindItemJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), itemID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Inventory item updated successfully.", item)
}

func (h *Handler) deleteItem(c *gin.Context) {
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), itemID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Inventory item deleted successfully.", nil)
}

func parseItemID(c *gin.Context) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid item ID format."))
		return uuid.Nil, false
	}
	return itemID, true
}

func bindItemJSON(c *gin.Context, target interface{}) bool {
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
