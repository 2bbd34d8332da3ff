// File: internal/media/handler.go
package media

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk_backend/internal/common"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the media upload route. Uploads happen before the
// service request is created, so stored files may stay orphaned if the
// follow-up save fails.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/upload", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart payload: "+err.Error()))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		common.RespondWithError(c, common.ErrValidation.WithDetails("At least one file is required."))
		return
	}

	objects := make([]Object, 0, len(files))
	for _, fileHeader := range files {
		obj, err := h.service.SaveUploadedFile(fileHeader, userID)
		if err != nil {
			h.logger.Warn("Media upload failed",
				zap.String("filename", fileHeader.Filename),
				zap.Error(err),
			)
			common.RespondWithError(c, common.ErrValidation.WithDetails(err.Error()))
			return
		}
		objects = append(objects, *obj)
	}

	common.RespondCreated(c, "Media uploaded successfully.", objects)
}
