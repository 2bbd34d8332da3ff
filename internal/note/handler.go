package note

import (
	"errors"
	"io"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Presence mirrors a viewer's live attention to a thread. The stream
// reports open on connect and closed on disconnect, so unread tracking can
// suppress alerts only while the thread is actually on screen.
type Presence interface {
	ThreadOpened(actorID, requestID uuid.UUID)
	ThreadClosed(actorID uuid.UUID)
}

type Handler struct {
	service  Service
	profiles shared.ProfileService
	owners   OwnerLookup
	presence Presence
	logger   *zap.Logger
}

func NewHandler(service Service, profiles shared.ProfileService, owners OwnerLookup, presence Presence, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		profiles: profiles,
		owners:   owners,
		presence: presence,
		logger:   logger,
	}
}

// RegisterRoutes sets up note routes nested under a request. All routes in
// this group should be authenticated.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/:request_id/notes", h.getThread)
	router.POST("/:request_id/notes", h.appendNote)
	router.GET("/:request_id/notes/stream", h.streamThread)
}

// streamThread keeps an open thread live over Server-Sent Events: the full
// history first, then a fresh snapshot whenever a note lands.
func (h *Handler) streamThread(c *gin.Context) {
	requestID, ok := h.authorizeThreadAccess(c)
	if !ok {
		return
	}

	view, err := h.service.Watch(c.Request.Context(), requestID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	defer view.Dispose()

	actorID := common.GetUserIDFromContext(c)
	h.presence.ThreadOpened(actorID, requestID)
	defer h.presence.ThreadClosed(actorID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	snapshots := make(chan []ServiceNote, 8)
	unsubscribe := view.OnChange(func(notes []ServiceNote) {
		select {
		case snapshots <- notes:
		default:
			// Viewer is behind; the next snapshot carries the full thread
			// anyway.
		}
	})
	defer unsubscribe()

	c.SSEvent("thread", view.Notes())
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case notes := <-snapshots:
			c.SSEvent("thread", notes)
			return true
		}
	})
}

func (h *Handler) getThread(c *gin.Context) {
	requestID, ok := h.authorizeThreadAccess(c)
	if !ok {
		return
	}

	notes, err := h.service.LoadThread(c.Request.Context(), requestID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Thread retrieved successfully.", notes)
}

func (h *Handler) appendNote(c *gin.Context) {
	requestID, ok := h.authorizeThreadAccess(c)
	if !ok {
		return
	}

	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrors)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	actor, err := h.profiles.GetProfileByID(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	created, err := h.service.AppendNote(c.Request.Context(), requestID, actor, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Note added successfully.", created)
}

// authorizeThreadAccess parses the request id and enforces that customers
// only reach threads of their own requests. Admins reach every thread.
func (h *Handler) authorizeThreadAccess(c *gin.Context) (uuid.UUID, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return uuid.Nil, false
	}

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request ID format."))
		return uuid.Nil, false
	}

	if !common.IsAdminContext(c) {
		ownerID, err := h.owners.OwnerOf(c.Request.Context(), requestID)
		if err != nil {
			common.RespondWithError(c, err)
			return uuid.Nil, false
		}
		if ownerID != userID {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have access to this thread."))
			return uuid.Nil, false
		}
	}
	return requestID, true
}
