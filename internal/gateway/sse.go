// File: internal/gateway/sse.go
package gateway

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk_backend/internal/common"
)

// streamedTables are the tables whose row changes are forwarded to clients.
var streamedTables = []string{
	"service_requests",
	"service_notes",
	"notifications",
	"inventory",
}

// SSEHandler bridges the in-process bus to clients over Server-Sent Events,
// so browsers receive row changes without polling.
type SSEHandler struct {
	bus    *Bus
	logger *zap.Logger
}

// NewSSEHandler creates a new SSE bridge over the bus.
func NewSSEHandler(bus *Bus, logger *zap.Logger) *SSEHandler {
	return &SSEHandler{
		bus:    bus,
		logger: logger.Named("sse"),
	}
}

// RegisterRoutes sets up the event-stream route. The route must be mounted
// behind the auth middleware.
func (h *SSEHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.stream)
}

type ssePayload struct {
	Table    string      `json:"table"`
	Type     EventType   `json:"type"`
	RecordID string      `json:"record_id"`
	Record   interface{} `json:"record,omitempty"`
}

// visibleTo applies the same row-level access the REST handlers enforce:
// staff see every change, everyone else only rows they own.
func visibleTo(evt Event, actorID uuid.UUID, admin bool) bool {
	if admin {
		return true
	}
	return evt.OwnerID != uuid.Nil && evt.OwnerID == actorID
}

func (h *SSEHandler) stream(c *gin.Context) {
	actorID := common.GetUserIDFromContext(c)
	admin := common.IsAdminContext(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := make(chan Event, subscriptionBuffer)
	unsubscribers := make([]func(), 0, len(streamedTables))
	for _, table := range streamedTables {
		unsubscribe := h.bus.Subscribe(table, nil, func(evt Event) {
			if !visibleTo(evt, actorID, admin) {
				return
			}
			select {
			case events <- evt:
			default:
				// Client channel full; the client catches up on its next
				// full refresh.
			}
		})
		unsubscribers = append(unsubscribers, unsubscribe)
	}
	defer func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case evt := <-events:
			c.SSEvent("change", ssePayload{
				Table:    evt.Table,
				Type:     evt.Type,
				RecordID: evt.RecordID.String(),
				Record:   evt.Payload,
			})
			return true
		}
	})
}
