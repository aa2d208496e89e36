package handlers

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"response-dashboard/middleware"
	"response-dashboard/models"
	"response-dashboard/websocket"
)

// WebSocketHandler upgrades dashboard clients onto the snapshot hub.
type WebSocketHandler struct {
	hub *websocket.Hub
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ListenSnapshots upgrades the connection and registers the client for
// snapshot broadcasts.
func (h *WebSocketHandler) ListenSnapshots(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	upgrader := gorilla.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Error("failed to upgrade connection to WebSocket")
		return
	}

	h.hub.RegisterClient(conn, userID)
}

// HealthCheck reports hub statistics.
func (h *WebSocketHandler) HealthCheck(c *gin.Context) {
	clients, lastSeq := h.hub.GetStats()
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		Service:          "response-dashboard-websocket",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: clients,
		LastSnapshotSeq:  lastSeq,
	})
}
