package handlers

import (
	"log"
	"net/http"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/middleware"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/websocket"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The session token already authenticates the connection.
		return true
	},
}

// WebSocketHandler attaches browser sessions to the auth-event hub.
type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleAuthEvents upgrades the connection and registers it under the
// caller's session ID. The UI receives login/logout events over it and
// re-renders role-gated navigation.
func (h *WebSocketHandler) HandleAuthEvents(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	principal, ok := middleware.CurrentPrincipal(c)
	if sessionID == "" || !ok {
		respondError(c, http.StatusUnauthorized, "Authorization required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, sessionID, principal.Username)
	h.hub.Register(client)
	client.Start()
}

// GetConnectedSessions lists sessions with a live event connection.
func (h *WebSocketHandler) GetConnectedSessions(c *gin.Context) {
	sessions := h.hub.GetConnectedSessions()
	respond(c, http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
