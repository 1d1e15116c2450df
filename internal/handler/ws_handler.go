package handler

import (
	"log"

	"flowboard/internal/realtime"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect godoc
// @Summary      Subscribe to board events
// @Description  Upgrades to a websocket that receives board.changed and board.error messages.
// @Tags         Board
// @Param        token query string true "JWT"
// @Success      101
// @Router       /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		log.Printf("⚠️  WebSocket upgrade failed: %v", err)
	}
}
