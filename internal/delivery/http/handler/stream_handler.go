package handler

import (
	"net/http"

	"fleetpulse/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Streamer attaches a websocket subscriber to the broadcast bus.
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type StreamHandler struct {
	streamer Streamer
}

func NewStreamHandler(streamer Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

func (h *StreamHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Subscribe)
}

// Subscribe upgrades the connection. The upgrader writes its own error
// response, so failures are only logged here.
func (h *StreamHandler) Subscribe(c *gin.Context) {
	if err := h.streamer.ServeWS(c.Writer, c.Request); err != nil {
		logger.Warn("Websocket subscription failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err))
	}
}
