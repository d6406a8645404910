package handler

import (
	"context"
	"net/http"
	"time"

	"fleetpulse/internal/database"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// HealthChecker reports on the selected storage backend.
type HealthChecker interface {
	Health(ctx context.Context) error
	Mode() database.Mode
}

type HealthHandler struct {
	backend HealthChecker
}

func NewHealthHandler(backend HealthChecker) *HealthHandler {
	return &HealthHandler{backend: backend}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.backend.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"backend": h.backend.Mode(),
			"message": "Database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"backend": h.backend.Mode(),
		"message": "Service is running",
	})
}
