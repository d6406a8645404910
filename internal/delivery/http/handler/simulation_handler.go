package handler

import (
	"context"
	"net/http"

	"fleetpulse/internal/simulation"
	"fleetpulse/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// SimulationController is the part of the simulation engine the API drives.
type SimulationController interface {
	Start(ctx context.Context) error
	Stop()
	Status() simulation.Status
}

type SimulationRequest struct {
	Action string `json:"action"`
}

type SimulationHandler struct {
	engine SimulationController
}

func NewSimulationHandler(engine SimulationController) *SimulationHandler {
	return &SimulationHandler{engine: engine}
}

func (h *SimulationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/simulation", h.Status)
	router.POST("/simulation", h.Control)
}

func (h *SimulationHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Simulation status retrieved", h.engine.Status())
}

// Control starts or stops the engine. Unknown actions leave it untouched.
func (h *SimulationHandler) Control(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Action {
	case ActionStart:
		if err := h.engine.Start(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Simulation started", h.engine.Status())
	case ActionStop:
		h.engine.Stop()
		utils.SuccessResponse(c, http.StatusOK, "Simulation stopped", h.engine.Status())
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, `Invalid action, use "start" or "stop"`)
	}
}
