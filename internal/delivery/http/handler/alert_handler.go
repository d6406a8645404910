package handler

import (
	"net/http"

	"fleetpulse/internal/usecase/fleet"
	"fleetpulse/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	service *fleet.Service
}

func NewAlertHandler(service *fleet.Service) *AlertHandler {
	return &AlertHandler{service: service}
}

func (h *AlertHandler) RegisterRoutes(router *gin.RouterGroup) {
	alerts := router.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.POST("", h.AlertAction)
		alerts.POST("/:id/resolve", h.ResolveAlert)
	}
}

func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var req fleet.AlertFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

func (h *AlertHandler) AlertAction(c *gin.Context) {
	var req fleet.AlertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.HandleAlertAction(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert resolved", gin.H{"alertId": req.AlertID})
}

func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	alertID := c.Param("id")
	if err := h.service.ResolveAlert(c.Request.Context(), alertID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Alert resolved", gin.H{"alertId": alertID})
}
