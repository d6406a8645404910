package handler

import (
	"net/http"

	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/usecase/fleet"
	"fleetpulse/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	ingestor Ingestor
	service  *fleet.Service
}

func NewDeviceHandler(ingestor Ingestor, service *fleet.Service) *DeviceHandler {
	return &DeviceHandler{ingestor: ingestor, service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:id", h.GetDevice)
		devices.POST("", h.RegisterDevice)
	}
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.service.ListDevices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, err := h.service.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", device)
}

// RegisterDevice creates or updates a device and announces it to subscribers.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	req, err := ingestion.ParseRegistration(body)
	if err != nil {
		respondError(c, err)
		return
	}

	device, err := h.ingestor.RegisterDevice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device registered successfully", device)
}
